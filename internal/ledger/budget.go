// Package ledger implements the budget and savings state machines: income
// configuration, the active month's expense list, historical archives and
// the month close/revert transitions. All operations are synchronous
// in-memory mutations; persistence and event publishing live in the
// service layer.
package ledger

import (
	"crypto/rand"
	"encoding/hex"
	"math"
	"time"

	"lifeledger/internal/core"
)

// reconcileTolerance is the largest drift allowed between amount and
// unitPrice x quantity before one side is re-derived.
const reconcileTolerance = 0.01

type (
	// SavingsAccount is the narrow mutation interface the budget ledger
	// holds on the savings side. It never reads savings state.
	SavingsAccount interface {
		AddToBalance(amount float64)
		RecordSnapshot(rec core.MonthlySavingsRecord, closedAt time.Time) core.MonthlySavingsRecord
		UndoLastSnapshot() (core.MonthlySavingsRecord, bool)
	}

	// BudgetLedger owns income config, the active month's expenses, the
	// archive and user settings. The viewed-month pointer distinguishes
	// the fully mutable active view from retroactive archive edits.
	BudgetLedger struct {
		income      core.IncomeConfig
		expenses    []core.ExpenseItem
		history     []core.BudgetHistoryEntry
		settings    core.UserSettings
		viewed      core.Month
		manualAdded float64

		savings SavingsAccount
		now     func() time.Time
	}

	// IncomeConfigPatch is a partial income-config update; nil fields
	// are left unchanged.
	IncomeConfigPatch struct {
		MonthlyIncome      *float64          `json:"monthlyIncome,omitempty"`
		WorkHoursPerMonth  *float64          `json:"workHoursPerMonth,omitempty"`
		HourlyRateOverride *float64          `json:"hourlyRateOverride,omitempty"`
		IsHourlyManual     *bool             `json:"isHourlyManual,omitempty"`
		CalculationMethod  *string           `json:"calculationMethod,omitempty"`
		WeeklyHoursDetails *core.WeeklyHours `json:"weeklyHoursDetails,omitempty"`
	}

	// ExpenseUpdate is a partial expense edit. Which numeric fields are
	// set drives the amount/unit-price reconciliation.
	ExpenseUpdate struct {
		Name      *string           `json:"name,omitempty"`
		Category  *string           `json:"category,omitempty"`
		UnitPrice *float64          `json:"unitPrice,omitempty"`
		Quantity  *int              `json:"quantity,omitempty"`
		Amount    *float64          `json:"amount,omitempty"`
		IsIgnored *bool             `json:"isIgnored,omitempty"`
		Type      *core.ExpenseType `json:"type,omitempty"`
		Priority  *core.Priority    `json:"priority,omitempty"`
	}

	// OverdraftCheck is the advisory returned before a Saving-type
	// change. The ledger never rejects an overdraft; callers decide
	// whether to warn or block.
	OverdraftCheck struct {
		ProjectedRemaining float64 `json:"projectedRemaining"`
		WouldOverdraw      bool    `json:"wouldOverdraw"`
	}
)

// New creates a ledger starting at the calendar month of now(), with the
// default income config and empty expense list.
func New(savings SavingsAccount, now func() time.Time) *BudgetLedger {
	if now == nil {
		now = time.Now
	}
	active := core.MonthOf(now())
	return &BudgetLedger{
		income: core.DefaultIncomeConfig(),
		settings: core.UserSettings{
			Timezone:        "UTC",
			LastActiveMonth: active,
		},
		viewed:  active,
		savings: savings,
		now:     now,
	}
}

// Restore replaces ledger state with a persisted snapshot. The viewed
// month resets to the active month.
func (l *BudgetLedger) Restore(snap core.BudgetSnapshot) {
	l.income = snap.Income
	l.expenses = append([]core.ExpenseItem(nil), snap.Expenses...)
	l.history = append([]core.BudgetHistoryEntry(nil), snap.History...)
	l.settings = snap.Settings
	l.manualAdded = snap.ManualAdded
	if l.settings.LastActiveMonth == "" {
		l.settings.LastActiveMonth = core.MonthOf(l.now())
	}
	if l.settings.Timezone == "" {
		l.settings.Timezone = "UTC"
	}
	l.viewed = l.settings.LastActiveMonth
}

// Snapshot returns the persistable form of the budget domain.
func (l *BudgetLedger) Snapshot() core.BudgetSnapshot {
	return core.BudgetSnapshot{
		Version:     core.SnapshotVersion,
		Income:      l.income,
		Expenses:    append([]core.ExpenseItem(nil), l.expenses...),
		History:     append([]core.BudgetHistoryEntry(nil), l.history...),
		Settings:    l.settings,
		ManualAdded: l.manualAdded,
	}
}

func (l *BudgetLedger) IncomeConfig() core.IncomeConfig { return l.income }
func (l *BudgetLedger) Settings() core.UserSettings     { return l.settings }
func (l *BudgetLedger) ActiveMonth() core.Month         { return l.settings.LastActiveMonth }
func (l *BudgetLedger) ViewedMonth() core.Month         { return l.viewed }

// IsCurrentMonthView reports whether the active month is being viewed,
// which is the precondition for closing the month.
func (l *BudgetLedger) IsCurrentMonthView() bool {
	return l.viewed == l.settings.LastActiveMonth
}

// History returns a copy of the archived months, oldest first.
func (l *BudgetLedger) History() []core.BudgetHistoryEntry {
	return append([]core.BudgetHistoryEntry(nil), l.history...)
}

// SetTimezone updates the timezone used for rollover detection. Unknown
// names are ignored.
func (l *BudgetLedger) SetTimezone(tz string) {
	if _, err := time.LoadLocation(tz); err != nil {
		return
	}
	l.settings.Timezone = tz
}

// UpdateIncomeConfig merges a partial config into the current one. Work
// hours are re-derived from the weekly details only when the patch itself
// touches them; an explicit work-hours value always wins.
func (l *BudgetLedger) UpdateIncomeConfig(patch IncomeConfigPatch) core.IncomeConfig {
	if patch.MonthlyIncome != nil {
		l.income.MonthlyIncome = math.Max(0, *patch.MonthlyIncome)
	}
	if patch.WorkHoursPerMonth != nil {
		l.income.WorkHoursPerMonth = *patch.WorkHoursPerMonth
	}
	if patch.HourlyRateOverride != nil {
		l.income.HourlyRateOverride = *patch.HourlyRateOverride
	}
	if patch.IsHourlyManual != nil {
		l.income.IsHourlyManual = *patch.IsHourlyManual
	}
	if patch.CalculationMethod != nil {
		l.income.CalculationMethod = *patch.CalculationMethod
	}
	if patch.WeeklyHoursDetails != nil {
		details := *patch.WeeklyHoursDetails
		l.income.WeeklyHoursDetails = &details
	}
	rederive := (patch.WeeklyHoursDetails != nil || patch.CalculationMethod != nil) &&
		patch.WorkHoursPerMonth == nil
	if rederive && l.income.CalculationMethod == core.MethodWeekly && l.income.WeeklyHoursDetails != nil {
		wd := l.income.WeeklyHoursDetails
		if wd.HoursPerDay > 0 && wd.DaysPerWeek > 0 {
			// Four pay weeks to a month.
			l.income.WorkHoursPerMonth = float64(wd.HoursPerDay * wd.DaysPerWeek * 4)
		}
	}
	return l.income
}

// Expenses returns a copy of the viewed month's expense list. For an
// archived month this is the archived (non-ignored) view.
func (l *BudgetLedger) Expenses() []core.ExpenseItem {
	if l.IsCurrentMonthView() {
		return append([]core.ExpenseItem(nil), l.expenses...)
	}
	if entry := l.historyEntry(l.viewed); entry != nil {
		return append([]core.ExpenseItem(nil), entry.Expenses...)
	}
	return nil
}

// Summary derives the budget summary for the viewed month. It is always
// recomputed, never cached.
func (l *BudgetLedger) Summary() core.BudgetSummary {
	if l.IsCurrentMonthView() {
		return core.ComputeBudgetSummary(l.income, l.expenses)
	}
	if entry := l.historyEntry(l.viewed); entry != nil {
		return entry.Summary
	}
	return core.ComputeBudgetSummary(l.income, nil)
}

// AddExpense appends an expense to the viewed month. A missing unit price
// is derived from amount and quantity before amounts are reconciled; a
// missing id is generated.
func (l *BudgetLedger) AddExpense(item core.ExpenseItem) (core.ExpenseItem, error) {
	if item.ID == "" {
		item.ID = newExpenseID()
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	if item.UnitPrice == 0 && item.Amount != 0 {
		item.UnitPrice = core.Round2(item.Amount / float64(item.Quantity))
	}
	item.Amount = core.Round2(item.UnitPrice * float64(item.Quantity))
	if err := item.Validate(); err != nil {
		return core.ExpenseItem{}, err
	}

	if l.IsCurrentMonthView() {
		l.expenses = append(l.expenses, item)
		return item, nil
	}
	entry := l.historyEntry(l.viewed)
	if entry == nil {
		return core.ExpenseItem{}, core.ErrInvalidMonth
	}
	entry.AllExpenses = append(entry.AllExpenses, item)
	l.refreshEntry(entry)
	return item, nil
}

// UpdateExpense applies a partial edit to an expense in the viewed month,
// reconciling amount, unit price and quantity afterwards.
func (l *BudgetLedger) UpdateExpense(id string, changes ExpenseUpdate) (core.ExpenseItem, error) {
	if l.IsCurrentMonthView() {
		item := findExpense(l.expenses, id)
		if item == nil {
			return core.ExpenseItem{}, core.ErrNotFound
		}
		applyUpdate(item, changes)
		return *item, nil
	}
	entry := l.historyEntry(l.viewed)
	if entry == nil {
		return core.ExpenseItem{}, core.ErrInvalidMonth
	}
	item := findExpense(entry.AllExpenses, id)
	if item == nil {
		return core.ExpenseItem{}, core.ErrNotFound
	}
	applyUpdate(item, changes)
	updated := *item
	l.refreshEntry(entry)
	return updated, nil
}

// RemoveExpense deletes an expense from the viewed month.
func (l *BudgetLedger) RemoveExpense(id string) error {
	if l.IsCurrentMonthView() {
		kept, removed := removeExpense(l.expenses, id)
		if !removed {
			return core.ErrNotFound
		}
		l.expenses = kept
		return nil
	}
	entry := l.historyEntry(l.viewed)
	if entry == nil {
		return core.ErrInvalidMonth
	}
	kept, removed := removeExpense(entry.AllExpenses, id)
	if !removed {
		return core.ErrNotFound
	}
	entry.AllExpenses = kept
	l.refreshEntry(entry)
	return nil
}

// ToggleIgnore flips the ignored flag of an expense without deleting it.
// Ignored items drop out of every calculation but still carry over.
func (l *BudgetLedger) ToggleIgnore(id string) (core.ExpenseItem, error) {
	if l.IsCurrentMonthView() {
		item := findExpense(l.expenses, id)
		if item == nil {
			return core.ExpenseItem{}, core.ErrNotFound
		}
		item.IsIgnored = !item.IsIgnored
		return *item, nil
	}
	entry := l.historyEntry(l.viewed)
	if entry == nil {
		return core.ExpenseItem{}, core.ErrInvalidMonth
	}
	item := findExpense(entry.AllExpenses, id)
	if item == nil {
		return core.ExpenseItem{}, core.ErrNotFound
	}
	item.IsIgnored = !item.IsIgnored
	updated := *item
	l.refreshEntry(entry)
	return updated, nil
}

// ResetCurrentMonthItems zeroes amounts and unit prices and resets
// quantities to 1 for every active-month item, keeping the items
// themselves in place.
func (l *BudgetLedger) ResetCurrentMonthItems() {
	for i := range l.expenses {
		l.expenses[i].Amount = 0
		l.expenses[i].UnitPrice = 0
		l.expenses[i].Quantity = 1
	}
}

// CheckSavingChange projects the remaining income after a signed expense
// delta. Advisory only: callers confirm with the user, the ledger never
// blocks the mutation.
func (l *BudgetLedger) CheckSavingChange(delta float64) OverdraftCheck {
	projected := core.RawRemaining(l.income, l.expenses) - delta
	return OverdraftCheck{
		ProjectedRemaining: core.Round2(projected),
		WouldOverdraw:      projected < 0,
	}
}

// AddManualSavings applies a signed manual top-up to the savings balance
// and tracks it for the month-close record.
func (l *BudgetLedger) AddManualSavings(amount float64) {
	l.savings.AddToBalance(amount)
	l.manualAdded += amount
}

// CloseMonth archives the active month and advances to the next one:
// the signed surplus plus the planned-savings allocations transfer to the
// savings balance, Burning items are dropped and carried items have their
// ignored flag reset. Only legal while viewing the active month;
// otherwise a no-op reporting false.
func (l *BudgetLedger) CloseMonth() (core.MonthlySavingsRecord, bool) {
	if !l.IsCurrentMonthView() {
		return core.MonthlySavingsRecord{}, false
	}

	month := l.settings.LastActiveMonth
	closedAt := l.now()
	summary := core.ComputeBudgetSummary(l.income, l.expenses)
	rawRemaining := core.RawRemaining(l.income, l.expenses)

	var plannedSavings float64
	for _, e := range l.expenses {
		if !e.IsIgnored && e.Type == core.Saving {
			plannedSavings += e.Amount
		}
	}

	// Planned-savings amounts were already subtracted as expenses, so
	// the net transfer adds them back on top of the raw surplus.
	transferred := rawRemaining + plannedSavings
	savingsImpact := math.Min(rawRemaining, 0)

	record := l.savings.RecordSnapshot(core.MonthlySavingsRecord{
		Month:                month,
		Income:               l.income.MonthlyIncome,
		Expenses:             summary.TotalExpenses,
		FreeMoney:            rawRemaining,
		TransferredToSavings: transferred,
		PlannedSavings:       plannedSavings,
		SavingsImpact:        savingsImpact,
		ManualAdded:          l.manualAdded,
	}, closedAt)
	l.manualAdded = 0

	entry := core.BudgetHistoryEntry{
		Month:       month,
		ClosedAt:    closedAt,
		Income:      l.income,
		AllExpenses: append([]core.ExpenseItem(nil), l.expenses...),
		Expenses:    filterActive(l.expenses),
		Summary:     summary,
	}
	l.history = append(l.history, entry)

	var carried []core.ExpenseItem
	for _, e := range l.expenses {
		if e.Type.CarriesOver() {
			e.IsIgnored = false
			carried = append(carried, e)
		}
	}
	l.expenses = carried

	next := month.Next()
	l.settings.LastActiveMonth = next
	l.viewed = next

	return record, true
}

// CanRevertMonth reports whether the last close can be reversed: the
// active month must still be ahead of real calendar time and there must
// be something archived to restore.
func (l *BudgetLedger) CanRevertMonth() bool {
	return len(l.history) > 0 && l.calendarMonth().Before(l.settings.LastActiveMonth)
}

// RevertMonth undoes the most recent close: the popped archive entry is
// restored as the working state and the savings transfer is reversed.
// A no-op reporting false when not eligible.
func (l *BudgetLedger) RevertMonth() (core.BudgetHistoryEntry, bool) {
	if !l.CanRevertMonth() {
		return core.BudgetHistoryEntry{}, false
	}

	entry := l.history[len(l.history)-1]
	l.history = l.history[:len(l.history)-1]

	l.income = entry.Income
	l.expenses = append([]core.ExpenseItem(nil), entry.AllExpenses...)

	if record, ok := l.savings.UndoLastSnapshot(); ok {
		l.manualAdded = record.ManualAdded
	}

	l.settings.LastActiveMonth = entry.Month
	l.viewed = entry.Month
	return entry, true
}

// RolloverIfDue closes the active month as many times as needed to catch
// up with the calendar month in the user's timezone. Called on load.
func (l *BudgetLedger) RolloverIfDue() []core.MonthlySavingsRecord {
	var records []core.MonthlySavingsRecord
	for l.settings.LastActiveMonth.Before(l.calendarMonth()) {
		l.viewed = l.settings.LastActiveMonth
		record, ok := l.CloseMonth()
		if !ok {
			break
		}
		records = append(records, record)
	}
	return records
}

// SetViewMonth moves the viewed-month pointer. Only the active month or
// an archived month can be viewed; anything else reports false.
func (l *BudgetLedger) SetViewMonth(m core.Month) bool {
	if m == l.settings.LastActiveMonth || l.historyEntry(m) != nil {
		l.viewed = m
		return true
	}
	return false
}

// ViewPreviousMonth steps the view one month back when that month exists
// in the archive.
func (l *BudgetLedger) ViewPreviousMonth() bool {
	return l.SetViewMonth(l.viewed.Prev())
}

// ViewNextMonth steps the view one month forward, never past the active
// month.
func (l *BudgetLedger) ViewNextMonth() bool {
	next := l.viewed.Next()
	if next.After(l.settings.LastActiveMonth) {
		return false
	}
	return l.SetViewMonth(next)
}

func (l *BudgetLedger) calendarMonth() core.Month {
	loc, err := time.LoadLocation(l.settings.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return core.MonthOf(l.now().In(loc))
}

func (l *BudgetLedger) historyEntry(m core.Month) *core.BudgetHistoryEntry {
	for i := range l.history {
		if l.history[i].Month == m {
			return &l.history[i]
		}
	}
	return nil
}

// refreshEntry rebuilds an archived entry's filtered view and summary
// after a retroactive edit.
func (l *BudgetLedger) refreshEntry(entry *core.BudgetHistoryEntry) {
	entry.Expenses = filterActive(entry.AllExpenses)
	entry.Summary = core.ComputeBudgetSummary(entry.Income, entry.Expenses)
}

func filterActive(expenses []core.ExpenseItem) []core.ExpenseItem {
	var active []core.ExpenseItem
	for _, e := range expenses {
		if !e.IsIgnored {
			active = append(active, e)
		}
	}
	return active
}

func findExpense(expenses []core.ExpenseItem, id string) *core.ExpenseItem {
	for i := range expenses {
		if expenses[i].ID == id {
			return &expenses[i]
		}
	}
	return nil
}

func removeExpense(expenses []core.ExpenseItem, id string) ([]core.ExpenseItem, bool) {
	for i := range expenses {
		if expenses[i].ID == id {
			return append(expenses[:i:i], expenses[i+1:]...), true
		}
	}
	return expenses, false
}

// applyUpdate merges an edit into an expense and reconciles the numeric
// triple. A single changed numeric field re-derives its counterpart; if
// amount and unitPrice x quantity still disagree beyond a cent, the side
// that was not explicitly given is re-derived (amount wins when both
// were).
// ReconciledAmount previews the amount an edit resolves to once amount,
// unit price and quantity are reconciled, without mutating the item.
func ReconciledAmount(item core.ExpenseItem, changes ExpenseUpdate) float64 {
	applyUpdate(&item, changes)
	return item.Amount
}

func applyUpdate(item *core.ExpenseItem, changes ExpenseUpdate) {
	if changes.Name != nil {
		item.Name = *changes.Name
	}
	if changes.Category != nil {
		item.Category = *changes.Category
	}
	if changes.Type != nil {
		item.Type = *changes.Type
	}
	if changes.Priority != nil {
		item.Priority = *changes.Priority
	}
	if changes.IsIgnored != nil {
		item.IsIgnored = *changes.IsIgnored
	}
	if changes.Quantity != nil {
		item.Quantity = *changes.Quantity
	}
	if changes.UnitPrice != nil {
		item.UnitPrice = *changes.UnitPrice
	}
	if changes.Amount != nil {
		item.Amount = *changes.Amount
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}

	qtyChanged := changes.Quantity != nil
	priceChanged := changes.UnitPrice != nil
	amountChanged := changes.Amount != nil

	switch {
	case qtyChanged && !priceChanged && !amountChanged:
		item.Amount = core.Round2(item.UnitPrice * float64(item.Quantity))
	case amountChanged && !qtyChanged && !priceChanged:
		item.UnitPrice = core.Round2(item.Amount / float64(item.Quantity))
	case priceChanged && !qtyChanged && !amountChanged:
		item.Amount = core.Round2(item.UnitPrice * float64(item.Quantity))
	}

	if math.Abs(item.Amount-item.UnitPrice*float64(item.Quantity)) > reconcileTolerance {
		if amountChanged {
			item.UnitPrice = core.Round2(item.Amount / float64(item.Quantity))
		} else {
			item.Amount = core.Round2(item.UnitPrice * float64(item.Quantity))
		}
	}
}

func newExpenseID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return time.Now().Format("20060102150405.000000000")
	}
	return hex.EncodeToString(b)
}
