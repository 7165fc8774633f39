// Package services orchestrates the ledgers against storage and AMQP.
// The service serializes all ledger access behind one mutex; ledger
// operations themselves are synchronous in-memory transitions. Storage
// writes are fire-and-forget: a failed save is logged and in-memory
// state stays the source of truth for the session.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"lifeledger/internal/backup"
	"lifeledger/internal/core"
	"lifeledger/internal/ledger"
)

type (
	// SnapshotStore persists the two ledger domains. There is no atomic
	// cross-domain write; the service saves both after transitions that
	// touch both.
	SnapshotStore interface {
		SaveBudget(ctx context.Context, snap core.BudgetSnapshot) error
		LoadBudget(ctx context.Context) (core.BudgetSnapshot, bool, error)
		SaveSavings(ctx context.Context, snap core.SavingsSnapshot) error
		LoadSavings(ctx context.Context) (core.SavingsSnapshot, bool, error)
		Close() error
	}

	// EventPublisher announces month transitions. A nil publisher
	// disables events without changing ledger behavior.
	EventPublisher interface {
		PublishMonthClosed(ctx context.Context, rec core.MonthlySavingsRecord) error
		PublishMonthReverted(ctx context.Context, month core.Month) error
	}

	// LedgerService owns the budget and savings ledgers for the process.
	LedgerService struct {
		mu        sync.Mutex
		budget    *ledger.BudgetLedger
		savings   *ledger.SavingsLedger
		store     SnapshotStore
		publisher EventPublisher
	}

	// ViewState describes the month navigation state for clients.
	ViewState struct {
		ViewedMonth        core.Month `json:"viewedMonth"`
		ActiveMonth        core.Month `json:"activeMonth"`
		IsCurrentMonthView bool       `json:"isCurrentMonthView"`
		CanRevertMonth     bool       `json:"canRevertMonth"`
	}

	// ExpenseResult pairs a mutated expense with the overdraft advisory
	// for Saving-type changes. The advisory never blocks the mutation.
	ExpenseResult struct {
		Item     core.ExpenseItem       `json:"item"`
		Advisory *ledger.OverdraftCheck `json:"advisory,omitempty"`
	}

	// SavingsView is the read model of the savings ledger.
	SavingsView struct {
		Balance            float64                     `json:"totalSavings"`
		History            []core.MonthlySavingsRecord `json:"monthlyHistory"`
		LastMonthTransfer  float64                     `json:"lastMonthTransfer"`
		AverageSavingsRate float64                     `json:"averageSavingsRatePercent"`
	}
)

// NewLedgerService loads persisted state, applies any overdue automatic
// rollover and returns a ready service.
func NewLedgerService(ctx context.Context, store SnapshotStore, publisher EventPublisher, timezone string, now func() time.Time) (*LedgerService, error) {
	savings := ledger.NewSavingsLedger()
	budget := ledger.New(savings, now)
	budget.SetTimezone(timezone)

	if snap, found, err := store.LoadSavings(ctx); err != nil {
		return nil, fmt.Errorf("load savings snapshot: %w", err)
	} else if found {
		savings.Restore(snap)
	}

	if snap, found, err := store.LoadBudget(ctx); err != nil {
		return nil, fmt.Errorf("load budget snapshot: %w", err)
	} else if found {
		budget.Restore(snap)
	}

	s := &LedgerService{
		budget:    budget,
		savings:   savings,
		store:     store,
		publisher: publisher,
	}

	if records := budget.RolloverIfDue(); len(records) > 0 {
		slog.InfoContext(ctx, "Automatic rollover applied",
			"months_closed", len(records),
			"active_month", budget.ActiveMonth())
		for _, rec := range records {
			s.publishClosed(ctx, rec)
		}
		s.persistBoth(ctx)
	}

	return s, nil
}

// Close releases the underlying store.
func (s *LedgerService) Close() error {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			return fmt.Errorf("close store: %w", err)
		}
	}
	return nil
}

// State returns the navigation state of the ledger.
func (s *LedgerService) State() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewState()
}

func (s *LedgerService) viewState() ViewState {
	return ViewState{
		ViewedMonth:        s.budget.ViewedMonth(),
		ActiveMonth:        s.budget.ActiveMonth(),
		IsCurrentMonthView: s.budget.IsCurrentMonthView(),
		CanRevertMonth:     s.budget.CanRevertMonth(),
	}
}

// Summary returns the derived budget summary of the viewed month.
func (s *LedgerService) Summary() core.BudgetSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budget.Summary()
}

// Expenses lists the viewed month's expenses.
func (s *LedgerService) Expenses() []core.ExpenseItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budget.Expenses()
}

// IncomeConfig returns the current income configuration.
func (s *LedgerService) IncomeConfig() core.IncomeConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budget.IncomeConfig()
}

// History lists the archived months.
func (s *LedgerService) History() []core.BudgetHistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budget.History()
}

// UpdateIncome merges a partial income-config update.
func (s *LedgerService) UpdateIncome(ctx context.Context, patch ledger.IncomeConfigPatch) core.IncomeConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := s.budget.UpdateIncomeConfig(patch)
	s.persistBudget(ctx)
	return updated
}

// AddExpense appends an expense to the viewed month. For Saving-type
// items the result carries the overdraft advisory computed before the
// mutation was applied.
func (s *LedgerService) AddExpense(ctx context.Context, item core.ExpenseItem) (ExpenseResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var advisory *ledger.OverdraftCheck
	if item.Type == core.Saving && s.budget.IsCurrentMonthView() {
		check := s.budget.CheckSavingChange(projectedAmount(item))
		advisory = &check
	}

	added, err := s.budget.AddExpense(item)
	if err != nil {
		return ExpenseResult{}, err
	}
	slog.InfoContext(ctx, "Expense added",
		"expense_id", added.ID,
		"expense_name", added.Name,
		"expense_type", added.Type,
		"amount", added.Amount,
		"month", s.budget.ViewedMonth())
	s.persistBudget(ctx)
	return ExpenseResult{Item: added, Advisory: advisory}, nil
}

// UpdateExpense applies a partial edit to an expense in the viewed month.
// Edits that move a Saving item's effective amount through any of the
// reconciled fields carry the overdraft advisory in the result.
func (s *LedgerService) UpdateExpense(ctx context.Context, id string, changes ledger.ExpenseUpdate) (ExpenseResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var advisory *ledger.OverdraftCheck
	if touchesAmount(changes) && s.budget.IsCurrentMonthView() {
		if current := savingExpense(s.budget.Expenses(), id, changes.Type); current != nil {
			check := s.budget.CheckSavingChange(ledger.ReconciledAmount(*current, changes) - current.Amount)
			advisory = &check
		}
	}

	updated, err := s.budget.UpdateExpense(id, changes)
	if err != nil {
		return ExpenseResult{}, err
	}
	s.persistBudget(ctx)
	return ExpenseResult{Item: updated, Advisory: advisory}, nil
}

// RemoveExpense deletes an expense from the viewed month.
func (s *LedgerService) RemoveExpense(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.budget.RemoveExpense(id); err != nil {
		return err
	}
	s.persistBudget(ctx)
	return nil
}

// ToggleIgnore flips an expense's ignored flag.
func (s *LedgerService) ToggleIgnore(ctx context.Context, id string) (core.ExpenseItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := s.budget.ToggleIgnore(id)
	if err != nil {
		return core.ExpenseItem{}, err
	}
	s.persistBudget(ctx)
	return item, nil
}

// ResetCurrentMonthItems clears amounts without deleting items.
func (s *LedgerService) ResetCurrentMonthItems(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budget.ResetCurrentMonthItems()
	s.persistBudget(ctx)
}

// CheckSavingChange exposes the overdraft advisory for callers that want
// to confirm before mutating.
func (s *LedgerService) CheckSavingChange(delta float64) ledger.OverdraftCheck {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budget.CheckSavingChange(delta)
}

// CloseMonth archives the active month. The bool is false when the view
// gate forbids closing.
func (s *LedgerService) CloseMonth(ctx context.Context) (core.MonthlySavingsRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.budget.CloseMonth()
	if !ok {
		slog.WarnContext(ctx, "Month close refused outside the active view",
			"viewed_month", s.budget.ViewedMonth(),
			"active_month", s.budget.ActiveMonth())
		return core.MonthlySavingsRecord{}, false
	}

	slog.InfoContext(ctx, "Month closed",
		"month", record.Month,
		"free_money", record.FreeMoney,
		"transferred_to_savings", record.TransferredToSavings,
		"balance", record.SavingsTotalAfterTransfer)

	s.publishClosed(ctx, record)
	s.persistBoth(ctx)
	return record, true
}

// RevertMonth undoes the most recent close. The bool is false when the
// revert window has passed.
func (s *LedgerService) RevertMonth(ctx context.Context) (core.BudgetHistoryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.budget.RevertMonth()
	if !ok {
		slog.WarnContext(ctx, "Month revert refused",
			"active_month", s.budget.ActiveMonth(),
			"history_entries", len(s.budget.History()))
		return core.BudgetHistoryEntry{}, false
	}

	slog.InfoContext(ctx, "Month reverted", "month", entry.Month)

	if s.publisher != nil {
		if err := s.publisher.PublishMonthReverted(ctx, entry.Month); err != nil {
			slog.ErrorContext(ctx, "Failed to publish month reverted event",
				"month", entry.Month, "error", err)
		}
	}
	s.persistBoth(ctx)
	return entry, true
}

// SetViewMonth points the view at a specific month.
func (s *LedgerService) SetViewMonth(m core.Month) (ViewState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.budget.SetViewMonth(m)
	return s.viewState(), ok
}

// ViewPreviousMonth steps the view back one month.
func (s *LedgerService) ViewPreviousMonth() (ViewState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.budget.ViewPreviousMonth()
	return s.viewState(), ok
}

// ViewNextMonth steps the view forward, bounded by the active month.
func (s *LedgerService) ViewNextMonth() (ViewState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.budget.ViewNextMonth()
	return s.viewState(), ok
}

// Savings returns the savings read model.
func (s *LedgerService) Savings() SavingsView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savingsView()
}

// AddManualSavings applies a signed manual top-up.
func (s *LedgerService) AddManualSavings(ctx context.Context, amount float64) SavingsView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budget.AddManualSavings(amount)
	slog.InfoContext(ctx, "Manual savings adjustment",
		"amount", amount, "balance", s.savings.Balance())
	s.persistBoth(ctx)
	return s.savingsView()
}

// SetSavingsBalance overwrites the balance with an absolute value.
func (s *LedgerService) SetSavingsBalance(ctx context.Context, amount float64) SavingsView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.savings.SetBalance(amount)
	s.persistSavings(ctx)
	return s.savingsView()
}

// ResetSavings clears the savings balance and history.
func (s *LedgerService) ResetSavings(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.savings.Reset()
	s.persistSavings(ctx)
}

// AnalyzePurchase evaluates a price against the viewed month's budget.
func (s *LedgerService) AnalyzePurchase(price float64) core.ValueAnalysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary := s.budget.Summary()
	return core.AnalyzePurchase(price, summary.RemainingIncome, summary.HourlyRate)
}

// ExportBackup produces the single backup document.
func (s *LedgerService) ExportBackup() backup.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return backup.Export(s.budget.Snapshot(), s.savings.Snapshot())
}

// ImportBackup validates an uploaded document and fully replaces both
// domains. Invalid payloads leave current state untouched.
func (s *LedgerService) ImportBackup(ctx context.Context, data []byte) error {
	doc, err := backup.Parse(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	budgetSnap, savingsSnap := doc.Snapshots()
	s.savings.Restore(savingsSnap)
	s.budget.Restore(budgetSnap)

	slog.InfoContext(ctx, "Backup imported",
		"expenses", len(budgetSnap.Expenses),
		"history_entries", len(budgetSnap.History),
		"balance", savingsSnap.TotalSavings)

	s.persistBoth(ctx)
	return nil
}

func (s *LedgerService) savingsView() SavingsView {
	return SavingsView{
		Balance:            s.savings.Balance(),
		History:            s.savings.History(),
		LastMonthTransfer:  s.savings.LastMonthTransfer(),
		AverageSavingsRate: core.Round2(s.savings.AverageSavingsRate()),
	}
}

func (s *LedgerService) publishClosed(ctx context.Context, rec core.MonthlySavingsRecord) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishMonthClosed(ctx, rec); err != nil {
		// The close already happened; the event stream is best-effort.
		slog.ErrorContext(ctx, "Failed to publish month closed event",
			"month", rec.Month, "error", err)
	}
}

func (s *LedgerService) persistBudget(ctx context.Context) {
	if err := s.store.SaveBudget(ctx, s.budget.Snapshot()); err != nil {
		slog.ErrorContext(ctx, "Failed to persist budget snapshot", "error", err)
	}
}

func (s *LedgerService) persistSavings(ctx context.Context) {
	if err := s.store.SaveSavings(ctx, s.savings.Snapshot()); err != nil {
		slog.ErrorContext(ctx, "Failed to persist savings snapshot", "error", err)
	}
}

func (s *LedgerService) persistBoth(ctx context.Context) {
	s.persistBudget(ctx)
	s.persistSavings(ctx)
}

func projectedAmount(item core.ExpenseItem) float64 {
	if item.Amount != 0 {
		return item.Amount
	}
	qty := item.Quantity
	if qty < 1 {
		qty = 1
	}
	return item.UnitPrice * float64(qty)
}

// touchesAmount reports whether an edit can move the effective amount
// through any of the three reconciled fields.
func touchesAmount(changes ledger.ExpenseUpdate) bool {
	return changes.Amount != nil || changes.Quantity != nil || changes.UnitPrice != nil
}

// savingExpense finds the expense when it is, or is being turned into,
// a Saving item.
func savingExpense(expenses []core.ExpenseItem, id string, newType *core.ExpenseType) *core.ExpenseItem {
	for i := range expenses {
		e := &expenses[i]
		if e.ID != id {
			continue
		}
		typ := e.Type
		if newType != nil {
			typ = *newType
		}
		if typ == core.Saving {
			return e
		}
		return nil
	}
	return nil
}
