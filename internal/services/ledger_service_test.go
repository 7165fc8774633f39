package services

import (
	"context"
	"testing"
	"time"

	"lifeledger/internal/core"
	"lifeledger/internal/ledger"
	"lifeledger/internal/storage/memory"
)

type fakePublisher struct {
	closed   []core.MonthlySavingsRecord
	reverted []core.Month
}

func (p *fakePublisher) PublishMonthClosed(_ context.Context, rec core.MonthlySavingsRecord) error {
	p.closed = append(p.closed, rec)
	return nil
}

func (p *fakePublisher) PublishMonthReverted(_ context.Context, month core.Month) error {
	p.reverted = append(p.reverted, month)
	return nil
}

func fixedClock(t *testing.T) func() time.Time {
	t.Helper()
	return func() time.Time {
		return time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)
	}
}

func newService(t *testing.T, store SnapshotStore, pub EventPublisher) *LedgerService {
	t.Helper()
	svc, err := NewLedgerService(context.Background(), store, pub, "UTC", fixedClock(t))
	if err != nil {
		t.Fatalf("NewLedgerService: %v", err)
	}
	return svc
}

func f(v float64) *float64 { return &v }

func TestCloseMonthPersistsAndPublishes(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	pub := &fakePublisher{}
	svc := newService(t, store, pub)

	svc.UpdateIncome(ctx, ledger.IncomeConfigPatch{MonthlyIncome: f(2000)})
	if _, err := svc.AddExpense(ctx, core.ExpenseItem{
		Name: "groceries", Amount: 500, Type: core.Burning, Priority: core.MustHave,
	}); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	record, ok := svc.CloseMonth(ctx)
	if !ok {
		t.Fatal("CloseMonth refused in active view")
	}
	if record.Month != "2026-08" {
		t.Errorf("record month = %q, want 2026-08", record.Month)
	}
	if record.TransferredToSavings != 1500 {
		t.Errorf("transferred = %v, want 1500", record.TransferredToSavings)
	}

	if len(pub.closed) != 1 || pub.closed[0].Month != "2026-08" {
		t.Errorf("publisher did not see the close: %+v", pub.closed)
	}

	budgetSnap, found, err := store.LoadBudget(ctx)
	if err != nil || !found {
		t.Fatalf("budget snapshot not persisted: found=%v err=%v", found, err)
	}
	if budgetSnap.Settings.LastActiveMonth != "2026-09" {
		t.Errorf("persisted active month = %q, want 2026-09", budgetSnap.Settings.LastActiveMonth)
	}
	savingsSnap, found, err := store.LoadSavings(ctx)
	if err != nil || !found {
		t.Fatalf("savings snapshot not persisted: found=%v err=%v", found, err)
	}
	if savingsSnap.TotalSavings != 1500 {
		t.Errorf("persisted balance = %v, want 1500", savingsSnap.TotalSavings)
	}
}

func TestRevertPublishesAndRestoresState(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	pub := &fakePublisher{}
	svc := newService(t, store, pub)

	svc.UpdateIncome(ctx, ledger.IncomeConfigPatch{MonthlyIncome: f(1800)})
	if _, ok := svc.CloseMonth(ctx); !ok {
		t.Fatal("CloseMonth refused")
	}

	entry, ok := svc.RevertMonth(ctx)
	if !ok {
		t.Fatal("RevertMonth refused after fresh close")
	}
	if entry.Month != "2026-08" {
		t.Errorf("reverted month = %q, want 2026-08", entry.Month)
	}
	if len(pub.reverted) != 1 || pub.reverted[0] != "2026-08" {
		t.Errorf("publisher did not see the revert: %+v", pub.reverted)
	}
	if got := svc.State().ActiveMonth; got != "2026-08" {
		t.Errorf("active month after revert = %q, want 2026-08", got)
	}
	if got := svc.Savings().Balance; got != 0 {
		t.Errorf("balance after revert = %v, want 0", got)
	}
}

func TestServiceRestoresFromStore(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	pub := &fakePublisher{}

	first := newService(t, store, pub)
	first.UpdateIncome(ctx, ledger.IncomeConfigPatch{MonthlyIncome: f(3200)})
	first.AddManualSavings(ctx, 75)
	if _, err := first.AddExpense(ctx, core.ExpenseItem{
		Name: "rent", Amount: 1100, Type: core.Responsibility, Priority: core.MustHave,
	}); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	second := newService(t, store, pub)
	if got := second.IncomeConfig().MonthlyIncome; got != 3200 {
		t.Errorf("restored income = %v, want 3200", got)
	}
	if got := second.Expenses(); len(got) != 1 || got[0].Name != "rent" {
		t.Errorf("restored expenses = %+v", got)
	}
	if got := second.Savings().Balance; got != 75 {
		t.Errorf("restored balance = %v, want 75", got)
	}
}

func TestStartupRolloverClosesOverdueMonths(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	pub := &fakePublisher{}

	stale := core.BudgetSnapshot{
		Version: core.SnapshotVersion,
		Income:  core.IncomeConfig{MonthlyIncome: 1000, WorkHoursPerMonth: 160},
		Settings: core.UserSettings{
			Timezone:        "UTC",
			LastActiveMonth: "2026-06",
		},
	}
	if err := store.SaveBudget(ctx, stale); err != nil {
		t.Fatalf("SaveBudget: %v", err)
	}

	svc := newService(t, store, pub)

	if got := svc.State().ActiveMonth; got != "2026-08" {
		t.Errorf("active month after rollover = %q, want 2026-08", got)
	}
	// June and July each close once.
	if len(pub.closed) != 2 {
		t.Fatalf("published closes = %d, want 2", len(pub.closed))
	}
	if pub.closed[0].Month != "2026-06" || pub.closed[1].Month != "2026-07" {
		t.Errorf("close order = %q, %q", pub.closed[0].Month, pub.closed[1].Month)
	}
}

func TestAddSavingExpenseCarriesAdvisory(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memory.New(), &fakePublisher{})
	svc.UpdateIncome(ctx, ledger.IncomeConfigPatch{MonthlyIncome: f(100)})

	res, err := svc.AddExpense(ctx, core.ExpenseItem{
		Name: "vacation fund", Amount: 150, Type: core.Saving, Priority: core.Want,
	})
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if res.Advisory == nil {
		t.Fatal("expected an overdraft advisory for a saving item")
	}
	if !res.Advisory.WouldOverdraw {
		t.Errorf("advisory = %+v, want WouldOverdraw", res.Advisory)
	}
	if res.Advisory.ProjectedRemaining != -50 {
		t.Errorf("projected remaining = %v, want -50", res.Advisory.ProjectedRemaining)
	}
}

func TestUpdateSavingExpenseAdvisoryOnAnyAmountField(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memory.New(), &fakePublisher{})
	svc.UpdateIncome(ctx, ledger.IncomeConfigPatch{MonthlyIncome: f(100)})

	res, err := svc.AddExpense(ctx, core.ExpenseItem{
		Name: "vacation fund", UnitPrice: 75, Quantity: 1, Type: core.Saving, Priority: core.Want,
	})
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	// A quantity-only edit raises the effective amount just as an amount
	// edit would, so it carries the advisory too: 75 -> 150 against 100.
	qty := 2
	edited, err := svc.UpdateExpense(ctx, res.Item.ID, ledger.ExpenseUpdate{Quantity: &qty})
	if err != nil {
		t.Fatalf("UpdateExpense: %v", err)
	}
	if edited.Advisory == nil {
		t.Fatal("expected an overdraft advisory for a quantity-only edit")
	}
	if !edited.Advisory.WouldOverdraw || edited.Advisory.ProjectedRemaining != -50 {
		t.Errorf("advisory = %+v, want overdraw with projected -50", edited.Advisory)
	}

	// A rename leaves the amount alone and carries no advisory.
	name := "holiday fund"
	renamed, err := svc.UpdateExpense(ctx, res.Item.ID, ledger.ExpenseUpdate{Name: &name})
	if err != nil {
		t.Fatalf("UpdateExpense: %v", err)
	}
	if renamed.Advisory != nil {
		t.Errorf("unexpected advisory on rename: %+v", renamed.Advisory)
	}
}

func TestNonSavingExpenseHasNoAdvisory(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memory.New(), &fakePublisher{})

	res, err := svc.AddExpense(ctx, core.ExpenseItem{
		Name: "coffee", Amount: 4, Type: core.Burning, Priority: core.Want,
	})
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if res.Advisory != nil {
		t.Errorf("unexpected advisory: %+v", res.Advisory)
	}
}

func TestImportBackupReplacesBothDomains(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newService(t, store, &fakePublisher{})

	svc.UpdateIncome(ctx, ledger.IncomeConfigPatch{MonthlyIncome: f(999)})
	svc.AddManualSavings(ctx, 10)

	doc := `{
		"version": 2,
		"incomeConfig": {"monthlyIncome": 4500, "workHoursPerMonth": 160},
		"expenses": [],
		"history": [],
		"settings": {"timezone": "UTC", "lastActiveMonth": "2026-08"},
		"manualAddedThisMonth": 0,
		"savings": {"totalSavings": 8000, "monthlyHistory": []}
	}`
	if err := svc.ImportBackup(ctx, []byte(doc)); err != nil {
		t.Fatalf("ImportBackup: %v", err)
	}

	if got := svc.IncomeConfig().MonthlyIncome; got != 4500 {
		t.Errorf("income after import = %v, want 4500", got)
	}
	if got := svc.Savings().Balance; got != 8000 {
		t.Errorf("balance after import = %v, want 8000", got)
	}

	snap, found, err := store.LoadSavings(ctx)
	if err != nil || !found {
		t.Fatalf("savings not persisted after import: found=%v err=%v", found, err)
	}
	if snap.TotalSavings != 8000 {
		t.Errorf("persisted balance = %v, want 8000", snap.TotalSavings)
	}
}

func TestImportBackupRejectsGarbageWithoutChanges(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memory.New(), &fakePublisher{})
	svc.UpdateIncome(ctx, ledger.IncomeConfigPatch{MonthlyIncome: f(2400)})

	if err := svc.ImportBackup(ctx, []byte("not a backup")); err == nil {
		t.Fatal("expected error for malformed backup")
	}
	if got := svc.IncomeConfig().MonthlyIncome; got != 2400 {
		t.Errorf("income changed on failed import: %v", got)
	}
}

func TestExportRoundTripThroughImport(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memory.New(), &fakePublisher{})
	svc.UpdateIncome(ctx, ledger.IncomeConfigPatch{MonthlyIncome: f(2750)})
	svc.AddManualSavings(ctx, 120)

	doc := svc.ExportBackup()
	if doc.Savings == nil || doc.Savings.TotalSavings != 120 {
		t.Fatalf("export missing savings section: %+v", doc.Savings)
	}
	if doc.ManualAdded != 120 {
		t.Errorf("export manualAdded = %v, want 120", doc.ManualAdded)
	}
}

func TestAnalyzePurchaseUsesViewedSummary(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memory.New(), &fakePublisher{})
	svc.UpdateIncome(ctx, ledger.IncomeConfigPatch{MonthlyIncome: f(3000)})

	analysis := svc.AnalyzePurchase(5)
	if analysis.TimeCostMinutes != 16 {
		t.Errorf("time cost = %d minutes, want 16", analysis.TimeCostMinutes)
	}
	if analysis.TimeCostFormatted != "16 minutes" {
		t.Errorf("time cost = %q, want %q", analysis.TimeCostFormatted, "16 minutes")
	}
}

func TestViewNavigationThroughService(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memory.New(), &fakePublisher{})

	if _, ok := svc.ViewPreviousMonth(); ok {
		t.Error("stepped back with empty history")
	}

	if _, ok := svc.CloseMonth(ctx); !ok {
		t.Fatal("CloseMonth refused")
	}
	state, ok := svc.ViewPreviousMonth()
	if !ok || state.ViewedMonth != "2026-08" {
		t.Fatalf("view previous: ok=%v state=%+v", ok, state)
	}
	if state.IsCurrentMonthView {
		t.Error("archived view reported as current")
	}
	state, ok = svc.ViewNextMonth()
	if !ok || state.ViewedMonth != "2026-09" {
		t.Fatalf("view next: ok=%v state=%+v", ok, state)
	}
	if _, ok := svc.ViewNextMonth(); ok {
		t.Error("stepped past the active month")
	}
}
