package backup

import (
	"encoding/json"
	"errors"
	"testing"

	"lifeledger/internal/core"
)

func TestExportParseRoundTrip(t *testing.T) {
	budget := core.BudgetSnapshot{
		Version: core.SnapshotVersion,
		Income:  core.IncomeConfig{MonthlyIncome: 2500, WorkHoursPerMonth: 160},
		Expenses: []core.ExpenseItem{
			{ID: "a", Name: "rent", Amount: 900, UnitPrice: 900, Quantity: 1, Type: core.Responsibility, Priority: core.MustHave},
		},
		Settings:    core.UserSettings{Timezone: "UTC", LastActiveMonth: "2026-08"},
		ManualAdded: 25,
	}
	savings := core.SavingsSnapshot{
		TotalSavings: 1200,
		History: []core.MonthlySavingsRecord{
			{Month: "2026-07", Income: 2500, TransferredToSavings: 300},
		},
	}

	doc := Export(budget, savings)
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	parsed, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	gotBudget, gotSavings := parsed.Snapshots()

	if gotBudget.Income.MonthlyIncome != 2500 {
		t.Errorf("income = %v, want 2500", gotBudget.Income.MonthlyIncome)
	}
	if len(gotBudget.Expenses) != 1 || gotBudget.Expenses[0].ID != "a" {
		t.Errorf("expenses not preserved: %+v", gotBudget.Expenses)
	}
	if gotBudget.ManualAdded != 25 {
		t.Errorf("manualAdded = %v, want 25", gotBudget.ManualAdded)
	}
	if gotSavings.TotalSavings != 1200 || len(gotSavings.History) != 1 {
		t.Errorf("savings not preserved: %+v", gotSavings)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", "definitely not json"},
		{"no markers", `{"foo": 1}`},
		{"empty object", `{}`},
		{"newer version", `{"version": 999}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.data)); !errors.Is(err, core.ErrInvalidBackup) {
				t.Fatalf("expected ErrInvalidBackup, got %v", err)
			}
		})
	}
}

func TestParseAcceptsSavingsOnlyDocument(t *testing.T) {
	// Old exports carried only the savings split; they remain importable.
	data := `{"savings": {"totalSavings": 50, "monthlyHistory": []}}`
	doc, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, savings := doc.Snapshots()
	if savings.TotalSavings != 50 {
		t.Errorf("totalSavings = %v, want 50", savings.TotalSavings)
	}
}
