// Package backup converts ledger state to and from a single downloadable
// JSON document. Import validates the payload shape before anything is
// replaced; a malformed document never touches existing state.
package backup

import (
	"encoding/json"
	"fmt"

	"lifeledger/internal/core"
)

type (
	// Document is the exported backup: the budget snapshot fields at the
	// top level plus the savings domain folded in as a sub-object.
	Document struct {
		Version     int                       `json:"version"`
		Income      core.IncomeConfig         `json:"incomeConfig"`
		Expenses    []core.ExpenseItem        `json:"expenses"`
		History     []core.BudgetHistoryEntry `json:"history"`
		Settings    core.UserSettings         `json:"settings"`
		ManualAdded float64                   `json:"manualAddedThisMonth"`
		Savings     *SavingsSection           `json:"savings,omitempty"`
	}

	SavingsSection struct {
		TotalSavings   float64                     `json:"totalSavings"`
		MonthlyHistory []core.MonthlySavingsRecord `json:"monthlyHistory"`
	}
)

// Export builds the backup document from the two domain snapshots.
func Export(budget core.BudgetSnapshot, savings core.SavingsSnapshot) Document {
	return Document{
		Version:     budget.Version,
		Income:      budget.Income,
		Expenses:    budget.Expenses,
		History:     budget.History,
		Settings:    budget.Settings,
		ManualAdded: budget.ManualAdded,
		Savings: &SavingsSection{
			TotalSavings:   savings.TotalSavings,
			MonthlyHistory: savings.History,
		},
	}
}

// Parse decodes and validates an uploaded backup. A recognizable backup
// carries a version marker or a savings sub-object; anything else is
// rejected before any state is replaced.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", core.ErrInvalidBackup, err)
	}
	if doc.Version == 0 && doc.Savings == nil {
		return Document{}, fmt.Errorf("%w: missing version marker and savings section", core.ErrInvalidBackup)
	}
	if doc.Version > core.SnapshotVersion {
		return Document{}, fmt.Errorf("%w: version %d is newer than supported %d", core.ErrInvalidBackup, doc.Version, core.SnapshotVersion)
	}
	return doc, nil
}

// Snapshots splits the document back into the two domain snapshots.
// The budget snapshot is stamped with the current version.
func (d Document) Snapshots() (core.BudgetSnapshot, core.SavingsSnapshot) {
	budget := core.BudgetSnapshot{
		Version:     core.SnapshotVersion,
		Income:      d.Income,
		Expenses:    d.Expenses,
		History:     d.History,
		Settings:    d.Settings,
		ManualAdded: d.ManualAdded,
	}
	var savings core.SavingsSnapshot
	if d.Savings != nil {
		savings = core.SavingsSnapshot{
			TotalSavings: d.Savings.TotalSavings,
			History:      d.Savings.MonthlyHistory,
		}
	}
	return budget, savings
}
