package core

// SnapshotVersion tags persisted budget snapshots. Loaders accept older
// versions (fields are additive) and refuse newer ones.
const SnapshotVersion = 2

type (
	// BudgetSnapshot is the JSON-serializable persisted form of the
	// budget domain: income config, working expense list, archive and
	// settings. The viewed-month pointer is session state and is not
	// part of the snapshot.
	BudgetSnapshot struct {
		Version     int                  `json:"version"`
		Income      IncomeConfig         `json:"incomeConfig"`
		Expenses    []ExpenseItem        `json:"expenses"`
		History     []BudgetHistoryEntry `json:"history"`
		Settings    UserSettings         `json:"settings"`
		ManualAdded float64              `json:"manualAddedThisMonth"`
	}

	// SavingsSnapshot is the persisted form of the savings domain. It is
	// written independently of the budget snapshot; the two domains are
	// reconciled by the service layer, not by storage.
	SavingsSnapshot struct {
		TotalSavings float64                `json:"totalSavings"`
		History      []MonthlySavingsRecord `json:"monthlyHistory"`
	}
)
