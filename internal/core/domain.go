package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// Responsibility is a recurring fixed obligation that carries over
	// into the next month at close.
	Responsibility ExpenseType = "Responsibility"
	// Burning is discretionary spend, discarded at month close.
	Burning ExpenseType = "Burning"
	// Saving is an allocated savings contribution; it counts as an
	// expense during the month and carries over at close.
	Saving ExpenseType = "Saving"
)

const (
	MustHave  Priority = "Must Have"
	Want      Priority = "Want"
	Emergency Priority = "Emergency"
	Gift      Priority = "Gift"
)

const (
	// DefaultWorkHours is the fallback divisor for the hourly rate when
	// no work hours are configured.
	DefaultWorkHours = 160

	// MethodWeekly derives work hours from hours-per-day x days-per-week.
	MethodWeekly = "weekly"
	// MethodManual uses the work hours entered directly.
	MethodManual = "manual"
)

type (
	ExpenseType string
	Priority    string

	// Month is a calendar month in "YYYY-MM" form.
	Month string

	WeeklyHours struct {
		HoursPerDay int `json:"hoursPerDay"`
		DaysPerWeek int `json:"daysPerWeek"`
	}

	IncomeConfig struct {
		MonthlyIncome      float64      `json:"monthlyIncome"`
		WorkHoursPerMonth  float64      `json:"workHoursPerMonth"`
		HourlyRateOverride float64      `json:"hourlyRateOverride"`
		IsHourlyManual     bool         `json:"isHourlyManual"`
		CalculationMethod  string       `json:"calculationMethod"`
		WeeklyHoursDetails *WeeklyHours `json:"weeklyHoursDetails,omitempty"`
	}

	ExpenseItem struct {
		ID        string      `json:"id"`
		Name      string      `json:"name"`
		Category  string      `json:"category,omitempty"`
		UnitPrice float64     `json:"unitPrice"`
		Quantity  int         `json:"quantity"`
		Amount    float64     `json:"amount"`
		IsIgnored bool        `json:"isIgnored"`
		Type      ExpenseType `json:"type"`
		Priority  Priority    `json:"priority"`
	}

	// BudgetHistoryEntry is the immutable snapshot taken at month close.
	// Expenses holds the archived view (ignored items filtered out);
	// AllExpenses keeps the complete pre-close list so a revert restores
	// the working state exactly.
	BudgetHistoryEntry struct {
		Month       Month         `json:"month"`
		ClosedAt    time.Time     `json:"closedAt"`
		Income      IncomeConfig  `json:"incomeConfig"`
		Expenses    []ExpenseItem `json:"expenses"`
		AllExpenses []ExpenseItem `json:"allExpenses"`
		Summary     BudgetSummary `json:"summary"`
	}

	// MonthlySavingsRecord is one append-only entry of the savings history.
	// All monetary fields are signed; FreeMoney is the unclamped surplus
	// or deficit of the closed month.
	MonthlySavingsRecord struct {
		Month                     Month     `json:"month"`
		Income                    float64   `json:"income"`
		Expenses                  float64   `json:"expenses"`
		FreeMoney                 float64   `json:"freeMoney"`
		TransferredToSavings      float64   `json:"transferredToSavings"`
		PlannedSavings            float64   `json:"plannedSavings"`
		SavingsImpact             float64   `json:"savingsImpact"`
		ManualAdded               float64   `json:"manualAdded"`
		SavingsTotalAfterTransfer float64   `json:"savingsTotalAfterTransfer"`
		ClosedAt                  time.Time `json:"closedAt"`
	}

	UserSettings struct {
		Timezone        string `json:"timezone"`
		LastActiveMonth Month  `json:"lastActiveMonth"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrEmptyName          = errors.New("empty expense name")
	ErrUnknownExpenseType = errors.New("unknown expense type")
	ErrUnknownPriority    = errors.New("unknown priority")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrNotFound           = errors.New("expense not found")
	ErrInvalidBackup      = errors.New("invalid backup payload")
)

// ParseMonth validates a "YYYY-MM" string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return MonthOf(t), nil
}

// MonthOf returns the calendar month containing t.
func MonthOf(t time.Time) Month {
	return Month(t.Format("2006-01"))
}

func (m Month) String() string { return string(m) }

func (m Month) Validate() error {
	_, err := ParseMonth(string(m))
	return err
}

func (m Month) time() time.Time {
	t, _ := time.Parse("2006-01", string(m))
	return t
}

// Next returns the following calendar month.
func (m Month) Next() Month {
	return MonthOf(m.time().AddDate(0, 1, 0))
}

// Prev returns the preceding calendar month.
func (m Month) Prev() Month {
	return MonthOf(m.time().AddDate(0, -1, 0))
}

// Before reports whether m precedes other.
func (m Month) Before(other Month) bool {
	return string(m) < string(other)
}

// After reports whether m follows other.
func (m Month) After(other Month) bool {
	return string(m) > string(other)
}

func (t ExpenseType) Validate() error {
	switch t {
	case Responsibility, Burning, Saving:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownExpenseType, string(t))
}

// CarriesOver reports whether items of this type survive a month close.
func (t ExpenseType) CarriesOver() bool {
	return t == Responsibility || t == Saving
}

func (p Priority) Validate() error {
	switch p {
	case MustHave, Want, Emergency, Gift:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownPriority, string(p))
}

func (e ExpenseItem) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	if len(e.Name) > 200 {
		return errors.New("expense name too long (max 200 characters)")
	}
	if e.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if e.Amount < 0 || e.UnitPrice < 0 {
		return ErrInvalidAmount
	}
	if err := e.Type.Validate(); err != nil {
		return err
	}
	return e.Priority.Validate()
}

func (c IncomeConfig) Validate() error {
	if c.MonthlyIncome < 0 {
		return fmt.Errorf("%w: monthly income must not be negative", ErrInvalidAmount)
	}
	if c.WorkHoursPerMonth < 0 {
		return errors.New("work hours per month must not be negative")
	}
	switch c.CalculationMethod {
	case "", MethodWeekly, MethodManual:
	default:
		return fmt.Errorf("unknown calculation method %q", c.CalculationMethod)
	}
	return nil
}

// DefaultIncomeConfig mirrors the initial state a fresh ledger starts from.
func DefaultIncomeConfig() IncomeConfig {
	return IncomeConfig{
		WorkHoursPerMonth: DefaultWorkHours,
		CalculationMethod: MethodWeekly,
		WeeklyHoursDetails: &WeeklyHours{
			HoursPerDay: 8,
			DaysPerWeek: 5,
		},
	}
}
