// Package core holds the pure budgeting domain: types, validation and the
// financial calculator. Nothing in this package performs I/O.
package core

import (
	"fmt"
	"math"
)

const (
	ImpactLow      = "Low Impact"
	ImpactConsider = "Consider Carefully"
	ImpactHigh     = "High Financial Impact"
)

type (
	// BudgetSummary is derived on every read and never stored standalone.
	// RemainingIncome is clamped to zero; callers that need the signed
	// surplus/deficit use RawRemaining instead.
	BudgetSummary struct {
		TotalIncome     float64 `json:"totalIncome"`
		TotalExpenses   float64 `json:"totalExpenses"`
		RemainingIncome float64 `json:"remainingIncome"`
		HourlyRate      float64 `json:"hourlyRate"`
		SavingsRate     float64 `json:"savingsRatePercent"`
	}

	ValueAnalysis struct {
		Cost              float64 `json:"cost"`
		TimeCostMinutes   int     `json:"timeCostMinutes"`
		TimeCostFormatted string  `json:"timeCostFormatted"`
		ImpactPercent     float64 `json:"financialImpactPercent"`
		ImpactLevel       string  `json:"impactLevel"`
	}
)

// Round2 rounds a monetary value to 2 decimal places, half away from zero.
// A tiny epsilon is added toward the value's sign first so that binary
// floating-point artifacts (e.g. 1.005 stored as 1.00499...) do not
// truncate the half case.
func Round2(v float64) float64 {
	if v == 0 {
		return 0
	}
	return math.Round((v+math.Copysign(1e-9, v))*100) / 100
}

// SumExpenses totals the amounts of active (non-ignored) expenses.
func SumExpenses(expenses []ExpenseItem) float64 {
	var total float64
	for _, e := range expenses {
		if e.IsIgnored {
			continue
		}
		total += e.Amount
	}
	return total
}

// HourlyRate resolves the effective hourly rate for an income config:
// manual override first, then income divided by configured work hours,
// then the 160-hour fallback.
func HourlyRate(config IncomeConfig) float64 {
	if config.IsHourlyManual && config.HourlyRateOverride > 0 {
		return config.HourlyRateOverride
	}
	if config.WorkHoursPerMonth > 0 {
		return config.MonthlyIncome / config.WorkHoursPerMonth
	}
	if config.MonthlyIncome > 0 {
		return config.MonthlyIncome / DefaultWorkHours
	}
	return 0
}

// ComputeBudgetSummary derives the budget summary from an income config
// and the month's expense list.
func ComputeBudgetSummary(config IncomeConfig, expenses []ExpenseItem) BudgetSummary {
	income := config.MonthlyIncome
	totalExpenses := SumExpenses(expenses)
	remaining := math.Max(0, income-totalExpenses)

	var savingsRate float64
	if income > 0 {
		savingsRate = remaining / income * 100
	}

	return BudgetSummary{
		TotalIncome:     income,
		TotalExpenses:   Round2(totalExpenses),
		RemainingIncome: Round2(remaining),
		HourlyRate:      Round2(HourlyRate(config)),
		SavingsRate:     Round2(savingsRate),
	}
}

// RawRemaining is the unclamped, signed income-minus-expenses figure used
// by the month-close savings reconciliation.
func RawRemaining(config IncomeConfig, expenses []ExpenseItem) float64 {
	return config.MonthlyIncome - SumExpenses(expenses)
}

// AnalyzePurchase evaluates a potential purchase against the remaining
// income and hourly rate of the current budget.
func AnalyzePurchase(price, remainingIncome, hourlyRate float64) ValueAnalysis {
	if price < 0 {
		price = 0
	}

	// A non-positive hourly rate degrades to 1 so the time cost stays
	// defined instead of dividing by zero.
	effectiveHourly := hourlyRate
	if effectiveHourly <= 0 {
		effectiveHourly = 1
	}
	minutes := int(math.Round(price / effectiveHourly * 60))

	impact := 100.0
	if remainingIncome > 0 {
		impact = price / remainingIncome * 100
	}

	level := ImpactHigh
	switch {
	case impact <= 5:
		level = ImpactLow
	case impact <= 20:
		level = ImpactConsider
	}

	return ValueAnalysis{
		Cost:              price,
		TimeCostMinutes:   minutes,
		TimeCostFormatted: FormatTimeCost(minutes),
		ImpactPercent:     Round2(impact),
		ImpactLevel:       level,
	}
}

// FormatTimeCost renders a minute count as a human-readable work-time
// span. Durations of a day or more are expressed in 8-hour workdays, not
// calendar days: the figure answers "how long would I have to work".
func FormatTimeCost(totalMinutes int) string {
	const hoursInWorkDay = 8

	if totalMinutes < 60 {
		return fmt.Sprintf("%d minutes", totalMinutes)
	}

	hours := totalMinutes / 60
	mins := totalMinutes % 60

	if hours < 24 {
		if mins > 0 {
			return fmt.Sprintf("%d hours %d minutes", hours, mins)
		}
		return fmt.Sprintf("%d hours", hours)
	}

	days := hours / hoursInWorkDay
	remaining := hours % hoursInWorkDay
	if remaining > 0 {
		return fmt.Sprintf("%d days %d hours", days, remaining)
	}
	return fmt.Sprintf("%d days", days)
}
