package core

import "testing"

func TestComputeBudgetSummary(t *testing.T) {
	cases := []struct {
		name      string
		config    IncomeConfig
		expenses  []ExpenseItem
		income    float64
		total     float64
		remaining float64
		hourly    float64
		rate      float64
	}{
		{
			name:   "standard work month",
			config: IncomeConfig{MonthlyIncome: 3000, WorkHoursPerMonth: 160},
			expenses: []ExpenseItem{
				{Name: "rent", Amount: 1000, Quantity: 1, Type: Responsibility, Priority: MustHave},
				{Name: "food", Amount: 500, Quantity: 1, Type: Burning, Priority: MustHave},
			},
			income: 3000, total: 1500, remaining: 1500, hourly: 18.75, rate: 50,
		},
		{
			name:   "ignored expenses excluded",
			config: IncomeConfig{MonthlyIncome: 1000, WorkHoursPerMonth: 100},
			expenses: []ExpenseItem{
				{Name: "gym", Amount: 100, Quantity: 1, Type: Burning, Priority: Want},
				{Name: "paused", Amount: 900, Quantity: 1, IsIgnored: true, Type: Burning, Priority: Want},
			},
			income: 1000, total: 100, remaining: 900, hourly: 10, rate: 90,
		},
		{
			name:   "remaining clamps at zero",
			config: IncomeConfig{MonthlyIncome: 2000, WorkHoursPerMonth: 160},
			expenses: []ExpenseItem{
				{Name: "everything", Amount: 2500, Quantity: 1, Type: Burning, Priority: MustHave},
			},
			income: 2000, total: 2500, remaining: 0, hourly: 12.5, rate: 0,
		},
		{
			name:   "manual hourly override wins",
			config: IncomeConfig{MonthlyIncome: 3200, WorkHoursPerMonth: 160, HourlyRateOverride: 50, IsHourlyManual: true},
			income: 3200, total: 0, remaining: 3200, hourly: 50, rate: 100,
		},
		{
			name:   "zero work hours falls back to 160",
			config: IncomeConfig{MonthlyIncome: 1600},
			income: 1600, total: 0, remaining: 1600, hourly: 10, rate: 100,
		},
		{
			name:   "zero income",
			config: IncomeConfig{},
			expenses: []ExpenseItem{
				{Name: "debt", Amount: 50, Quantity: 1, Type: Responsibility, Priority: MustHave},
			},
			income: 0, total: 50, remaining: 0, hourly: 0, rate: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeBudgetSummary(tc.config, tc.expenses)
			if got.TotalIncome != tc.income {
				t.Errorf("TotalIncome = %v, want %v", got.TotalIncome, tc.income)
			}
			if got.TotalExpenses != tc.total {
				t.Errorf("TotalExpenses = %v, want %v", got.TotalExpenses, tc.total)
			}
			if got.RemainingIncome != tc.remaining {
				t.Errorf("RemainingIncome = %v, want %v", got.RemainingIncome, tc.remaining)
			}
			if got.HourlyRate != tc.hourly {
				t.Errorf("HourlyRate = %v, want %v", got.HourlyRate, tc.hourly)
			}
			if got.SavingsRate != tc.rate {
				t.Errorf("SavingsRate = %v, want %v", got.SavingsRate, tc.rate)
			}
		})
	}
}

func TestComputeBudgetSummaryNeverNegative(t *testing.T) {
	config := IncomeConfig{MonthlyIncome: 100, WorkHoursPerMonth: 160}
	expenses := []ExpenseItem{
		{Name: "huge", Amount: 1e9, Quantity: 1, Type: Burning, Priority: MustHave},
	}
	got := ComputeBudgetSummary(config, expenses)
	if got.RemainingIncome < 0 {
		t.Fatalf("RemainingIncome = %v, must never be negative", got.RemainingIncome)
	}
}

func TestRawRemainingIsSigned(t *testing.T) {
	config := IncomeConfig{MonthlyIncome: 1000}
	expenses := []ExpenseItem{
		{Name: "over", Amount: 1200, Quantity: 1, Type: Burning, Priority: MustHave},
	}
	if got := RawRemaining(config, expenses); got != -200 {
		t.Fatalf("RawRemaining = %v, want -200", got)
	}
}

func TestAnalyzePurchase(t *testing.T) {
	cases := []struct {
		name      string
		price     float64
		remaining float64
		hourly    float64
		minutes   int
		formatted string
		impact    float64
		level     string
	}{
		{
			name:  "small purchase at 18.75/h",
			price: 5, remaining: 1500, hourly: 18.75,
			minutes: 16, formatted: "16 minutes", impact: 0.33, level: ImpactLow,
		},
		{
			name:  "no money left means full impact",
			price: 50, remaining: 0, hourly: 20,
			minutes: 150, formatted: "2 hours 30 minutes", impact: 100, level: ImpactHigh,
		},
		{
			name:  "boundary five percent is low",
			price: 50, remaining: 1000, hourly: 10,
			minutes: 300, formatted: "5 hours", impact: 5, level: ImpactLow,
		},
		{
			name:  "boundary twenty percent is consider",
			price: 200, remaining: 1000, hourly: 10,
			minutes: 1200, formatted: "20 hours", impact: 20, level: ImpactConsider,
		},
		{
			name:  "above twenty percent is high",
			price: 201, remaining: 1000, hourly: 10,
			minutes: 1206, formatted: "20 hours 6 minutes", impact: 20.1, level: ImpactHigh,
		},
		{
			name:  "zero hourly degrades to one",
			price: 2, remaining: 1000, hourly: 0,
			minutes: 120, formatted: "2 hours", impact: 0.2, level: ImpactLow,
		},
		{
			name:  "negative price clamps to zero",
			price: -10, remaining: 1000, hourly: 10,
			minutes: 0, formatted: "0 minutes", impact: 0, level: ImpactLow,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AnalyzePurchase(tc.price, tc.remaining, tc.hourly)
			if got.TimeCostMinutes != tc.minutes {
				t.Errorf("TimeCostMinutes = %d, want %d", got.TimeCostMinutes, tc.minutes)
			}
			if got.TimeCostFormatted != tc.formatted {
				t.Errorf("TimeCostFormatted = %q, want %q", got.TimeCostFormatted, tc.formatted)
			}
			if got.ImpactPercent != tc.impact {
				t.Errorf("ImpactPercent = %v, want %v", got.ImpactPercent, tc.impact)
			}
			if got.ImpactLevel != tc.level {
				t.Errorf("ImpactLevel = %q, want %q", got.ImpactLevel, tc.level)
			}
		})
	}
}

func TestFormatTimeCost(t *testing.T) {
	cases := []struct {
		minutes int
		want    string
	}{
		{0, "0 minutes"},
		{16, "16 minutes"},
		{59, "59 minutes"},
		{60, "1 hours"},
		{90, "1 hours 30 minutes"},
		{1380, "23 hours"},
		{1440, "3 days"},          // 24h of work = 3 workdays
		{1500, "3 days 1 hours"},  // 25h
		{3840, "8 days"},          // 64h
	}
	for _, tc := range cases {
		if got := FormatTimeCost(tc.minutes); got != tc.want {
			t.Errorf("FormatTimeCost(%d) = %q, want %q", tc.minutes, got, tc.want)
		}
	}
}

func TestRound2(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{1.005, 1.01}, // binary float stores this just below the half
		{1.004, 1.0},
		{-1.005, -1.01},
		{2.675, 2.68},
		{0, 0},
		{18.75, 18.75},
	}
	for _, tc := range cases {
		if got := Round2(tc.in); got != tc.want {
			t.Errorf("Round2(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
