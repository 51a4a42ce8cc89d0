package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
)

// Budget statuses, in increasing usage.
const (
	BudgetGood     = "good"
	BudgetModerate = "moderate"
	BudgetWarning  = "warning"
	BudgetCritical = "critical"
	BudgetExceeded = "exceeded"
	BudgetNone     = "no_budget"
)

// BudgetBand classifies a budget usage percentage. Both the single budget
// alert and the per-category report use it.
func BudgetBand(percentage float64) string {
	switch {
	case percentage >= 100:
		return BudgetExceeded
	case percentage >= 90:
		return BudgetCritical
	case percentage >= 80:
		return BudgetWarning
	case percentage >= 50:
		return BudgetModerate
	default:
		return BudgetGood
	}
}

// BudgetReport is the status of spending against one budget.
type BudgetReport struct {
	Status     string
	Percentage float64
	Spent      float64
	Budget     float64
	Remaining  float64
	Message    string
}

// BudgetStatus checks spent against budget for a period ("monthly",
// "weekly" or "daily").
func BudgetStatus(spent, budget float64, period string) BudgetReport {
	if budget <= 0 {
		return BudgetReport{Status: BudgetNone, Spent: spent, Message: "No budget set"}
	}

	r := BudgetReport{
		Percentage: spent / budget * 100,
		Spent:      spent,
		Budget:     budget,
		Remaining:  budget - spent,
	}
	r.Status = BudgetBand(r.Percentage)

	switch r.Status {
	case BudgetExceeded:
		r.Message = fmt.Sprintf("🚨 **Budget Exceeded!** You've spent %s against a %s %s budget (+%s over)",
			Rupees(spent), Rupees(budget), period, Rupees(math.Abs(r.Remaining)))
	case BudgetCritical:
		r.Message = fmt.Sprintf("⚠️ **Alert:** You're at %.0f%% of your %s budget. Only %s left!",
			r.Percentage, period, Rupees(r.Remaining))
	case BudgetWarning:
		r.Message = fmt.Sprintf("🔔 Heads up! You've used %.0f%% of your %s budget. %s remaining.",
			r.Percentage, period, Rupees(r.Remaining))
	case BudgetModerate:
		r.Message = fmt.Sprintf("📊 You're at %.0f%% of budget. %s left for the %s.",
			r.Percentage, Rupees(r.Remaining), periodNoun(period))
	default:
		r.Message = fmt.Sprintf("✅ Great! Only %.0f%% of budget used. %s available.",
			r.Percentage, Rupees(r.Remaining))
	}
	return r
}

func periodNoun(period string) string {
	switch period {
	case "weekly":
		return "week"
	case "daily":
		return "day"
	default:
		return "month"
	}
}

// CategoryBudget is the status of one category budget.
type CategoryBudget struct {
	Budget     float64
	Spent      float64
	Remaining  float64
	Percentage float64
	Status     string
}

// BudgetAnalysis reports every category budget and the overall totals.
type BudgetAnalysis struct {
	Categories        map[string]CategoryBudget
	TotalBudget       float64
	TotalSpent        float64
	TotalRemaining    float64
	OverallPercentage float64
}

// AnalyzeBudgets compares expenses of the trailing window against each
// category budget. TotalSpent covers every category, budgeted or not.
func AnalyzeBudgets(txns []ledger.Transaction, budgets map[string]float64, days int, now time.Time) BudgetAnalysis {
	spending := CategoryTotals(txns, days, now)

	a := BudgetAnalysis{Categories: make(map[string]CategoryBudget, len(budgets))}
	for _, v := range spending {
		a.TotalSpent += v
	}

	for cat, budget := range budgets {
		a.TotalBudget += budget

		spent := spending[cat]
		cb := CategoryBudget{Budget: budget, Spent: spent, Remaining: budget - spent}
		if budget > 0 {
			cb.Percentage = spent / budget * 100
		}
		cb.Status = BudgetBand(cb.Percentage)
		a.Categories[cat] = cb
	}

	a.TotalRemaining = a.TotalBudget - a.TotalSpent
	if a.TotalBudget > 0 {
		a.OverallPercentage = a.TotalSpent / a.TotalBudget * 100
	}
	return a
}
