package analytics

import (
	"fmt"
	"strconv"
)

// defaultMonthlyExpenses stands in for expenses when none were recorded,
// so the emergency fund factor still has a yardstick.
const defaultMonthlyExpenses = 30000

// HealthInput is the data a health score is computed from.
type HealthInput struct {
	Income   float64
	Expenses float64
	Budget   float64
	Savings  float64
	// Trend is a DetectTrend label; only its direction is used.
	Trend string
	Goals []GoalStatus
}

// HealthFactor is one itemized contribution to the score.
type HealthFactor struct {
	Name        string
	Points      string
	Description string
}

// String renders the factor as "Name: +25".
func (f HealthFactor) String() string {
	return f.Name + ": " + f.Points
}

// HealthReport is a 0-100 financial health score with its grade.
type HealthReport struct {
	Score   int
	Grade   string
	Message string
	Factors []HealthFactor
}

// HealthScore starts at 50 and adds or subtracts points for the savings
// rate, budget adherence, spending trend, emergency fund and goal progress.
func HealthScore(in HealthInput) HealthReport {
	score := 50
	var factors []HealthFactor
	add := func(name string, points int, desc string) {
		score += points
		p := strconv.Itoa(points)
		if points > 0 {
			p = "+" + p
		}
		factors = append(factors, HealthFactor{Name: name, Points: p, Description: desc})
	}

	if in.Income > 0 {
		rate := (in.Income - in.Expenses) / in.Income * 100
		switch {
		case rate >= 30:
			add("Savings Rate", 25, fmt.Sprintf("Excellent! Saving %.0f%%", rate))
		case rate >= 20:
			add("Savings Rate", 20, fmt.Sprintf("Good savings at %.0f%%", rate))
		case rate >= 10:
			add("Savings Rate", 10, fmt.Sprintf("Moderate savings at %.0f%%", rate))
		case rate >= 0:
			add("Savings Rate", 5, fmt.Sprintf("Low savings at %.0f%%", rate))
		default:
			add("Savings Rate", -10, "Spending more than earning!")
		}
	}

	if in.Budget > 0 {
		usage := in.Expenses / in.Budget * 100
		switch {
		case usage <= 80:
			add("Budget", 20, "Well under budget")
		case usage <= 100:
			add("Budget", 10, "Within budget")
		default:
			add("Budget", -15, fmt.Sprintf("Over budget by %.0f%%", usage-100))
		}
	}

	switch TrendDirection(in.Trend) {
	case TrendDecreasing:
		add("Trend", 15, "Spending decreasing - great progress!")
	case TrendStable:
		add("Trend", 10, "Stable spending pattern")
	default:
		add("Trend", -5, "Spending is increasing")
	}

	monthly := in.Expenses
	if monthly <= 0 {
		monthly = defaultMonthlyExpenses
	}
	months := in.Savings / monthly
	switch {
	case months >= 6:
		add("Emergency Fund", 15, fmt.Sprintf("%.1f months of expenses saved", months))
	case months >= 3:
		add("Emergency Fund", 10, fmt.Sprintf("%.1f months of expenses saved", months))
	case months >= 1:
		add("Emergency Fund", 5, fmt.Sprintf("Only %.1f months saved", months))
	default:
		add("Emergency Fund", -5, "Need to build emergency fund")
	}

	var active []GoalStatus
	for _, g := range in.Goals {
		if !g.Completed {
			active = append(active, g)
		}
	}
	if len(active) > 0 {
		var sum float64
		for _, g := range active {
			sum += g.Progress
		}
		switch avg := sum / float64(len(active)); {
		case avg >= 75:
			add("Goals", 10, "Great progress on financial goals")
		case avg >= 50:
			add("Goals", 5, "Making progress on goals")
		default:
			add("Goals", 0, "Goals need attention")
		}
	}

	score = min(max(score, 0), 100)
	r := HealthReport{Score: score, Factors: factors}
	switch {
	case score >= 80:
		r.Grade, r.Message = "A", "🌟 Excellent financial health! Keep up the great work."
	case score >= 60:
		r.Grade, r.Message = "B", "👍 Good financial health with room for improvement."
	case score >= 40:
		r.Grade, r.Message = "C", "⚠️ Fair financial health. Focus on the areas below."
	default:
		r.Grade, r.Message = "D", "🚨 Financial health needs attention. Let's work on improvements."
	}
	return r
}
