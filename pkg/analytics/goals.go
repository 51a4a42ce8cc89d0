package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
	"github.com/shunichi-ikebuchi/paylog/pkg/prefs"
)

// GoalStatus is the computed progress of one goal.
type GoalStatus struct {
	ID          string
	Description string
	Type        string
	Target      float64
	Current     float64
	Progress    float64 // percent, capped at 100
	Remaining   float64
	HasDeadline bool
	// DaysRemaining is only meaningful when HasDeadline is set.
	DaysRemaining int
	OnTrack       bool
	Completed     bool
}

// GoalProgress computes progress for each goal with a positive target.
//
// Savings goals measure the caller's current savings. Spending-limit goals
// measure every expense in txns, not only those of the goal's period.
// Other goal types use the goal's own recorded progress.
func GoalProgress(goals []prefs.Goal, savings float64, txns []ledger.Transaction, now time.Time) []GoalStatus {
	var out []GoalStatus
	for _, g := range goals {
		if g.Target <= 0 {
			continue
		}

		var current float64
		switch g.Type {
		case prefs.GoalSavings:
			current = savings
		case prefs.GoalSpendingLimit:
			for _, t := range txns {
				if t.IsDebit() {
					current += amountOf(t)
				}
			}
		default:
			current = g.Current
		}

		progress := current / g.Target * 100
		s := GoalStatus{
			ID:          g.ID,
			Description: g.Description,
			Type:        g.Type,
			Target:      g.Target,
			Current:     current,
			Progress:    math.Min(progress, 100),
			Remaining:   math.Max(g.Target-current, 0),
			OnTrack:     true,
			Completed:   progress >= 100,
		}

		if deadline, err := time.Parse(time.DateOnly, g.Deadline); err == nil {
			s.HasDeadline = true
			s.DaysRemaining = int(deadline.Sub(startOfDay(now)).Hours() / 24)
			if g.Type == prefs.GoalSavings && s.DaysRemaining > 0 && s.DaysRemaining < 30 {
				s.OnTrack = progress >= 100-float64(s.DaysRemaining)/30*100
			}
		}

		out = append(out, s)
	}
	return out
}

// SuggestDailySavings returns what must be saved per day to reach target
// in days, or 0 when the goal is met or the deadline has passed.
func SuggestDailySavings(target, current float64, days int) float64 {
	if days <= 0 {
		return 0
	}
	remaining := target - current
	if remaining <= 0 {
		return 0
	}
	return remaining / float64(days)
}

// GoalNotifications returns a progress message for each active goal past
// a milestone (50, 75, 90 or 100 percent). Goals without recorded progress
// are measured against savings.
func GoalNotifications(goals []prefs.Goal, savings float64) []string {
	var out []string
	for _, g := range goals {
		if g.Completed || g.Target <= 0 {
			continue
		}

		current := g.Current
		if current == 0 {
			current = savings
		}
		progress := current / g.Target * 100
		remaining := g.Target - current

		desc := g.Description
		if desc == "" {
			desc = "Savings Goal"
		}

		switch {
		case progress >= 100:
			out = append(out, fmt.Sprintf("🎉 **Goal Achieved!** You've reached your %s goal of %s!", desc, Rupees(g.Target)))
		case progress >= 90:
			out = append(out, fmt.Sprintf("🔥 Almost there! Only %s more to your %s goal!", Rupees(remaining), desc))
		case progress >= 75:
			out = append(out, fmt.Sprintf("💪 Great progress! %.0f%% towards your %s goal. %s to go!", progress, desc, Rupees(remaining)))
		case progress >= 50:
			out = append(out, fmt.Sprintf("📊 Halfway there! %.0f%% to your %s goal of %s", progress, desc, Rupees(g.Target)))
		}
	}
	return out
}
