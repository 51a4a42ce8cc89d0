// Package analytics computes spending statistics, forecasts, goal progress,
// budget status and a health score from ledger history.
//
// Every function is pure: windows are measured against the now argument,
// never the wall clock.
package analytics

import (
	"time"

	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
)

// NoRunout is the days-left value reported when nothing is being spent.
const NoRunout = 999

// startOfDay returns the calendar date of t, read in t's own location, as
// midnight UTC. Row dates carry no zone, so both sides compare as labels.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// windowStart is the first date of a trailing window of days calendar days
// that ends today.
func windowStart(now time.Time, days int) time.Time {
	if days < 1 {
		days = 1
	}
	return startOfDay(now).AddDate(0, 0, -(days - 1))
}

// inWindow reports whether t falls on or after start.
func inWindow(t ledger.Transaction, start time.Time) bool {
	return !startOfDay(t.Date).Before(start)
}

// between reports whether t falls in [start, end).
func between(t ledger.Transaction, start, end time.Time) bool {
	d := startOfDay(t.Date)
	return !d.Before(start) && d.Before(end)
}

func amountOf(t ledger.Transaction) float64 {
	f, _ := t.Amount.Float64()
	return f
}

// debitsSince sums expenses dated on or after start.
func debitsSince(txns []ledger.Transaction, start time.Time) float64 {
	var sum float64
	for _, t := range txns {
		if t.IsDebit() && inWindow(t, start) {
			sum += amountOf(t)
		}
	}
	return sum
}

// daysIn returns the number of days in the month of t.
func daysIn(t time.Time) int {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, -1).Day()
}

// tail returns the last n elements of txns.
func tail(txns []ledger.Transaction, n int) []ledger.Transaction {
	if n >= 0 && len(txns) > n {
		return txns[len(txns)-n:]
	}
	return txns
}
