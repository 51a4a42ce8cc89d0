package analytics

import (
	"sort"

	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
)

// PersonAmount is an amount attributed to one person.
type PersonAmount struct {
	Person string
	Amount float64
}

// LendingSummary aggregates the lending sheet.
type LendingSummary struct {
	TotalLent         float64
	TotalReturned     float64
	Pending           float64
	AverageAmount     float64
	AverageReturnDays float64
	PendingPersons    []PersonAmount
}

// AnalyzeLending summarizes lending records. Totals count full loan amounts
// by status: partially repaid loans appear in neither total.
func AnalyzeLending(records []ledger.LendingRecord) LendingSummary {
	var s LendingSummary
	if len(records) == 0 {
		return s
	}

	var all float64
	var returnDays []float64
	byPerson := make(map[string]float64)
	var people []string

	for _, r := range records {
		amt, _ := r.Amount.Float64()
		all += amt

		switch r.Status {
		case ledger.StatusLent:
			s.TotalLent += amt
			if _, ok := byPerson[r.Person]; !ok {
				people = append(people, r.Person)
			}
			byPerson[r.Person] += amt
		case ledger.StatusReturned:
			s.TotalReturned += amt
			if !r.ReturnDate.IsZero() {
				returnDays = append(returnDays, r.ReturnDate.Sub(r.Date).Hours()/24)
			}
		}
	}

	s.Pending = s.TotalLent - s.TotalReturned
	s.AverageAmount = all / float64(len(records))

	if len(returnDays) > 0 {
		var sum float64
		for _, d := range returnDays {
			sum += d
		}
		s.AverageReturnDays = sum / float64(len(returnDays))
	}

	for _, p := range people {
		if amt := byPerson[p]; amt > 0 {
			s.PendingPersons = append(s.PendingPersons, PersonAmount{Person: p, Amount: amt})
		}
	}
	sort.SliceStable(s.PendingPersons, func(i, j int) bool {
		return s.PendingPersons[i].Amount > s.PendingPersons[j].Amount
	})
	return s
}
