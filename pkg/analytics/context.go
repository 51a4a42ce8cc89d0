package analytics

import (
	"sort"
	"strings"

	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
)

// UsualAmounts returns the mean expense per category over the last limit rows.
func UsualAmounts(txns []ledger.Transaction, limit int) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, t := range tail(txns, limit) {
		if t.IsDebit() {
			sums[t.CategoryOrOther()] += amountOf(t)
			counts[t.CategoryOrOther()]++
		}
	}

	out := make(map[string]float64, len(sums))
	for cat, sum := range sums {
		out[cat] = sum / float64(counts[cat])
	}
	return out
}

// LastMerchant returns the most recent non-empty merchant, or "".
func LastMerchant(txns []ledger.Transaction) string {
	for i := len(txns) - 1; i >= 0; i-- {
		if m := strings.TrimSpace(txns[i].Merchant); m != "" {
			return txns[i].Merchant
		}
	}
	return ""
}

// MerchantStat summarizes the expenses at one merchant.
type MerchantStat struct {
	Merchant      string
	Count         int
	AverageAmount float64
	Total         float64
}

// FrequentMerchants returns the merchants with the most expenses. Ties keep
// the order in which merchants first appear.
func FrequentMerchants(txns []ledger.Transaction, limit int) []MerchantStat {
	index := make(map[string]int)
	var out []MerchantStat
	for _, t := range txns {
		if !t.IsDebit() {
			continue
		}
		m := strings.TrimSpace(t.Merchant)
		if m == "" {
			continue
		}
		i, ok := index[m]
		if !ok {
			i = len(out)
			index[m] = i
			out = append(out, MerchantStat{Merchant: m})
		}
		out[i].Count++
		out[i].Total += amountOf(t)
	}

	for i := range out {
		out[i].AverageAmount = out[i].Total / float64(out[i].Count)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
