package analytics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
)

// Anomaly thresholds as multiples of the daily and category averages.
const (
	dailySpikeFactor    = 5
	categorySpikeFactor = 3
)

// DetectAnomaly explains why amount is unusual compared with the daily
// average and the category's typical expense. It returns "" when neither
// threshold is crossed.
func DetectAnomaly(amount float64, category string, dailyAvg, categoryAvg float64) string {
	var alerts []string
	if dailyAvg > 0 && amount > dailyAvg*dailySpikeFactor {
		alerts = append(alerts, fmt.Sprintf("🔔 **Unusual Transaction Alert!**\n%s for %s is %.1fx your daily average of %s",
			Rupees(amount), category, amount/dailyAvg, Rupees(dailyAvg)))
	}
	if categoryAvg > 0 && amount > categoryAvg*categorySpikeFactor {
		alerts = append(alerts, fmt.Sprintf("⚠️ This %s expense is %.1fx your typical %s spending of %s",
			category, amount/categoryAvg, category, Rupees(categoryAvg)))
	}
	return strings.Join(alerts, "\n")
}

// Wallet transfer suggestion thresholds.
const (
	lowWallet        = 500
	comfortableTotal = 2000
	maxSuggestion    = 5000
	suggestionShare  = 0.3
)

// SuggestWalletTransfer proposes topping up a low wallet from the total
// stack. ok is false when no transfer is needed or possible.
func SuggestWalletTransfer(wallet, total float64) (amount float64, message string, ok bool) {
	if wallet >= lowWallet || total <= comfortableTotal {
		return 0, "", false
	}
	amount = math.Min(maxSuggestion, total*suggestionShare)
	message = fmt.Sprintf("💡 Your wallet is low (%s). Consider transferring %s from Total Stack.", Rupees(wallet), Rupees(amount))
	return amount, message, true
}

// CategoryAmount is an amount spent in one category.
type CategoryAmount struct {
	Category string
	Amount   float64
}

// WeeklyReport compares this week's expenses with last week's.
type WeeklyReport struct {
	ThisWeek      float64
	LastWeek      float64
	TopCategories []CategoryAmount
}

// WeeklySummary compares the last seven days with the seven before and
// lists the top three categories of this week.
func WeeklySummary(txns []ledger.Transaction, now time.Time) WeeklyReport {
	today := startOfDay(now)
	weekStart := today.AddDate(0, 0, -6)
	lastStart := weekStart.AddDate(0, 0, -7)

	var r WeeklyReport
	byCat := make(map[string]float64)
	for _, t := range txns {
		if !t.IsDebit() {
			continue
		}
		switch {
		case inWindow(t, weekStart):
			r.ThisWeek += amountOf(t)
			byCat[t.CategoryOrOther()] += amountOf(t)
		case between(t, lastStart, weekStart):
			r.LastWeek += amountOf(t)
		}
	}

	r.TopCategories = topCategories(byCat, 3)
	return r
}

// String renders the report as a chat message.
func (r WeeklyReport) String() string {
	var b strings.Builder
	b.WriteString("📊 **Weekly Summary**\n\n")
	fmt.Fprintf(&b, "💰 This week: %s\n", Rupees(r.ThisWeek))
	fmt.Fprintf(&b, "📅 Last week: %s\n\n", Rupees(r.LastWeek))

	switch diff := r.LastWeek - r.ThisWeek; {
	case diff > 0:
		fmt.Fprintf(&b, "🎉 You saved %s compared to last week!\n\n", Rupees(diff))
	case diff < 0:
		fmt.Fprintf(&b, "📈 You spent %s more than last week.\n\n", Rupees(-diff))
	default:
		b.WriteString("➡️ Same spending as last week.\n\n")
	}

	if len(r.TopCategories) > 0 {
		b.WriteString("📂 **Top Categories:**\n")
		for _, c := range r.TopCategories {
			fmt.Fprintf(&b, "  • %s: %s\n", Title(c.Category), Rupees(c.Amount))
		}
	}
	return b.String()
}

// topCategories returns the n largest totals, ties broken by name.
func topCategories(totals map[string]float64, n int) []CategoryAmount {
	out := make([]CategoryAmount, 0, len(totals))
	for cat, amt := range totals {
		out = append(out, CategoryAmount{Category: cat, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Category < out[j].Category
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// TopCategories returns the n categories with the highest expenses in the
// trailing window.
func TopCategories(txns []ledger.Transaction, n, days int, now time.Time) []CategoryAmount {
	return topCategories(CategoryTotals(txns, days, now), n)
}
