package analytics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
)

// Trend labels. Changes carry a percentage suffix, e.g. "increasing 30%".
const (
	TrendStable     = "stable"
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendNoData     = "Not enough data"
)

// trendThreshold is the change in percent above which a trend is reported.
const trendThreshold = 15

// Spending paces of a month-end forecast.
const (
	PaceVeryHigh = "very high"
	PaceHigh     = "high"
	PaceNormal   = "normal"
	PaceLow      = "low"
)

// Comparison periods.
const (
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

// ErrUnknownPeriod is returned by ComparePeriods for anything but week or month.
var ErrUnknownPeriod = errors.New("unknown comparison period")

// DailyAverage returns the expenses of the trailing window divided by days.
// The divisor is fixed, so quiet days pull the average down.
func DailyAverage(txns []ledger.Transaction, days int, now time.Time) float64 {
	if days <= 0 {
		return 0
	}
	return debitsSince(txns, windowStart(now, days)) / float64(days)
}

// CategoryAverage returns the mean expense amount of category over the
// trailing window.
func CategoryAverage(txns []ledger.Transaction, category string, days int, now time.Time) float64 {
	start := windowStart(now, days)
	var sum float64
	var n int
	for _, t := range txns {
		if t.IsDebit() && t.CategoryOrOther() == category && inWindow(t, start) {
			sum += amountOf(t)
			n++
		}
	}
	return sum / float64(max(n, 1))
}

// CategoryTotals returns the absolute expense total per category.
func CategoryTotals(txns []ledger.Transaction, days int, now time.Time) map[string]float64 {
	start := windowStart(now, days)
	totals := make(map[string]float64)
	for _, t := range txns {
		if t.IsDebit() && inWindow(t, start) {
			totals[t.CategoryOrOther()] += amountOf(t)
		}
	}
	return totals
}

// CategoryBreakdown returns each category's share of expenses in percent.
// The map is empty when nothing was spent.
func CategoryBreakdown(txns []ledger.Transaction, days int, now time.Time) map[string]float64 {
	totals := CategoryTotals(txns, days, now)

	var sum float64
	for _, v := range totals {
		sum += v
	}
	if sum == 0 {
		return map[string]float64{}
	}

	shares := make(map[string]float64, len(totals))
	for cat, v := range totals {
		shares[cat] = v / sum * 100
	}
	return shares
}

// WeeklyTotals returns the expense total of each of the last weeks
// seven-day buckets, oldest first. The newest bucket ends today. An empty
// category matches every row.
func WeeklyTotals(txns []ledger.Transaction, category string, weeks int, now time.Time) []float64 {
	tomorrow := startOfDay(now).AddDate(0, 0, 1)
	totals := make([]float64, weeks)
	for k := range weeks {
		end := tomorrow.AddDate(0, 0, -7*k)
		start := end.AddDate(0, 0, -7)
		for _, t := range txns {
			if !t.IsDebit() || !between(t, start, end) {
				continue
			}
			if category != "" && t.CategoryOrOther() != category {
				continue
			}
			totals[weeks-1-k] += amountOf(t)
		}
	}
	return totals
}

// DetectTrend compares the two most recent weekly buckets with the two
// oldest ones.
func DetectTrend(txns []ledger.Transaction, category string, weeks int, now time.Time) string {
	if len(txns) < 2 {
		return TrendNoData
	}
	if weeks < 2 {
		return TrendStable
	}
	return TrendOf(WeeklyTotals(txns, category, weeks, now))
}

// TrendOf classifies weekly totals given oldest first.
func TrendOf(weekly []float64) string {
	if len(weekly) < 2 {
		return TrendStable
	}

	n := len(weekly)
	recent := (weekly[n-1] + weekly[n-2]) / 2
	older := (weekly[0] + weekly[1]) / 2

	if older == 0 {
		if recent > 0 {
			return TrendIncreasing
		}
		return TrendStable
	}

	change := (recent - older) / older * 100
	switch {
	case change > trendThreshold:
		return fmt.Sprintf("%s %.0f%%", TrendIncreasing, math.Abs(change))
	case change < -trendThreshold:
		return fmt.Sprintf("%s %.0f%%", TrendDecreasing, math.Abs(change))
	default:
		return TrendStable
	}
}

// TrendDirection strips the percentage from a trend label. "Not enough
// data" counts as stable.
func TrendDirection(trend string) string {
	switch {
	case strings.HasPrefix(trend, TrendIncreasing):
		return TrendIncreasing
	case strings.HasPrefix(trend, TrendDecreasing):
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// Forecast is a projection of this month's expenses.
type Forecast struct {
	Amount    float64
	DailyRate float64
	Pace      string
}

// ForecastMonthEnd projects this month's expenses from the daily rate so far.
func ForecastMonthEnd(txns []ledger.Transaction, now time.Time) Forecast {
	today := startOfDay(now)
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	return ForecastFromTotals(debitsSince(txns, monthStart), today.Day(), daysIn(today))
}

// ForecastFromTotals projects monthExpenses spent over daysElapsed days
// (today included) onto a month of daysInMonth days.
func ForecastFromTotals(monthExpenses float64, daysElapsed, daysInMonth int) Forecast {
	var rate float64
	if daysElapsed > 0 {
		rate = monthExpenses / float64(daysElapsed)
	}

	pace := PaceNormal
	switch {
	case rate > 2000:
		pace = PaceVeryHigh
	case rate > 1000:
		pace = PaceHigh
	case rate < 300:
		pace = PaceLow
	}

	return Forecast{
		Amount:    rate * float64(daysInMonth),
		DailyRate: rate,
		Pace:      pace,
	}
}

// BurnRate returns the daily spend from the wallet over the trailing window
// and how many days balance lasts at that rate. Days left is NoRunout when
// nothing was spent.
func BurnRate(txns []ledger.Transaction, balance float64, days int, now time.Time) (float64, int) {
	if days <= 0 {
		return 0, NoRunout
	}

	start := windowStart(now, days)
	var spent float64
	for _, t := range txns {
		if t.IsDebit() && t.WalletType == string(ledger.WalletWallet) && inWindow(t, start) {
			spent += amountOf(t)
		}
	}

	burn := spent / float64(days)
	if burn <= 0 {
		return 0, NoRunout
	}
	return burn, int(math.Floor(balance / burn))
}

// Runout severities.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityModerate = "moderate"
	SeverityGood     = "good"
)

// Runout predicts when a balance is used up.
type Runout struct {
	DaysLeft  int
	Date      time.Time // zero when nothing is being spent
	DailyBurn float64
	Severity  string
	Message   string
}

// PredictRunout predicts when balance runs out at the burn rate of the
// trailing days window.
func PredictRunout(txns []ledger.Transaction, balance float64, days int, now time.Time) Runout {
	burn, _ := BurnRate(txns, balance, days, now)
	return RunoutFromBurn(balance, burn, now)
}

// RunoutFromBurn predicts when balance runs out at a daily burn rate.
func RunoutFromBurn(balance, burn float64, now time.Time) Runout {
	if burn <= 0 {
		return Runout{
			DaysLeft: NoRunout,
			Severity: SeverityGood,
			Message:  "Your spending rate is very low. Great job saving!",
		}
	}

	left := int(math.Floor(balance / burn))
	date := startOfDay(now).AddDate(0, 0, left)
	r := Runout{DaysLeft: left, Date: date, DailyBurn: burn}

	day := date.Format("Jan 02")
	switch {
	case left < 7:
		r.Severity = SeverityCritical
		r.Message = fmt.Sprintf("⚠️ **Critical Alert!** You'll run out of money in %d days (by %s)", left, day)
	case left < 14:
		r.Severity = SeverityWarning
		r.Message = fmt.Sprintf("🔔 **Warning:** At current pace, money runs out by %s (%d days)", day, left)
	case left < 30:
		r.Severity = SeverityModerate
		r.Message = fmt.Sprintf("📊 At current spending, you have about %d days of runway (until %s)", left, day)
	default:
		r.Severity = SeverityGood
		r.Message = fmt.Sprintf("✅ Good pace! You have %d+ days of runway", left)
	}
	return r
}

// frequentWindow is how many trailing rows FrequentTransactions looks at.
const frequentWindow = 100

// FrequentTransaction is a repeated expense.
type FrequentTransaction struct {
	Description string
	Category    string
	Amount      float64
	Count       int
}

// FrequentTransactions finds expenses repeated with the same description,
// category and amount among the last 100 rows, most repeated first.
func FrequentTransactions(txns []ledger.Transaction, limit int) []FrequentTransaction {
	var order []string
	seen := make(map[string]*FrequentTransaction)

	for _, t := range tail(txns, frequentWindow) {
		if !t.IsDebit() {
			continue
		}
		desc := strings.ToLower(t.Description)
		key := desc + "_" + t.CategoryOrOther() + "_" + t.Amount.String()
		if ft, ok := seen[key]; ok {
			ft.Count++
			continue
		}
		seen[key] = &FrequentTransaction{
			Description: desc,
			Category:    t.CategoryOrOther(),
			Amount:      amountOf(t),
			Count:       1,
		}
		order = append(order, key)
	}

	var out []FrequentTransaction
	for _, key := range order {
		if ft := seen[key]; ft.Count >= 2 {
			out = append(out, *ft)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// PeriodComparison compares expenses of the current and previous period.
type PeriodComparison struct {
	Period             string
	CurrentTotal       float64
	PreviousTotal      float64
	Difference         float64
	ChangePercent      float64
	CurrentByCategory  map[string]float64
	PreviousByCategory map[string]float64
	Saved              bool
}

// ComparePeriods compares this week (the last seven days) with the seven
// before, or this calendar month with the previous one.
func ComparePeriods(txns []ledger.Transaction, period string, now time.Time) (PeriodComparison, error) {
	today := startOfDay(now)

	var curStart, prevStart time.Time
	switch period {
	case PeriodWeek:
		curStart = today.AddDate(0, 0, -6)
		prevStart = curStart.AddDate(0, 0, -7)
	case PeriodMonth:
		curStart = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		// AddDate normalizes January back into December of the previous year
		prevStart = curStart.AddDate(0, -1, 0)
	default:
		return PeriodComparison{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, period)
	}

	c := PeriodComparison{
		Period:             period,
		CurrentByCategory:  map[string]float64{},
		PreviousByCategory: map[string]float64{},
	}
	for _, t := range txns {
		if !t.IsDebit() {
			continue
		}
		amt := amountOf(t)
		switch {
		case inWindow(t, curStart):
			c.CurrentTotal += amt
			c.CurrentByCategory[t.CategoryOrOther()] += amt
		case between(t, prevStart, curStart):
			c.PreviousTotal += amt
			c.PreviousByCategory[t.CategoryOrOther()] += amt
		}
	}

	c.Difference = c.CurrentTotal - c.PreviousTotal
	if c.PreviousTotal > 0 {
		c.ChangePercent = c.Difference / c.PreviousTotal * 100
	}
	c.Saved = c.Difference < 0
	return c, nil
}

// IncomeExpense summarizes income against expenses over a window.
type IncomeExpense struct {
	Income      float64
	Expenses    float64
	Savings     float64
	SavingsRate float64
	PeriodDays  int
}

// IncomeExpenseSummary totals income and expenses of the trailing window.
// The savings rate is 0 without income.
func IncomeExpenseSummary(txns []ledger.Transaction, days int, now time.Time) IncomeExpense {
	start := windowStart(now, days)
	s := IncomeExpense{PeriodDays: days}
	for _, t := range txns {
		if !inWindow(t, start) {
			continue
		}
		switch {
		case t.IsCredit():
			s.Income += amountOf(t)
		case t.IsDebit():
			s.Expenses += amountOf(t)
		}
	}

	s.Savings = s.Income - s.Expenses
	if s.Income > 0 {
		s.SavingsRate = s.Savings / s.Income * 100
	}
	return s
}
