package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shunichi-ikebuchi/paylog/pkg/analytics"
	"github.com/shunichi-ikebuchi/paylog/pkg/interpreter"
	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
	"github.com/shunichi-ikebuchi/paylog/pkg/prefs"
)

const replyNoData = "📊 No data yet. Start tracking expenses!"

const separator = "━━━━━━━━━━━━━━━━━━━━━"

var historyDays = map[string]int{"day": 1, "week": 7, "month": 30, "year": 365}

// dayWindow returns the first day of a trailing window of days that ends
// today on the clock's own calendar.
func dayWindow(now time.Time, days int) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))
}

func (b *Bot) cmdReports(context.Context, *user, []string) (string, error) {
	return "📊 **Transaction Reports**\n\n" +
		"📅 /history day, /history week, /history month, /history year\n" +
		"📈 /trends - category trends over 4 weeks\n" +
		"📊 /weekly - this week against last week\n" +
		"🔁 /compare week, /compare month", nil
}

func (b *Bot) cmdHistory(ctx context.Context, _ *user, args []string) (string, error) {
	period := "month"
	if len(args) > 0 {
		period = strings.ToLower(args[0])
	}
	days, ok := historyDays[period]
	if !ok {
		return "❌ Use /history day, week, month or year", nil
	}

	txns, err := b.engine.Transactions(ctx)
	if err != nil {
		return "", err
	}

	start := dayWindow(b.now(), days)
	var recent []ledger.Transaction
	for _, t := range txns {
		if !t.Date.Before(start) {
			recent = append(recent, t)
		}
	}
	if len(recent) == 0 {
		return fmt.Sprintf("No transactions in the last %s.", period), nil
	}
	if len(recent) > 15 {
		recent = recent[len(recent)-15:]
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "📊 **Transaction History (%s):**\n\n", strings.ToUpper(period))
	for _, t := range recent {
		fmt.Fprintf(&msg, "📅 %s\n💰 %s %s - %s\n", ledger.FormatDate(t.Date), analytics.Title(string(t.Type)), moneyDec(t.Amount), t.Description)
		if t.Merchant != "" {
			fmt.Fprintf(&msg, "🏪 %s\n", t.Merchant)
		}
		msg.WriteString("\n")
	}
	return msg.String(), nil
}

func (b *Bot) cmdTrends(ctx context.Context, _ *user, _ []string) (string, error) {
	txns, err := b.engine.Transactions(ctx)
	if err != nil {
		return "", err
	}

	seen := make(map[string]bool)
	var cats []string
	for _, t := range txns {
		if c := t.CategoryOrOther(); t.IsDebit() && !seen[c] {
			seen[c] = true
			cats = append(cats, c)
		}
	}
	if len(cats) == 0 {
		return replyNoData, nil
	}
	sort.Strings(cats)

	now := b.now()
	var msg strings.Builder
	msg.WriteString("📈 **Spending Trends (4 weeks):**\n\n")
	for _, c := range cats[:min(len(cats), 5)] {
		fmt.Fprintf(&msg, "• %s: %s\n", c, analytics.DetectTrend(txns, c, 4, now))
	}
	return msg.String(), nil
}

func (b *Bot) cmdWeekly(ctx context.Context, _ *user, _ []string) (string, error) {
	txns, err := b.engine.Transactions(ctx)
	if err != nil {
		return "", err
	}
	return analytics.WeeklySummary(txns, b.now()).String(), nil
}

func (b *Bot) cmdSummary(ctx context.Context, _ *user, _ []string) (string, error) {
	txns, err := b.engine.Transactions(ctx)
	if err != nil {
		return "", err
	}
	if len(txns) == 0 {
		return "No data yet.", nil
	}
	lending, err := b.engine.Lending(ctx)
	if err != nil {
		return "", err
	}
	balances, err := b.engine.Balances(ctx)
	if err != nil {
		return "", err
	}

	now := b.now()
	total, wallet := balances.Total.InexactFloat64(), balances.Wallet.InexactFloat64()
	month := analytics.IncomeExpenseSummary(txns, 30, now)
	loans := analytics.AnalyzeLending(lending)

	runway := "✅ You have a healthy runway"
	if r := analytics.PredictRunout(txns, wallet, 30, now); r.DaysLeft < analytics.NoRunout {
		runway = r.Message
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "📊 **FINANCIAL SUMMARY**\n%s\n", separator)
	fmt.Fprintf(&msg, "💰 **Current Balances:**\n   • Total Stack: %s\n   • Wallet: %s\n   • Combined: %s\n\n",
		money(total), money(wallet), money(total+wallet))
	fmt.Fprintf(&msg, "📈 **This Month:**\n   • Income: %s\n   • Expenses: %s\n   • Savings: %s\n   • Savings Rate: %.1f%%\n\n",
		money(month.Income), money(month.Expenses), money(month.Savings), month.SavingsRate)
	fmt.Fprintf(&msg, "🤝 **Lending:**\n   • Total Lent: %s\n   • Pending: %s\n\n",
		money(loans.TotalLent), money(loans.Pending))
	fmt.Fprintf(&msg, "⏳ **Runway:**\n   %s\n%s", runway, separator)
	return msg.String(), nil
}

func (b *Bot) cmdCompare(ctx context.Context, _ *user, args []string) (string, error) {
	period := analytics.PeriodWeek
	if len(args) > 0 {
		period = strings.ToLower(args[0])
	}

	txns, err := b.engine.Transactions(ctx)
	if err != nil {
		return "", err
	}
	c, err := analytics.ComparePeriods(txns, period, b.now())
	if err != nil {
		return "❌ Use /compare week or /compare month", nil
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "🔁 **This %s vs last %s**\n\n", period, period)
	fmt.Fprintf(&msg, "💰 This %s: %s\n📅 Last %s: %s\n\n", period, money(c.CurrentTotal), period, money(c.PreviousTotal))
	switch {
	case c.Saved:
		fmt.Fprintf(&msg, "🎉 Saved %s vs last %s!", analytics.Rupees(-c.Difference), period)
	case c.Difference > 0:
		fmt.Fprintf(&msg, "📈 Spent %s more than last %s", analytics.Rupees(c.Difference), period)
	default:
		msg.WriteString("➡️ Same spending as last " + period)
	}
	if c.PreviousTotal > 0 {
		fmt.Fprintf(&msg, " (%+.0f%%)", c.ChangePercent)
	}
	return msg.String(), nil
}

func (b *Bot) cmdInsights(ctx context.Context, _ *user, _ []string) (string, error) {
	txns, err := b.engine.Transactions(ctx)
	if err != nil {
		return "", err
	}
	if len(txns) == 0 {
		return replyNoData, nil
	}

	now := b.now()
	recent := txns[max(len(txns)-50, 0):]
	lines := make([]string, len(recent))
	for i, t := range recent {
		lines[i] = fmt.Sprintf("%s: ₹%s - %s (%s)", ledger.FormatDate(t.Date), t.Amount.String(), t.Description, t.Category)
	}
	insights := b.interp.SpendingInsights(ctx, strings.Join(lines, "\n"), "month")

	comparison, _ := analytics.ComparePeriods(txns, analytics.PeriodWeek, now)
	forecast := analytics.ForecastMonthEnd(txns, now)

	var msg strings.Builder
	msg.WriteString("💡 **AI Insights**\n\n📊 **Quick Stats:**\n")
	fmt.Fprintf(&msg, "• Daily average: %s\n", money(analytics.DailyAverage(txns, 30, now)))
	fmt.Fprintf(&msg, "• Month forecast: %s (%s pace)\n", money(forecast.Amount), forecast.Pace)
	if comparison.Saved {
		fmt.Fprintf(&msg, "• 🎉 Saved %s vs last week!\n\n", analytics.Rupees(-comparison.Difference))
	} else {
		fmt.Fprintf(&msg, "• 📈 Spent %s more than last week\n\n", analytics.Rupees(comparison.Difference))
	}

	if breakdown := analytics.CategoryBreakdown(txns, 30, now); len(breakdown) > 0 {
		msg.WriteString("📂 **Category Breakdown:**\n")
		for _, c := range sortedShares(breakdown, 5) {
			fmt.Fprintf(&msg, "• %s: %.1f%%\n", c.Category, c.Amount)
		}
		msg.WriteString("\n")
	}

	msg.WriteString("🤖 **AI Analysis:**\n" + insights)
	return msg.String(), nil
}

// sortedShares returns the n largest values, ties broken by name.
func sortedShares(m map[string]float64, n int) []analytics.CategoryAmount {
	out := make([]analytics.CategoryAmount, 0, len(m))
	for k, v := range m {
		out = append(out, analytics.CategoryAmount{Category: k, Amount: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Category < out[j].Category
	})
	return out[:min(len(out), n)]
}

func (b *Bot) cmdAdvice(ctx context.Context, u *user, _ []string) (string, error) {
	txns, err := b.engine.Transactions(ctx)
	if err != nil {
		return "", err
	}
	balances, err := b.engine.Balances(ctx)
	if err != nil {
		return "", err
	}

	now := b.now()
	month := analytics.IncomeExpenseSummary(txns, 30, now)
	income := month.Income
	if income == 0 {
		income = u.prefs.Income().Monthly
	}

	var top []string
	for _, c := range analytics.TopCategories(txns, 3, 30, now) {
		top = append(top, c.Category)
	}
	var goals []string
	for _, g := range u.prefs.ActiveGoals() {
		goals = append(goals, orDefault(g.Description, g.Type))
	}

	advice := b.interp.FinancialAdvice(ctx, interpreter.AdviceInput{
		Income:        income,
		Expenses:      month.Expenses,
		Savings:       balances.Total.Add(balances.Wallet).InexactFloat64(),
		TopCategories: top,
		Trend:         analytics.DetectTrend(txns, "", 4, now),
		Goals:         goals,
	})
	return "🧭 **Personal Advice**\n\n" + advice, nil
}

func (b *Bot) cmdCuts(ctx context.Context, _ *user, args []string) (string, error) {
	var target float64
	if len(args) > 0 {
		amount, ok := parseAmount(args[0])
		if !ok {
			return replyInvalidNumber, nil
		}
		target = amount.InexactFloat64()
	}

	txns, err := b.engine.Transactions(ctx)
	if err != nil {
		return "", err
	}
	totals := analytics.CategoryTotals(txns, 30, b.now())
	if len(totals) == 0 {
		return replyNoData, nil
	}
	return "✂️ **Where to Cut Back**\n\n" + b.interp.BudgetCuts(ctx, totals, target), nil
}

func (b *Bot) cmdHealth(ctx context.Context, u *user, _ []string) (string, error) {
	txns, err := b.engine.Transactions(ctx)
	if err != nil {
		return "", err
	}
	balances, err := b.engine.Balances(ctx)
	if err != nil {
		return "", err
	}

	now := b.now()
	savings := balances.Total.Add(balances.Wallet).InexactFloat64()
	month := analytics.IncomeExpenseSummary(txns, 30, now)
	income := month.Income
	if income == 0 {
		income = u.prefs.Income().Monthly
	}

	report := analytics.HealthScore(analytics.HealthInput{
		Income:   income,
		Expenses: month.Expenses,
		Budget:   u.prefs.TotalBudget(prefs.PeriodMonthly),
		Savings:  savings,
		Trend:    analytics.DetectTrend(txns, "", 4, now),
		Goals:    analytics.GoalProgress(u.prefs.ActiveGoals(), savings, txns, now),
	})

	factors := make([]string, len(report.Factors))
	for i, f := range report.Factors {
		factors[i] = f.String()
	}
	if err := u.prefs.UpdateHealthScore(ctx, report.Score, factors); err != nil {
		return "", err
	}

	trend := u.prefs.HealthTrend()
	trendEmoji := "➡️"
	switch trend {
	case "improving":
		trendEmoji = "📈"
	case "declining":
		trendEmoji = "📉"
	}

	var msg strings.Builder
	msg.WriteString("🏥 **Financial Health Report**\n\n")
	fmt.Fprintf(&msg, "📊 **Score: %d/100** (Grade: %s)\n", report.Score, report.Grade)
	fmt.Fprintf(&msg, "%s Trend: %s\n\n", trendEmoji, analytics.Title(trend))
	fmt.Fprintf(&msg, "%s\n\n📋 **Breakdown:**\n", report.Message)
	for _, f := range report.Factors {
		emoji := "➡️"
		switch {
		case strings.HasPrefix(f.Points, "+"):
			emoji = "✅"
		case strings.HasPrefix(f.Points, "-"):
			emoji = "❌"
		}
		fmt.Fprintf(&msg, "%s %s: %s - %s\n", emoji, f.Name, f.Points, f.Description)
	}
	return msg.String(), nil
}

func (b *Bot) cmdGoals(ctx context.Context, u *user, _ []string) (string, error) {
	goals := u.prefs.ActiveGoals()
	if len(goals) == 0 {
		return "🎯 **Your Goals**\n\nNo goals set yet.\n\n" +
			"💡 Set goals to track savings, spending limits, or financial targets! Use /goal to add one.", nil
	}

	txns, err := b.engine.Transactions(ctx)
	if err != nil {
		return "", err
	}
	balances, err := b.engine.Balances(ctx)
	if err != nil {
		return "", err
	}
	savings := balances.Total.Add(balances.Wallet).InexactFloat64()

	progress := analytics.GoalProgress(goals, savings, txns, b.now())

	var msg strings.Builder
	msg.WriteString("🎯 **Your Active Goals:**\n\n")
	for _, g := range progress[:min(len(progress), 5)] {
		emoji := "📊"
		switch {
		case g.Completed:
			emoji = "✅"
		case g.Progress >= 75:
			emoji = "🔥"
		}
		fmt.Fprintf(&msg, "%s **%s**\n", emoji, orDefault(g.Description, g.Type))
		fmt.Fprintf(&msg, "   [%s] %.0f%%\n", progressBar(g.Progress), g.Progress)
		fmt.Fprintf(&msg, "   %s / %s\n", analytics.Rupees(g.Current), analytics.Rupees(g.Target))
		if g.HasDeadline && g.DaysRemaining > 0 {
			fmt.Fprintf(&msg, "   ⏳ %d days left\n", g.DaysRemaining)
			if daily := analytics.SuggestDailySavings(g.Target, g.Current, g.DaysRemaining); daily > 0 && g.Type == prefs.GoalSavings {
				fmt.Fprintf(&msg, "   💡 Save %s/day to make it\n", analytics.Rupees(daily))
			}
		}
		msg.WriteString("\n")
	}

	if u.prefs.AlertSettings().GoalReminders {
		if notes := analytics.GoalNotifications(goals, savings); len(notes) > 0 {
			msg.WriteString("🔔 **Updates:**\n")
			for _, n := range notes[:min(len(notes), 2)] {
				msg.WriteString(n + "\n")
			}
		}
	}
	msg.WriteString("\n➕ /goal to add a new goal")
	return msg.String(), nil
}

func (b *Bot) cmdLending(ctx context.Context, _ *user, _ []string) (string, error) {
	records, err := b.engine.Lending(ctx)
	if err != nil {
		return "", err
	}
	stats := analytics.AnalyzeLending(records)

	recent := records[max(len(records)-20, 0):]
	lines := make([]string, len(recent))
	for i, r := range recent {
		lines[i] = fmt.Sprintf("%s: ₹%s to %s (%s)", ledger.FormatDate(r.Date), r.Amount.String(), r.Person, r.Status)
	}
	analysis := b.interp.LendingInsights(ctx, strings.Join(lines, "\n"))

	var msg strings.Builder
	msg.WriteString("🤝 **Lending Analytics**\n\n📊 **Statistics:**\n")
	fmt.Fprintf(&msg, "• Total Lent: %s\n• Total Returned: %s\n• Pending: %s\n• Avg Amount: %s\n• Avg Return Time: %.0f days\n\n",
		money(stats.TotalLent), money(stats.TotalReturned), money(stats.Pending), money(stats.AverageAmount), stats.AverageReturnDays)
	msg.WriteString("👥 **Pending from:**\n")
	for _, p := range stats.PendingPersons[:min(len(stats.PendingPersons), 5)] {
		fmt.Fprintf(&msg, "• %s: %s\n", p.Person, money(p.Amount))
	}
	fmt.Fprintf(&msg, "\n🤖 **AI Insights:**\n%s\n\n💡 /lend, /repay or /reminders", analysis)
	return msg.String(), nil
}

func (b *Bot) cmdReminders(ctx context.Context, _ *user, _ []string) (string, error) {
	records, err := b.engine.Lending(ctx)
	if err != nil {
		return "", err
	}

	today := dayWindow(b.now(), 1)
	var msg strings.Builder
	for _, r := range records {
		if !r.Status.Outstanding() {
			continue
		}
		if msg.Len() == 0 {
			msg.WriteString("⏰ **Pending Loan Reminders:**\n\n")
		}

		daysAgo := int(today.Sub(r.Date).Hours() / 24)
		emoji := "📌"
		switch {
		case daysAgo > 30:
			emoji = "🔴"
		case daysAgo > 14:
			emoji = "⚠️"
		}

		fmt.Fprintf(&msg, "%s **%s**\n   Amount: %s", emoji, r.Person, moneyDec(r.Remaining))
		if r.Status == ledger.StatusPartial {
			fmt.Fprintf(&msg, " (partial - originally %s)", analytics.Rupees(r.Amount.InexactFloat64()))
		}
		fmt.Fprintf(&msg, "\n   Days ago: %d\n   Note: %s\n\n", daysAgo, r.Description)
	}

	if msg.Len() == 0 {
		return "✅ No pending loans!", nil
	}
	return msg.String(), nil
}
