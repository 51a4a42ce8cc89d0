package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/shunichi-ikebuchi/paylog/pkg/analytics"
	"github.com/shunichi-ikebuchi/paylog/pkg/engine"
	"github.com/shunichi-ikebuchi/paylog/pkg/export"
	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
	"github.com/shunichi-ikebuchi/paylog/pkg/prefs"
)

type handler func(b *Bot, ctx context.Context, u *user, args []string) (string, error)

var commands = map[string]handler{
	"start":     (*Bot).cmdStart,
	"help":      (*Bot).cmdHelp,
	"cancel":    (*Bot).cmdCancel,
	"balance":   (*Bot).cmdBalance,
	"add":       (*Bot).cmdAdd,
	"subtract":  (*Bot).cmdSubtract,
	"transfer":  (*Bot).cmdTransfer,
	"quick":     (*Bot).cmdQuick,
	"frequent":  (*Bot).cmdFrequent,
	"batch":     (*Bot).cmdBatch,
	"undo":      (*Bot).cmdUndo,
	"lend":      (*Bot).cmdLend,
	"repay":     (*Bot).cmdRepay,
	"lending":   (*Bot).cmdLending,
	"reminders": (*Bot).cmdReminders,
	"reports":   (*Bot).cmdReports,
	"history":   (*Bot).cmdHistory,
	"trends":    (*Bot).cmdTrends,
	"weekly":    (*Bot).cmdWeekly,
	"summary":   (*Bot).cmdSummary,
	"compare":   (*Bot).cmdCompare,
	"insights":  (*Bot).cmdInsights,
	"advice":    (*Bot).cmdAdvice,
	"cuts":      (*Bot).cmdCuts,
	"health":    (*Bot).cmdHealth,
	"export":    (*Bot).cmdExport,
	"settings":  (*Bot).cmdSettings,
	"budgets":   (*Bot).cmdBudgets,
	"budget":    (*Bot).cmdBudget,
	"income":    (*Bot).cmdIncome,
	"goals":     (*Bot).cmdGoals,
	"goal":      (*Bot).cmdGoal,
	"aliases":   (*Bot).cmdAliases,
	"alerts":    (*Bot).cmdAlerts,
	"ask":       (*Bot).cmdAsk,
}

func (b *Bot) command(ctx context.Context, u *user, name string, args []string) (string, error) {
	h, ok := commands[name]
	if !ok {
		return "🤔 Unknown command /" + name + ". Type /help to see every command.", nil
	}
	return h(b, ctx, u, args)
}

func (b *Bot) cmdStart(context.Context, *user, []string) (string, error) {
	return welcome, nil
}

func (b *Bot) cmdHelp(context.Context, *user, []string) (string, error) {
	return help, nil
}

// cmdCancel runs after dispatch has already reset the session.
func (b *Bot) cmdCancel(context.Context, *user, []string) (string, error) {
	return "❌ Cancelled. What would you like to do next?", nil
}

func (b *Bot) cmdBalance(ctx context.Context, u *user, args []string) (string, error) {
	balances, err := b.engine.Balances(ctx)
	if err != nil {
		return "", err
	}
	total, wallet := balances.Total.InexactFloat64(), balances.Wallet.InexactFloat64()

	if len(args) == 0 {
		return fmt.Sprintf("💳 **Balances:**\n   • Total Stack: %s\n   • Wallet: %s\n   • Combined: %s",
			money(total), money(wallet), money(total+wallet)), nil
	}

	w := ledger.Wallet(strings.ToLower(args[0]))
	if !w.Valid() {
		return "❌ Use /balance total or /balance wallet", nil
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "🏦 **%s**\n💰 Current Balance: %s\n\n", w.Label(), moneyDec(balances.Get(w)))
	if w == ledger.WalletWallet {
		txns, err := b.engine.Transactions(ctx)
		if err != nil {
			return "", err
		}
		burn, daysLeft := analytics.BurnRate(txns, wallet, 30, b.now())
		fmt.Fprintf(&msg, "📊 Burn rate: %s/day\n", money(burn))
		if daysLeft < analytics.NoRunout {
			fmt.Fprintf(&msg, "⏳ Days left: %d\n\n", daysLeft)
		}
		if _, suggestion, ok := analytics.SuggestWalletTransfer(wallet, total); ok {
			msg.WriteString(suggestion + "\n\n")
		}
	}
	fmt.Fprintf(&msg, "⬇️ Use /add %s or /subtract %s", w, w)
	return msg.String(), nil
}

func (b *Bot) cmdAdd(ctx context.Context, u *user, args []string) (string, error) {
	return b.manual(ctx, u, ledger.KindAdd, args)
}

func (b *Bot) cmdSubtract(ctx context.Context, u *user, args []string) (string, error) {
	return b.manual(ctx, u, ledger.KindSubtract, args)
}

// manual starts the add or subtract flow. "/add wallet 500" skips the
// amount step and "/add wallet 500 salary" records at once.
func (b *Bot) manual(ctx context.Context, u *user, kind ledger.Kind, args []string) (string, error) {
	if len(args) == 0 || !ledger.Wallet(strings.ToLower(args[0])).Valid() {
		return fmt.Sprintf("❌ Use /%s total or /%s wallet", kind, kind), nil
	}

	s := &u.session
	s.start(FlowManual)
	s.Kind = kind
	s.Wallet = ledger.Wallet(strings.ToLower(args[0]))

	if len(args) > 1 {
		reply, err := b.stepManual(ctx, u, args[1])
		if err != nil || len(args) < 3 || s.State != StateDescription {
			return reply, err
		}
		return b.stepManual(ctx, u, strings.Join(args[2:], " "))
	}

	verb, prep := "add", "to"
	if kind == ledger.KindSubtract {
		verb, prep = "subtract", "from"
	}
	return fmt.Sprintf("💰 **%s %s %s**\n\n💵 Please enter the amount to %s %s %s:\n\n💡 Example: 500 or 1500.50",
		analytics.Title(verb), analytics.Title(prep), s.Wallet.Label(), verb, prep, strings.ToLower(s.Wallet.Label())), nil
}

func (b *Bot) cmdTransfer(ctx context.Context, u *user, args []string) (string, error) {
	if len(args) < 2 {
		balances, err := b.engine.Balances(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("🔄 **Transfer Between Wallets**\n\n💰 Total Stack: %s\n👛 Wallet: %s\n\n"+
			"⬇️ Choose transfer direction:\n/transfer total wallet\n/transfer wallet total",
			moneyDec(balances.Total), moneyDec(balances.Wallet)), nil
	}

	from, to := ledger.Wallet(strings.ToLower(args[0])), ledger.Wallet(strings.ToLower(args[1]))
	if !from.Valid() || !to.Valid() || from == to {
		return "❌ Transfer failed: Invalid transfer direction", nil
	}

	if len(args) > 2 {
		amount, ok := parseAmount(args[2])
		if !ok {
			return replyInvalidNumber, nil
		}
		return b.transfer(ctx, from, to, amount)
	}

	s := &u.session
	s.start(FlowTransfer)
	s.From, s.To = from, to
	return fmt.Sprintf("🔄 **Transfer: %s → %s**\n\n💵 Enter the amount to transfer:", from.Label(), to.Label()), nil
}

// cmdQuick lists presets, records preset n, or records "amount category".
func (b *Bot) cmdQuick(ctx context.Context, u *user, args []string) (string, error) {
	presets := b.interp.Keywords().QuickAdds()

	switch len(args) {
	case 0:
		var msg strings.Builder
		msg.WriteString("⚡ **Quick Add Transaction**\n\n")
		for i, q := range presets {
			fmt.Fprintf(&msg, "%d. %s %s\n", i+1, analytics.Rupees(q.Amount), q.Description)
		}
		msg.WriteString("\nSend /quick <n> for a preset, /quick <amount> <category>, or /frequent for your own.")
		return msg.String(), nil

	case 1:
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 || n > len(presets) {
			return fmt.Sprintf("❌ Pick a preset between 1 and %d.", len(presets)), nil
		}
		q := presets[n-1]
		return b.quickAdd(ctx, decimal.NewFromFloat(q.Amount), q.Category)

	default:
		amount, ok := parseAmount(args[0])
		if !ok {
			return replyInvalidNumber, nil
		}
		return b.quickAdd(ctx, amount, strings.ToLower(args[1]))
	}
}

func (b *Bot) quickAdd(ctx context.Context, amount decimal.Decimal, category string) (string, error) {
	balances, err := b.engine.RecordTransaction(ctx, engine.Entry{
		Kind:        ledger.KindSubtract,
		Wallet:      ledger.WalletWallet,
		Amount:      amount,
		Description: "Quick: " + category,
		Category:    category,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Quick transaction added!\n💰 %s - %s\n💳 Wallet: %s",
		moneyDec(amount), category, moneyDec(balances.Wallet)), nil
}

func (b *Bot) cmdFrequent(ctx context.Context, _ *user, _ []string) (string, error) {
	txns, err := b.engine.Transactions(ctx)
	if err != nil {
		return "", err
	}

	frequent := analytics.FrequentTransactions(txns, 6)
	if len(frequent) == 0 {
		return "No frequent transactions found yet.", nil
	}

	var msg strings.Builder
	msg.WriteString("⭐ **Quick Add Frequent:**\n\n")
	for _, f := range frequent {
		desc := []rune(f.Description)
		if len(desc) > 20 {
			desc = desc[:20]
		}
		fmt.Fprintf(&msg, "• %s - %s (%dx)  /quick %.0f %s\n", analytics.Rupees(f.Amount), string(desc), f.Count, f.Amount, f.Category)
	}
	return msg.String(), nil
}

func (b *Bot) cmdBatch(_ context.Context, u *user, _ []string) (string, error) {
	u.session.start(FlowBatch)
	return "📝 **Batch Entry Mode**\n\n" +
		"Enter multiple transactions, one per line:\n\n" +
		"**Format:** amount category description\n\n" +
		"**Example:**\n" +
		"500 groceries weekly shopping\n" +
		"200 fuel petrol refill\n" +
		"100 food lunch\n\n" +
		"Send your transactions now:", nil
}

func (b *Bot) cmdUndo(ctx context.Context, _ *user, _ []string) (string, error) {
	removed, err := b.engine.UndoLast(ctx)
	switch {
	case errors.Is(err, engine.ErrNothingToUndo):
		return "❌ No transactions to undo", nil
	case err != nil:
		return "", err
	}

	msg := "✅ Last transaction undone successfully"
	if !removed.Amount.IsZero() {
		msg += fmt.Sprintf("\n↩️ %s %s - %s", removed.Type, moneyDec(removed.Amount), removed.Description)
	}
	return msg, nil
}

func (b *Bot) cmdLend(_ context.Context, u *user, _ []string) (string, error) {
	u.session.start(FlowLend)
	return "💸 **Lend Money**\n\n👤 Please enter the person's name:\n\n💡 Example: John", nil
}

func (b *Bot) cmdRepay(_ context.Context, u *user, _ []string) (string, error) {
	u.session.start(FlowRepay)
	return "💰 **Money Returned**\n\n👤 Please enter the name of the person who returned money:\n\n" +
		"💡 You can also send partial amounts!\n💡 Example: John", nil
}

func (b *Bot) cmdExport(ctx context.Context, _ *user, args []string) (string, error) {
	txns, err := b.engine.Transactions(ctx)
	if err != nil {
		return "", err
	}

	label := "all time"
	if len(args) > 0 {
		txns = export.FilterMonth(txns, args[0])
		label = args[0]
	}
	if len(txns) == 0 {
		return "No transactions to export for " + label + ".", nil
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, txns); err != nil {
		return "", fmt.Errorf("failed to render CSV: %w", err)
	}
	return fmt.Sprintf("📄 **Export (%s, %d rows)**\n\n%s", label, len(txns), buf.String()), nil
}

func (b *Bot) cmdSettings(context.Context, *user, []string) (string, error) {
	return "⚙️ **Settings & Preferences**\n\n" +
		"🏷️ /aliases - manage aliases\n" +
		"💰 /budget - set budgets, /budgets - budget status\n" +
		"💵 /income - set monthly income\n" +
		"🔔 /alerts - alert settings\n" +
		"⭐ /frequent - frequent transactions", nil
}

func (b *Bot) cmdBudget(_ context.Context, u *user, _ []string) (string, error) {
	u.session.start(FlowBudget)
	return "💰 **Set Monthly Budget**\n\n" +
		"Reply with budget details:\n\n" +
		"**Format:** category amount\n\n" +
		"**Example:**\n" +
		"food 10000\n" +
		"shopping 5000\n" +
		"entertainment 3000\n\n" +
		"Send your budgets:", nil
}

func (b *Bot) cmdBudgets(ctx context.Context, u *user, _ []string) (string, error) {
	budgets := u.prefs.Budgets(prefs.PeriodMonthly)
	if len(budgets) == 0 {
		return "💰 No budgets set yet. Use /budget to add some.", nil
	}

	txns, err := b.engine.Transactions(ctx)
	if err != nil {
		return "", err
	}
	a := analytics.AnalyzeBudgets(txns, budgets, 30, b.now())

	cats := make([]string, 0, len(a.Categories))
	for c := range a.Categories {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	var msg strings.Builder
	msg.WriteString("💰 **Monthly Budgets:**\n\n")
	for _, c := range cats {
		cb := a.Categories[c]
		fmt.Fprintf(&msg, "%s **%s**: %s / %s (%.0f%%)\n",
			budgetEmoji(cb.Status), analytics.Title(c), money(cb.Spent), money(cb.Budget), cb.Percentage)
	}
	fmt.Fprintf(&msg, "\n📊 Total: %s of %s (%.0f%%)\n💵 Remaining: %s",
		money(a.TotalSpent), money(a.TotalBudget), a.OverallPercentage, money(a.TotalRemaining))
	return msg.String(), nil
}

func budgetEmoji(status string) string {
	switch status {
	case analytics.BudgetExceeded:
		return "🔴"
	case analytics.BudgetCritical, analytics.BudgetWarning:
		return "⚠️"
	default:
		return "✅"
	}
}

func (b *Bot) cmdIncome(ctx context.Context, u *user, args []string) (string, error) {
	if len(args) > 0 {
		amount, ok := parseAmount(args[0])
		if !ok {
			return replyInvalidNumber, nil
		}
		return b.setIncome(ctx, u, amount.InexactFloat64())
	}

	u.session.start(FlowIncome)
	return "💵 **Set Monthly Income**\n\n" +
		"Reply with your monthly income:\n\n" +
		"**Example:** 50000\n\n" +
		"This helps calculate savings rate and health score.", nil
}

func (b *Bot) cmdGoal(_ context.Context, u *user, _ []string) (string, error) {
	u.session.start(FlowGoal)
	return "🎯 **Add New Goal**\n\n" +
		"Reply with goal details in this format:\n\n" +
		"**Format:** type target description [deadline]\n\n" +
		"**Types:** " + strings.Join(goalTypes, ", ") + "\n\n" +
		"**Example:**\n" +
		"savings 50000 Save for vacation 2026-12-31\n" +
		"spending_limit 5000 Monthly food budget", nil
}

func (b *Bot) cmdAliases(_ context.Context, u *user, _ []string) (string, error) {
	aliases := u.prefs.Aliases()

	var msg strings.Builder
	msg.WriteString("🏷️ **Your Aliases:**\n\n")
	if len(aliases) == 0 {
		msg.WriteString("No aliases set yet.\n\n")
	} else {
		keys := make([]string, 0, len(aliases))
		for k := range aliases {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&msg, "• %s → %s\n", k, aliases[k])
		}
		msg.WriteString("\n")
	}
	msg.WriteString("💡 To add alias, type:\n'set alias gro for groceries'")
	return msg.String(), nil
}

var alertNames = []string{"weekly_summary", "monthly_warning", "budget_alerts", "goal_reminders", "anomaly_detection"}

func (b *Bot) cmdAlerts(ctx context.Context, u *user, args []string) (string, error) {
	if len(args) >= 2 {
		var enabled bool
		switch strings.ToLower(args[1]) {
		case "on":
			enabled = true
		case "off":
		default:
			return "❌ Use /alerts <name> on|off", nil
		}
		if err := u.prefs.ToggleAlert(ctx, strings.ToLower(args[0]), enabled); err != nil {
			return "❌ Unknown alert. Choose one of: " + strings.Join(alertNames, ", "), nil
		}
	}

	a := u.prefs.AlertSettings()
	state := map[string]bool{
		"weekly_summary":    a.WeeklySummary,
		"monthly_warning":   a.MonthlyWarning,
		"budget_alerts":     a.BudgetAlerts,
		"goal_reminders":    a.GoalReminders,
		"anomaly_detection": a.AnomalyDetection,
	}

	var msg strings.Builder
	msg.WriteString("🔔 **Alert Settings:**\n\n")
	for _, name := range alertNames {
		mark := "❌ off"
		if state[name] {
			mark = "✅ on"
		}
		fmt.Fprintf(&msg, "• %s: %s\n", name, mark)
	}
	msg.WriteString("\n💡 Toggle with /alerts <name> on|off")
	return msg.String(), nil
}

func (b *Bot) cmdAsk(ctx context.Context, u *user, args []string) (string, error) {
	if len(args) > 0 {
		return b.answer(ctx, u, strings.Join(args, " "))
	}

	u.session.start(FlowAsk)
	return "❓ **Ask AI Anything!**\n\n" +
		"You can ask questions like:\n" +
		"• 'How much did I spend on food last week?'\n" +
		"• 'Am I spending more than last month?'\n" +
		"• 'Where can I cut costs?'\n" +
		"• 'What's my biggest expense category?'\n\n" +
		"Just type your question!", nil
}
