package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/shunichi-ikebuchi/paylog/pkg/analytics"
	"github.com/shunichi-ikebuchi/paylog/pkg/engine"
	"github.com/shunichi-ikebuchi/paylog/pkg/interpreter"
	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
	"github.com/shunichi-ikebuchi/paylog/pkg/prefs"
)

var (
	lendPersonPattern   = regexp.MustCompile(`(?i)\b(?:to|gave)\s+(\w+)`)
	returnPersonPattern = regexp.MustCompile(`(?i)\b(?:from|by)\s+(\w+)`)

	// "Ravi paid back 500"
	leadingPersonPattern = regexp.MustCompile(`(?i)^(\w+)\s+(?:paid back|returned)\b`)
)

// natural routes free text by intent after expanding the user's aliases.
func (b *Bot) natural(ctx context.Context, u *user, text string) (string, error) {
	text = u.prefs.ApplyAliases(text)
	kt := b.interp.Keywords()

	switch kt.Intent(text) {
	case interpreter.IntentQuery:
		return b.answer(ctx, u, text)
	case interpreter.IntentTransfer:
		return b.naturalTransfer(ctx, text)
	case interpreter.IntentReturn:
		return b.naturalReturn(ctx, u, text)
	case interpreter.IntentExpense:
		return b.naturalExpense(ctx, u, text)
	case interpreter.IntentIncome:
		return b.naturalIncome(ctx, u, text)
	case interpreter.IntentLend:
		return b.naturalLend(ctx, u, text)
	}

	if last := u.prefs.Context(); last.LastCategory != "" && kt.Has(interpreter.IntentRepeat, text) {
		if amount, ok := firstAmount(text); ok {
			return b.repeatLast(ctx, u, last, amount, text)
		}
	}
	return replyNotUnderstood, nil
}

// interpreterContext converts the learned preference context for parsing.
func interpreterContext(m *prefs.Manager) interpreter.Context {
	fc := m.FullContext()
	frequent := make([]interpreter.FrequentTransaction, len(fc.FrequentTransactions))
	for i, p := range fc.FrequentTransactions {
		frequent[i] = interpreter.FrequentTransaction(p)
	}
	return interpreter.Context{
		LastMerchant:         fc.LastMerchant,
		LastCategory:         fc.LastCategory,
		UsualAmounts:         fc.UsualAmounts,
		FrequentTransactions: frequent,
	}
}

func (b *Bot) parse(ctx context.Context, u *user, text string) interpreter.Parsed {
	p := b.interp.Parse(ctx, text, interpreterContext(u.prefs))
	slog.Debug("Parsed message", "user_id", u.id, "provider", string(p.Provider), "amount", p.Amount, "category", p.Category)
	return p
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func (b *Bot) naturalExpense(ctx context.Context, u *user, text string) (string, error) {
	parsed := b.parse(ctx, u, text)
	amount, ok := parsed.AmountValue()
	if !ok {
		return "❌ Couldn't extract amount. Please try: 'Spent 500 on groceries'", nil
	}

	category := orDefault(parsed.Category, "other")
	description := orDefault(parsed.Description, text)
	wallet := ledger.Wallet(parsed.WalletType)
	if !wallet.Valid() {
		wallet = ledger.Wallet(u.prefs.Context().LastWallet)
	}
	if !wallet.Valid() {
		wallet = ledger.WalletWallet
	}
	date := parsed.Date(b.now())

	balances, err := b.engine.RecordTransaction(ctx, engine.Entry{
		Kind:        ledger.KindSubtract,
		Wallet:      wallet,
		Amount:      amount,
		Description: description,
		Category:    category,
		Merchant:    parsed.Merchant,
		Date:        date,
	})
	if err != nil {
		return "", err
	}

	amt := amount.InexactFloat64()
	b.remember(ctx, u, prefs.ContextUpdate{
		Category:    category,
		Amount:      amt,
		Wallet:      string(wallet),
		Merchant:    parsed.Merchant,
		Description: description,
	})

	var msg strings.Builder
	fmt.Fprintf(&msg, "✅ **Expense Recorded!**\n\n💰 Amount: %s\n📂 Category: %s\n🏪 Merchant: %s\n📅 Date: %s\n📝 Description: %s\n\n%s",
		money(amt), category, orDefault(parsed.Merchant, "N/A"), date.Format("02 Jan 2006"), description, balancesBlock(balances))
	for _, alert := range b.expenseAlerts(ctx, u, amt, category) {
		msg.WriteString("\n\n" + alert)
	}
	return msg.String(), nil
}

// remember feeds a recorded expense into the learned history and context.
// Failures are logged: the ledger row is already written.
func (b *Bot) remember(ctx context.Context, u *user, c prefs.ContextUpdate) {
	if err := u.prefs.AddToHistory(ctx, c.Description, c.Category, c.Amount, c.Merchant, c.Wallet); err != nil {
		slog.Warn("Failed to save transaction history", "user_id", u.id, "error", err)
	}
	if err := u.prefs.UpdateContext(ctx, c); err != nil {
		slog.Warn("Failed to save context", "user_id", u.id, "error", err)
	}
}

// expenseAlerts returns the anomaly and budget warnings a new expense
// raises, honoring the user's alert settings.
func (b *Bot) expenseAlerts(ctx context.Context, u *user, amount float64, category string) []string {
	settings := u.prefs.AlertSettings()
	if !settings.AnomalyDetection && !settings.BudgetAlerts {
		return nil
	}

	txns, err := b.engine.Transactions(ctx)
	if err != nil {
		slog.Warn("Skipping expense alerts", "user_id", u.id, "error", err)
		return nil
	}
	now := b.now()

	var alerts []string
	if settings.AnomalyDetection {
		daily := analytics.DailyAverage(txns, 30, now)
		typical := analytics.CategoryAverage(txns, category, 30, now)
		if a := analytics.DetectAnomaly(amount, category, daily, typical); a != "" {
			alerts = append(alerts, a)
		}
	}

	if budget := u.prefs.Budget(category, prefs.PeriodMonthly); settings.BudgetAlerts && budget > 0 {
		spent := analytics.CategoryTotals(txns, 30, now)[category]
		r := analytics.BudgetStatus(spent, budget, prefs.PeriodMonthly)
		switch r.Status {
		case analytics.BudgetWarning, analytics.BudgetCritical, analytics.BudgetExceeded:
			alerts = append(alerts, r.Message)
		}
	}
	return alerts
}

func (b *Bot) naturalIncome(ctx context.Context, u *user, text string) (string, error) {
	// "Received 2000 from Ravi" settles a loan when Ravi owes money.
	if m := returnPersonPattern.FindStringSubmatch(text); m != nil {
		owed, err := b.engine.OutstandingBalance(ctx, m[1])
		if err != nil {
			return "", err
		}
		if owed.IsPositive() {
			return b.naturalReturn(ctx, u, text)
		}
	}

	parsed := b.parse(ctx, u, text)
	amount, ok := parsed.AmountValue()
	if !ok {
		return "❌ Couldn't extract amount.", nil
	}

	// Income lands in the total stack unless the wallet is named.
	description := orDefault(parsed.Description, text)
	wallet := ledger.WalletTotal
	if strings.Contains(strings.ToLower(text), "wallet") {
		wallet = ledger.WalletWallet
	}

	balances, err := b.engine.RecordTransaction(ctx, engine.Entry{
		Kind:        ledger.KindAdd,
		Wallet:      wallet,
		Amount:      amount,
		Description: description,
		Category:    "income",
	})
	if err != nil {
		return "", err
	}

	if strings.Contains(strings.ToLower(text), "salary") {
		if err := u.prefs.SetIncome(ctx, amount.InexactFloat64(), b.now().Day()); err != nil {
			slog.Warn("Failed to save income", "user_id", u.id, "error", err)
		}
	}

	return fmt.Sprintf("✅ **Income Added!**\n\n💰 Amount: %s\n📝 %s\n\n%s",
		moneyDec(amount), description, balancesBlock(balances)), nil
}

func (b *Bot) naturalLend(ctx context.Context, u *user, text string) (string, error) {
	amount, ok := b.parse(ctx, u, text).AmountValue()
	if !ok {
		return "❌ Please specify amount: 'Lent 5000 to John'", nil
	}

	person := "Unknown"
	if m := lendPersonPattern.FindStringSubmatch(text); m != nil {
		person = analytics.Title(m[1])
	}

	if err := b.engine.RecordLoan(ctx, person, amount, text); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ **Lending Recorded!**\n\n👤 Person: %s\n💰 Amount: %s\n📝 %s\n\n💡 Say 'Received X from %s' when they pay back!",
		person, moneyDec(amount), text, person), nil
}

func (b *Bot) naturalReturn(ctx context.Context, u *user, text string) (string, error) {
	amount, ok := b.parse(ctx, u, text).AmountValue()
	if !ok {
		return "❌ Please specify amount: 'Received 5000 from John'", nil
	}

	m := returnPersonPattern.FindStringSubmatch(text)
	if m == nil {
		m = leadingPersonPattern.FindStringSubmatch(text)
	}
	if m == nil || strings.EqualFold(m[1], "i") {
		return "❌ Please specify who returned: 'Received 5000 from John'", nil
	}
	return b.repay(ctx, analytics.Title(m[1]), amount)
}

// repay applies a repayment to the wallet and reports what is still owed.
func (b *Bot) repay(ctx context.Context, person string, amount decimal.Decimal) (string, error) {
	res, err := b.engine.ApplyRepayment(ctx, person, amount, ledger.WalletWallet)
	switch {
	case errors.Is(err, engine.ErrNoOutstandingLoan), errors.Is(err, engine.ErrInvalidAmount):
		return "❌ " + res.Message, nil
	case err != nil:
		return "", err
	}

	owed, err := b.engine.OutstandingBalance(ctx, person)
	if err != nil {
		return "", err
	}
	return repaymentReply(res, person, owed), nil
}

// naturalTransfer reads the direction from "from total", "to wallet" and
// similar phrases.
func (b *Bot) naturalTransfer(ctx context.Context, text string) (string, error) {
	amount, ok := firstAmount(text)
	if !ok {
		return "❌ Please specify an amount. Example: 'Transfer 1000 from total to wallet'", nil
	}

	lower := strings.ToLower(text)
	from, to := ledger.WalletWallet, ledger.WalletTotal
	if strings.Contains(lower, "from total") || strings.Contains(lower, "from stack") {
		from = ledger.WalletTotal
	}
	if strings.Contains(lower, "to wallet") {
		to = ledger.WalletWallet
	}

	if from == to {
		switch {
		case strings.Contains(lower, "to wallet"):
			from = ledger.WalletTotal
		case strings.Contains(lower, "to total"), strings.Contains(lower, "to stack"):
			from = ledger.WalletWallet
		default:
			return "❌ Please specify: 'Transfer 1000 from total to wallet' or vice versa", nil
		}
	}
	return b.transfer(ctx, from, to, amount)
}

func (b *Bot) transfer(ctx context.Context, from, to ledger.Wallet, amount decimal.Decimal) (string, error) {
	res, err := b.engine.TransferBetweenWallets(ctx, from, to, amount, "Transfer")
	switch {
	case errors.Is(err, engine.ErrInsufficientFunds),
		errors.Is(err, engine.ErrInvalidDirection),
		errors.Is(err, engine.ErrInvalidAmount):
		return "❌ Transfer failed: " + res.Message, nil
	case err != nil:
		return "", err
	}
	return transferReply(res, from, to, amount), nil
}

// repeatLast records another expense in the last used category, for
// messages like "50 more".
func (b *Bot) repeatLast(ctx context.Context, u *user, last prefs.Context, amount decimal.Decimal, text string) (string, error) {
	wallet := ledger.Wallet(last.LastWallet)
	if !wallet.Valid() {
		wallet = ledger.WalletWallet
	}

	balances, err := b.engine.RecordTransaction(ctx, engine.Entry{
		Kind:        ledger.KindSubtract,
		Wallet:      wallet,
		Amount:      amount,
		Description: text,
		Category:    last.LastCategory,
	})
	if err != nil {
		return "", err
	}

	amt := amount.InexactFloat64()
	b.remember(ctx, u, prefs.ContextUpdate{
		Category:    last.LastCategory,
		Amount:      amt,
		Wallet:      string(wallet),
		Description: text,
	})

	msg := fmt.Sprintf("✅ Added %s to %s!\n💳 Balance: %s",
		moneyDec(amount), last.LastCategory, moneyDec(balances.Get(wallet)))
	for _, alert := range b.expenseAlerts(ctx, u, amt, last.LastCategory) {
		msg += "\n\n" + alert
	}
	return msg, nil
}

// answer asks the interpreter a question about the user's money.
func (b *Bot) answer(ctx context.Context, u *user, question string) (string, error) {
	txns, err := b.engine.Transactions(ctx)
	if err != nil {
		return "", err
	}
	balances, err := b.engine.Balances(ctx)
	if err != nil {
		return "", err
	}

	var goals []string
	for _, g := range u.prefs.ActiveGoals() {
		goals = append(goals, fmt.Sprintf("%s (%s)", orDefault(g.Description, g.Type), analytics.Rupees(g.Target)))
	}

	reply := b.interp.AnswerQuery(ctx, question, txns, interpreter.QueryContext{
		TotalBalance:  balances.Total.InexactFloat64(),
		WalletBalance: balances.Wallet.InexactFloat64(),
		Budget:        u.prefs.TotalBudget(prefs.PeriodMonthly),
		Goals:         goals,
	})
	return "🤖 **AI Response:**\n\n" + reply, nil
}
