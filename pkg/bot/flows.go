package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shunichi-ikebuchi/paylog/pkg/engine"
	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
	"github.com/shunichi-ikebuchi/paylog/pkg/prefs"
)

// step feeds text to the active flow. Invalid input keeps the current
// state so the user can try again.
func (b *Bot) step(ctx context.Context, u *user, text string) (string, error) {
	switch u.session.Flow {
	case FlowManual:
		return b.stepManual(ctx, u, text)
	case FlowLend:
		return b.stepLend(ctx, u, text)
	case FlowRepay:
		return b.stepRepay(ctx, u, text)
	case FlowTransfer:
		return b.stepTransfer(ctx, u, text)
	case FlowBudget:
		return b.stepBudget(ctx, u, text)
	case FlowIncome:
		return b.stepIncome(ctx, u, text)
	case FlowGoal:
		return b.stepGoal(ctx, u, text)
	case FlowBatch:
		return b.stepBatch(ctx, u, text)
	case FlowAsk:
		u.session.advance()
		return b.answer(ctx, u, text)
	}
	u.session.reset()
	return b.natural(ctx, u, text)
}

func manualVerb(kind ledger.Kind) (doing, done string) {
	if kind == ledger.KindAdd {
		return "added to", "Added to"
	}
	return "subtracted from", "Subtracted from"
}

func (b *Bot) stepManual(ctx context.Context, u *user, text string) (string, error) {
	s := &u.session
	switch s.State {
	case StateAmount:
		amount, ok := parseAmount(text)
		if !ok {
			return replyInvalidNumber, nil
		}
		s.Amount = amount
		s.advance()
		doing, _ := manualVerb(s.Kind)
		return fmt.Sprintf("💰 **%s** will be %s %s\n\n📝 Please enter a description:\n\n💡 Example: Salary, Groceries, etc.",
			moneyDec(amount), doing, s.Wallet.Label()), nil

	case StateDescription:
		kind, wallet, amount := s.Kind, s.Wallet, s.Amount
		balances, err := b.engine.RecordTransaction(ctx, engine.Entry{
			Kind:        kind,
			Wallet:      wallet,
			Amount:      amount,
			Description: text,
			Category:    "manual",
		})
		if err != nil {
			return "", err
		}
		s.advance()
		_, done := manualVerb(kind)
		return fmt.Sprintf("✅ **Transaction Successful!**\n\n💰 Amount: %s %s %s\n📝 Description: %s\n\n%s",
			moneyDec(amount), strings.ToLower(done), strings.ToLower(wallet.Label()), text, balancesBlock(balances)), nil
	}
	s.reset()
	return replyNotUnderstood, nil
}

func (b *Bot) stepLend(ctx context.Context, u *user, text string) (string, error) {
	s := &u.session
	switch s.State {
	case StatePerson:
		s.Person = text
		s.advance()
		return fmt.Sprintf("👤 **Lending to: %s**\n\n💵 Please enter the amount:\n\n💡 Example: 5000", text), nil

	case StateAmount:
		amount, ok := parseAmount(text)
		if !ok {
			return replyInvalidNumber, nil
		}
		s.Amount = amount
		s.advance()
		return fmt.Sprintf("💸 **Lending %s to %s**\n\n📝 Please enter a description:\n\n💡 Example: Personal loan, Dinner split, etc.",
			moneyDec(amount), s.Person), nil

	case StateDescription:
		person, amount := s.Person, s.Amount
		if err := b.engine.RecordLoan(ctx, person, amount, text); err != nil {
			return "", err
		}
		s.advance()
		return fmt.Sprintf("✅ **Lending Recorded!**\n\n👤 Person: %s\n💰 Amount: %s\n📝 Description: %s\n\n"+
			"💡 Say 'Received X from %s' when they pay back (even partial amounts)!",
			person, moneyDec(amount), text, person), nil
	}
	s.reset()
	return replyNotUnderstood, nil
}

func (b *Bot) stepRepay(ctx context.Context, u *user, text string) (string, error) {
	s := &u.session
	switch s.State {
	case StatePerson:
		pending, err := b.engine.OutstandingBalance(ctx, text)
		if err != nil {
			return "", err
		}
		s.Person = text
		s.advance()

		var msg strings.Builder
		fmt.Fprintf(&msg, "👤 **Money from: %s**\n\n", text)
		if pending.IsPositive() {
			fmt.Fprintf(&msg, "📊 Total pending: %s\n\n", moneyDec(pending))
		}
		msg.WriteString("💵 Please enter the amount returned:\n💡 You can enter partial amounts!")
		return msg.String(), nil

	case StateAmount:
		amount, ok := parseAmount(text)
		if !ok {
			return replyInvalidNumber, nil
		}
		person := s.Person
		s.advance()
		return b.repay(ctx, person, amount)
	}
	s.reset()
	return replyNotUnderstood, nil
}

func (b *Bot) stepTransfer(ctx context.Context, u *user, text string) (string, error) {
	s := &u.session
	amount, ok := parseAmount(text)
	if !ok {
		return replyInvalidNumber, nil
	}
	from, to := s.From, s.To
	s.advance()
	return b.transfer(ctx, from, to, amount)
}

func (b *Bot) stepIncome(ctx context.Context, u *user, text string) (string, error) {
	amount, ok := parseAmount(text)
	if !ok {
		return replyInvalidNumber, nil
	}
	u.session.advance()
	return b.setIncome(ctx, u, amount.InexactFloat64())
}

func (b *Bot) setIncome(ctx context.Context, u *user, monthly float64) (string, error) {
	if err := u.prefs.SetIncome(ctx, monthly, b.now().Day()); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Monthly income set to %s\n\n💡 This helps calculate your savings rate and financial health score.",
		money(monthly)), nil
}

// stepBudget reads "category amount" lines. Unreadable lines are listed
// back; when none can be read the flow keeps waiting.
func (b *Bot) stepBudget(ctx context.Context, u *user, text string) (string, error) {
	var saved int
	var failed []string
	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			failed = append(failed, line)
			continue
		}
		amount, ok := parseAmount(fields[1])
		if !ok {
			failed = append(failed, line)
			continue
		}
		if err := u.prefs.SetBudget(ctx, strings.ToLower(fields[0]), amount.InexactFloat64(), prefs.PeriodMonthly); err != nil {
			return "", err
		}
		saved++
	}

	if saved == 0 {
		return "❌ Couldn't read any budget. Use one 'category amount' per line, e.g. 'food 10000', or /cancel.", nil
	}
	u.session.advance()

	msg := fmt.Sprintf("✅ Budgets saved!\n\n💰 Total monthly budget: %s", money(u.prefs.TotalBudget(prefs.PeriodMonthly)))
	if len(failed) > 0 {
		msg += "\n\n❌ Skipped:\n• " + strings.Join(failed, "\n• ")
	}
	return msg, nil
}

var goalTypes = []string{prefs.GoalSavings, prefs.GoalSpendingLimit, prefs.GoalInvestment, prefs.GoalDebtPayoff}

// stepGoal reads "type target description [yyyy-mm-dd]".
func (b *Bot) stepGoal(ctx context.Context, u *user, text string) (string, error) {
	fields := strings.Fields(text)
	if len(fields) < 3 || !isGoalType(strings.ToLower(fields[0])) {
		return "❌ Invalid format. Please use:\ntype target description [deadline]\n\n" +
			"Types: " + strings.Join(goalTypes, ", "), nil
	}
	target, err := strconv.ParseFloat(strings.ReplaceAll(fields[1], ",", ""), 64)
	if err != nil || target <= 0 {
		return "❌ The target must be a positive number.", nil
	}

	goalType := strings.ToLower(fields[0])
	rest := fields[2:]
	var deadline string
	if len(rest) > 1 {
		if _, err := time.Parse(time.DateOnly, rest[len(rest)-1]); err == nil {
			deadline = rest[len(rest)-1]
			rest = rest[:len(rest)-1]
		}
	}
	description := strings.Join(rest, " ")

	if _, err := u.prefs.AddGoal(ctx, goalType, target, description, deadline, 0); err != nil {
		return "", err
	}
	u.session.advance()

	msg := fmt.Sprintf("✅ **Goal Added!**\n\n🎯 Type: %s\n💰 Target: %s\n📝 %s\n", goalType, money(target), description)
	if deadline != "" {
		msg += "📅 Deadline: " + deadline + "\n"
	}
	return msg, nil
}

func isGoalType(t string) bool {
	for _, g := range goalTypes {
		if g == t {
			return true
		}
	}
	return false
}

// stepBatch records "amount category [description]" lines as wallet
// expenses and reports the lines it could not read.
func (b *Bot) stepBatch(ctx context.Context, u *user, text string) (string, error) {
	var added int
	var failed []string
	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			failed = append(failed, line)
			continue
		}
		amount, ok := parseAmount(fields[0])
		if !ok {
			failed = append(failed, line)
			continue
		}

		category := strings.ToLower(fields[1])
		description := category + " expense"
		if len(fields) > 2 {
			description = strings.Join(fields[2:], " ")
		}

		_, err := b.engine.RecordTransaction(ctx, engine.Entry{
			Kind:        ledger.KindSubtract,
			Wallet:      ledger.WalletWallet,
			Amount:      amount,
			Description: description,
			Category:    category,
		})
		if err != nil {
			if errors.Is(err, engine.ErrStoreUnavailable) {
				return "", err
			}
			failed = append(failed, line)
			continue
		}
		added++
	}
	u.session.advance()

	var msg strings.Builder
	fmt.Fprintf(&msg, "✅ **Batch Entry Complete!**\n\n✓ Successfully added: %d transactions\n", added)
	if len(failed) > 0 {
		fmt.Fprintf(&msg, "❌ Failed to parse: %d lines\n\nFailed lines:\n", len(failed))
		for _, line := range failed[:min(len(failed), 5)] {
			fmt.Fprintf(&msg, "• %s\n", line)
		}
	}
	return msg.String(), nil
}
