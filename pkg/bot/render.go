package bot

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/shunichi-ikebuchi/paylog/pkg/analytics"
	"github.com/shunichi-ikebuchi/paylog/pkg/engine"
	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
)

const replyNotUnderstood = "🤔 I didn't understand that. Try:\n" +
	"• 'Spent 500 on groceries'\n" +
	"• 'Transfer 1000 from total to wallet'\n" +
	"• 'How much did I spend on food last week?'\n" +
	"• /help for every command"

const replyInvalidNumber = "❌ Please enter a valid positive number, or /cancel."

const welcome = `🎯 **Welcome to PayLog AI - Intelligent Expense Tracker!**

🤖 **AI-Powered Features:**
• 💬 Natural language input - just type naturally!
• 🧠 Context-aware parsing (your usual amounts and merchants)
• 📈 Predictive analytics & forecasting
• 🏥 Financial health scoring
• 🎯 Goal tracking & smart notifications
• ❓ Natural queries ("How much did I spend on food?")

📱 **Main Features:**
• 💰 Dual wallet system with transfers
• 🤝 Smart lending with partial payments
• 📊 AI-powered insights & reports
• 🔔 Proactive budget alerts
• ⚡ Quick add with presets

🚀 **Try saying:**
"Spent 500 on groceries at DMart"
"Transfer 1000 from total to wallet"
"How much did I spend last week?"

Type /help to see every command, or just type naturally!`

const help = `📖 **Commands**

💳 **Money**
/balance [total|wallet] - balances, burn rate and runway
/add <total|wallet> [amount] - add money
/subtract <total|wallet> [amount] - subtract money
/transfer [from to [amount]] - move money between wallets
/quick [n | amount category] - one-tap expenses
/batch - several expenses at once
/undo - remove the last transaction

🤝 **Lending**
/lend - record money you lent
/repay - record money returned
/lending - lending analytics
/reminders - pending loans

📊 **Reports**
/history [day|week|month|year]
/trends, /weekly, /summary, /compare [week|month]
/insights, /advice, /cuts [target], /health
/export [yyyy-mm] - transactions as CSV

⚙️ **Settings**
/budgets, /budget, /income [amount], /goals, /goal
/aliases, /alerts [name on|off], /frequent

❓ /ask [question] - ask about your money
❌ /cancel - leave the current step`

// money formats an amount with paise, e.g. "₹1,250.00".
func money(v float64) string {
	return analytics.RupeesExact(v)
}

func moneyDec(d decimal.Decimal) string {
	return analytics.RupeesExact(d.InexactFloat64())
}

func balancesBlock(b ledger.Balances) string {
	return fmt.Sprintf("💳 **Updated Balances:**\n   • Total Stack: %s\n   • Wallet: %s",
		moneyDec(b.Total), moneyDec(b.Wallet))
}

func transferReply(res engine.TransferResult, from, to ledger.Wallet, amount decimal.Decimal) string {
	return fmt.Sprintf("✅ **Transfer Successful!**\n\n💸 %s transferred from %s to %s\n\n%s",
		moneyDec(amount), from.Label(), to.Label(), balancesBlock(res.Balances))
}

func repaymentReply(res engine.RepaymentResult, person string, stillOwed decimal.Decimal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ **Payment Received!**\n\n%s\n", res.Message)
	if stillOwed.IsPositive() {
		fmt.Fprintf(&b, "\n📊 %s still owes: %s", person, moneyDec(stillOwed))
	} else {
		fmt.Fprintf(&b, "\n🎉 %s has cleared all debts!", person)
	}
	return b.String()
}

// progressBar draws ten cells for a 0-100 percentage.
func progressBar(percent float64) string {
	filled := min(max(int(percent/10), 0), 10)
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
}

var numberPattern = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// parseAmount reads a positive amount typed on its own, allowing a rupee
// sign and thousands separators.
func parseAmount(text string) (decimal.Decimal, bool) {
	s := strings.NewReplacer("₹", "", ",", "", " ", "").Replace(strings.TrimSpace(text))
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// firstAmount returns the first number in free text.
func firstAmount(text string) (decimal.Decimal, bool) {
	m := numberPattern.FindString(text)
	if m == "" {
		return decimal.Zero, false
	}
	return parseAmount(m)
}
