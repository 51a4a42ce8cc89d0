package beancount

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Converter converts ledger transactions to Beancount format.
type Converter struct {
	currency string
	mapper   *Mapper
}

// NewConverter creates a new Converter.
func NewConverter(currency string) *Converter {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Converter{currency: currency}
}

// WithMapper sets the account mapping consulted before the generated
// account names.
func (c *Converter) WithMapper(m *Mapper) *Converter {
	c.mapper = m
	return c
}

// Convert converts a ledger row into a balanced two-posting transaction.
func (c *Converter) Convert(txn ledger.Transaction) (Transaction, error) {
	var debit, credit string

	switch txn.Type {
	case ledger.KindAdd:
		debit = c.walletAccount(txn.WalletType)
		credit = c.incomeAccount(txn.CategoryOrOther())
	case ledger.KindSubtract:
		debit = c.expenseAccount(txn.CategoryOrOther())
		credit = c.walletAccount(txn.WalletType)
	case ledger.KindTransfer:
		from, to, ok := strings.Cut(txn.WalletType, "_to_")
		if !ok {
			return Transaction{}, fmt.Errorf("invalid transfer wallet type %q", txn.WalletType)
		}
		debit = c.walletAccount(to)
		credit = c.walletAccount(from)
	default:
		return Transaction{}, fmt.Errorf("unsupported transaction type %q", txn.Type)
	}

	var tags []string
	if txn.Category == "lending" {
		tags = []string{"lending"}
	}

	metadata := map[string]string{}
	if txn.Category != "" {
		metadata["category"] = txn.Category
	}

	return Transaction{
		Date:      txn.Date.Format("2006-01-02"),
		Narration: txn.Description,
		Payee:     txn.Merchant,
		Tags:      tags,
		Metadata:  metadata,
		Postings: []Posting{
			{Account: debit, Amount: txn.Amount, Currency: c.currency},
			{Account: credit, Amount: txn.Amount.Neg(), Currency: c.currency},
		},
	}, nil
}

// FormatTransaction formats a Beancount transaction as a string.
func (c *Converter) FormatTransaction(txn Transaction) string {
	var sb strings.Builder

	// Transaction header
	sb.WriteString(txn.Date)
	sb.WriteString(" *")
	if txn.Payee != "" {
		sb.WriteString(fmt.Sprintf(" %q", txn.Payee))
	}
	sb.WriteString(fmt.Sprintf(" %q", txn.Narration))
	if len(txn.Tags) > 0 {
		sb.WriteString(" #")
		sb.WriteString(strings.Join(txn.Tags, " #"))
	}
	sb.WriteString("\n")

	keys := make([]string, 0, len(txn.Metadata))
	for k := range txn.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("  %s: %q\n", k, txn.Metadata[k]))
	}

	// Postings
	for _, posting := range txn.Postings {
		sb.WriteString("  ")
		sb.WriteString(posting.Account)

		// Right-align amount (typical Beancount style)
		spaces := int(math.Max(1, 60-float64(len(posting.Account))))
		sb.WriteString(strings.Repeat(" ", spaces))

		sb.WriteString(fmt.Sprintf("%s %s", posting.Amount.StringFixed(2), posting.Currency))

		if posting.Comment != "" {
			sb.WriteString(fmt.Sprintf(" ; %s", posting.Comment))
		}

		sb.WriteString("\n")
	}

	return sb.String()
}

func (c *Converter) walletAccount(wallet string) string {
	account := "Assets:Wallet"
	if ledger.Wallet(wallet) == ledger.WalletTotal {
		account = "Assets:Total"
	}
	if c.mapper != nil {
		return c.mapper.WalletAccount(wallet, account)
	}
	return account
}

func (c *Converter) incomeAccount(category string) string {
	account := "Income:" + accountSegment(category)
	if c.mapper != nil {
		return c.mapper.IncomeAccount(category, account)
	}
	return account
}

func (c *Converter) expenseAccount(category string) string {
	account := "Expenses:" + accountSegment(category)
	if c.mapper != nil {
		return c.mapper.ExpenseAccount(category, account)
	}
	return account
}

// accountSegment turns a category into a valid account component
// ("eating out" becomes "EatingOut").
func accountSegment(category string) string {
	spaced := strings.NewReplacer("_", " ", "-", " ", ":", " ").Replace(strings.ToLower(category))
	segment := strings.Join(strings.Fields(cases.Title(language.English).String(spaced)), "")
	if segment == "" {
		return "Other"
	}
	return segment
}
