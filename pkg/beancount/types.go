// Package beancount renders ledger rows as Beancount transactions and
// writes them to monthly files.
package beancount

import "github.com/shopspring/decimal"

// DefaultCurrency is the commodity used for every posting.
const DefaultCurrency = "INR"

// Transaction represents a Beancount transaction.
type Transaction struct {
	Date      string            // YYYY-MM-DD
	Narration string            // Transaction description
	Payee     string            // Payee name (optional)
	Tags      []string          // Tags (e.g., ["lending"])
	Metadata  map[string]string // Metadata key-value pairs
	Postings  []Posting         // Transaction postings
}

// Posting represents a posting in a Beancount transaction.
type Posting struct {
	Account  string          // Account name (e.g., "Assets:Wallet")
	Amount   decimal.Decimal // positive for debit, negative for credit
	Currency string          // Currency code (e.g., "INR")
	Comment  string          // Posting comment (optional)
}
