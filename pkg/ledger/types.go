// Package ledger defines the transaction and lending records kept by the
// expense tracker, their row layout, and the row store they are written to.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the on-row date format (dd/mm/yyyy).
const DateLayout = "02/01/2006"

// Kind is the direction of a transaction row.
type Kind string

const (
	KindAdd      Kind = "add"
	KindSubtract Kind = "subtract"
	KindTransfer Kind = "transfer"
)

// Wallet names one of the two tracked balances.
type Wallet string

const (
	WalletTotal  Wallet = "total"
	WalletWallet Wallet = "wallet"
)

// Valid reports whether w is one of the two tracked balances.
func (w Wallet) Valid() bool {
	return w == WalletTotal || w == WalletWallet
}

// Label returns the user-facing name of the wallet.
func (w Wallet) Label() string {
	if w == WalletTotal {
		return "Total Stack"
	}
	return "Wallet"
}

// TransferTag builds the wallet_type value stored on a transfer row.
func TransferTag(from, to Wallet) string {
	return string(from) + "_to_" + string(to)
}

// Status is the state of a lending record.
type Status string

const (
	StatusLent     Status = "lent"
	StatusPartial  Status = "partial"
	StatusReturned Status = "returned"
)

// Outstanding reports whether a loan in this status still has money owed.
func (s Status) Outstanding() bool {
	return s == StatusLent || s == StatusPartial
}

// Balances is a checkpoint of both tracked balances.
type Balances struct {
	Total  decimal.Decimal
	Wallet decimal.Decimal
}

// Get returns the balance of the named wallet.
func (b Balances) Get(w Wallet) decimal.Decimal {
	if w == WalletTotal {
		return b.Total
	}
	return b.Wallet
}

// Apply returns the balances after adding delta to the named wallet.
func (b Balances) Apply(w Wallet, delta decimal.Decimal) Balances {
	if w == WalletTotal {
		b.Total = b.Total.Add(delta)
	} else {
		b.Wallet = b.Wallet.Add(delta)
	}
	return b
}

// Transaction is one row of the transactions sheet. Every row carries a full
// balance checkpoint taken after the row was applied.
type Transaction struct {
	Row         int
	Date        time.Time
	Type        Kind
	WalletType  string
	Amount      decimal.Decimal
	Description string
	Balances    Balances
	Category    string
	Merchant    string
}

// IsDebit reports whether the row is an expense.
func (t Transaction) IsDebit() bool {
	return t.Type == KindSubtract
}

// IsCredit reports whether the row is income.
func (t Transaction) IsCredit() bool {
	return t.Type == KindAdd
}

// CategoryOrOther returns the category, or "other" when the row has none.
func (t Transaction) CategoryOrOther() string {
	if t.Category == "" {
		return "other"
	}
	return t.Category
}

// LendingRecord is one row of the lending sheet.
type LendingRecord struct {
	Row         int
	Date        time.Time
	Person      string
	Amount      decimal.Decimal
	Status      Status
	Description string
	ReturnDate  time.Time // zero when not yet returned or unparseable
	ReturnTo    string
	Remaining   decimal.Decimal
}
