// Package engine applies transactions, transfers and loan repayments to the
// ledger and keeps the balance checkpoint on every row consistent.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
)

// Engine mutates the ledger through a row store.
type Engine struct {
	store ledger.RowStore
	now   func() time.Time
}

// New creates an Engine on the given store.
func New(store ledger.RowStore) *Engine {
	return &Engine{
		store: store,
		now:   time.Now,
	}
}

// WithClock replaces the clock used to date rows.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Entry describes an income or expense to record.
type Entry struct {
	Kind        ledger.Kind
	Wallet      ledger.Wallet
	Amount      decimal.Decimal
	Description string
	Category    string
	Merchant    string
	Date        time.Time // zero means today
}

// TransferResult is the outcome of a wallet transfer. Balances are the
// balances after the transfer, or the unchanged balances when it failed.
type TransferResult struct {
	Success bool
	Message string
	ledger.Balances
}

// RecordTransaction appends an add or subtract row and returns the new
// balances. Balances may go negative.
func (e *Engine) RecordTransaction(ctx context.Context, entry Entry) (ledger.Balances, error) {
	if entry.Kind != ledger.KindAdd && entry.Kind != ledger.KindSubtract {
		return ledger.Balances{}, fmt.Errorf("%w: %q", ErrInvalidKind, entry.Kind)
	}
	if !entry.Wallet.Valid() {
		return ledger.Balances{}, fmt.Errorf("%w: %q", ErrInvalidWallet, entry.Wallet)
	}
	if !entry.Amount.IsPositive() {
		return ledger.Balances{}, fmt.Errorf("%w: %s", ErrInvalidAmount, entry.Amount)
	}

	current, err := e.Balances(ctx)
	if err != nil {
		return ledger.Balances{}, err
	}

	delta := entry.Amount
	if entry.Kind == ledger.KindSubtract {
		delta = delta.Neg()
	}
	next := current.Apply(entry.Wallet, delta)

	date := entry.Date
	if date.IsZero() {
		date = e.today()
	}

	txn := ledger.Transaction{
		Date:        date,
		Type:        entry.Kind,
		WalletType:  string(entry.Wallet),
		Amount:      entry.Amount,
		Description: entry.Description,
		Balances:    next,
		Category:    entry.Category,
		Merchant:    entry.Merchant,
	}

	if err := e.store.AppendRow(ctx, ledger.SheetTransactions, ledger.EncodeTransaction(txn)); err != nil {
		return ledger.Balances{}, storeError("append transaction", err)
	}

	slog.Debug("Recorded transaction",
		"type", entry.Kind,
		"wallet", entry.Wallet,
		"amount", entry.Amount.String(),
		"category", entry.Category,
	)

	return next, nil
}

// TransferBetweenWallets moves money from one balance to the other as a
// single transfer row.
func (e *Engine) TransferBetweenWallets(ctx context.Context, from, to ledger.Wallet, amount decimal.Decimal, description string) (TransferResult, error) {
	if !from.Valid() || !to.Valid() || from == to {
		return TransferResult{Message: "Invalid transfer direction"},
			fmt.Errorf("%w: %s to %s", ErrInvalidDirection, from, to)
	}
	if !amount.IsPositive() {
		return TransferResult{Message: "Amount must be positive"},
			fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}

	current, err := e.Balances(ctx)
	if err != nil {
		return TransferResult{Message: "Could not read balances"}, err
	}

	if current.Get(from).LessThan(amount) {
		return TransferResult{
				Message:  "Insufficient balance in " + from.Label(),
				Balances: current,
			},
			fmt.Errorf("%w: %s has %s, need %s", ErrInsufficientFunds, from, current.Get(from), amount)
	}

	next := current.Apply(from, amount.Neg()).Apply(to, amount)
	if description == "" {
		description = fmt.Sprintf("Transfer from %s to %s", from.Label(), to.Label())
	}

	txn := ledger.Transaction{
		Date:        e.today(),
		Type:        ledger.KindTransfer,
		WalletType:  ledger.TransferTag(from, to),
		Amount:      amount,
		Description: description,
		Balances:    next,
		Category:    "transfer",
	}

	if err := e.store.AppendRow(ctx, ledger.SheetTransactions, ledger.EncodeTransaction(txn)); err != nil {
		return TransferResult{Message: "Could not save transfer", Balances: current}, storeError("append transfer", err)
	}

	return TransferResult{
		Success:  true,
		Message:  fmt.Sprintf("Transferred ₹%s from %s to %s", amount.String(), from.Label(), to.Label()),
		Balances: next,
	}, nil
}

// UndoLast removes the most recent transaction row and returns it. The
// returned record is zero when the removed row could not be parsed.
func (e *Engine) UndoLast(ctx context.Context) (ledger.Transaction, error) {
	rows, err := e.store.Rows(ctx, ledger.SheetTransactions)
	if err != nil {
		return ledger.Transaction{}, storeError("read transactions", err)
	}
	if len(rows) == 0 {
		return ledger.Transaction{}, ErrNothingToUndo
	}

	last, _ := ledger.DecodeTransaction(rows[len(rows)-1])
	last.Row = len(rows) - 1

	if err := e.store.DeleteLastRow(ctx, ledger.SheetTransactions); err != nil {
		if errors.Is(err, ledger.ErrNoRows) {
			return ledger.Transaction{}, ErrNothingToUndo
		}
		return ledger.Transaction{}, storeError("delete last transaction", err)
	}

	return last, nil
}

// Balances returns the checkpoint of the last parseable transaction row,
// or zero balances for an empty ledger.
func (e *Engine) Balances(ctx context.Context) (ledger.Balances, error) {
	txns, err := e.Transactions(ctx)
	if err != nil {
		return ledger.Balances{}, err
	}
	if len(txns) == 0 {
		return ledger.Balances{Total: decimal.Zero, Wallet: decimal.Zero}, nil
	}
	return txns[len(txns)-1].Balances, nil
}

// Transactions returns every parseable transaction row in stored order.
func (e *Engine) Transactions(ctx context.Context) ([]ledger.Transaction, error) {
	rows, err := e.store.Rows(ctx, ledger.SheetTransactions)
	if err != nil {
		return nil, storeError("read transactions", err)
	}

	decoded := ledger.DecodeTransactions(rows)
	if decoded.Skipped > 0 {
		slog.Warn("Skipped malformed transaction rows", "skipped", decoded.Skipped, "total", len(rows))
	}
	return decoded.Records, nil
}

// Lending returns every parseable lending row in stored order.
func (e *Engine) Lending(ctx context.Context) ([]ledger.LendingRecord, error) {
	rows, err := e.store.Rows(ctx, ledger.SheetLending)
	if err != nil {
		return nil, storeError("read lending", err)
	}

	decoded := ledger.DecodeLendingRows(rows)
	if decoded.Skipped > 0 {
		slog.Warn("Skipped malformed lending rows", "skipped", decoded.Skipped, "total", len(rows))
	}
	return decoded.Records, nil
}

func (e *Engine) today() time.Time {
	now := e.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func samePerson(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
