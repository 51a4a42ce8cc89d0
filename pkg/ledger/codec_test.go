package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTransaction(t *testing.T) {
	row := []string{"05/03/2026", "subtract", "wallet", "250.50", "lunch", "1000", "749.50", "food", "Cafe"}

	txn, err := DecodeTransaction(row)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), txn.Date)
	assert.Equal(t, KindSubtract, txn.Type)
	assert.Equal(t, "wallet", txn.WalletType)
	assert.True(t, txn.Amount.Equal(decimal.RequireFromString("250.5")))
	assert.True(t, txn.Balances.Wallet.Equal(decimal.RequireFromString("749.5")))
	assert.Equal(t, "food", txn.Category)
	assert.Equal(t, "Cafe", txn.Merchant)
	assert.True(t, txn.IsDebit())
}

func TestDecodeTransactionMissingOptionalColumns(t *testing.T) {
	row := []string{"05/03/2026", "add", "total", "100", "salary", "100", "0"}

	txn, err := DecodeTransaction(row)
	require.NoError(t, err)
	assert.Equal(t, "", txn.Category)
	assert.Equal(t, "other", txn.CategoryOrOther())
	assert.Equal(t, "", txn.Merchant)
}

func TestDecodeTransactionErrors(t *testing.T) {
	tests := []struct {
		name string
		row  []string
	}{
		{"too short", []string{"05/03/2026", "add", "total"}},
		{"bad date", []string{"2026-03-05", "add", "total", "1", "x", "1", "0"}},
		{"bad type", []string{"05/03/2026", "refund", "total", "1", "x", "1", "0"}},
		{"bad amount", []string{"05/03/2026", "add", "total", "abc", "x", "1", "0"}},
		{"bad balance", []string{"05/03/2026", "add", "total", "1", "x", "", "0"}},
		{"zero amount", []string{"05/03/2026", "add", "total", "0", "x", "0", "0"}},
		{"negative amount", []string{"05/03/2026", "subtract", "wallet", "-20", "x", "0", "20"}},
		{"unknown wallet", []string{"05/03/2026", "add", "savings", "1", "x", "1", "0"}},
		{"transfer tag on add", []string{"05/03/2026", "add", "total_to_wallet", "1", "x", "1", "0"}},
		{"plain wallet on transfer", []string{"05/03/2026", "transfer", "wallet", "1", "x", "1", "0"}},
		{"transfer to same wallet", []string{"05/03/2026", "transfer", "total_to_total", "1", "x", "1", "0"}},
		{"transfer to unknown wallet", []string{"05/03/2026", "transfer", "total_to_bank", "1", "x", "1", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeTransaction(tt.row); err == nil {
				t.Errorf("DecodeTransaction(%q) expected error", tt.row)
			}
		})
	}
}

func TestDecodeTransactionsSkipsMalformedRows(t *testing.T) {
	rows := [][]string{
		{"01/03/2026", "add", "total", "100", "a", "100", "0", "", ""},
		{"garbage"},
		{"01/03/2026", "subtract", "bank", "10", "x", "90", "0", "", ""},
		{"01/03/2026", "subtract", "total", "0", "x", "100", "0", "", ""},
		{"02/03/2026", "transfer", "wallet_to_total", "20", "t", "100", "0", "transfer", ""},
		{"02/03/2026", "subtract", "total", "40", "b", "60", "0", "food", ""},
	}

	decoded := DecodeTransactions(rows)
	assert.Equal(t, 3, decoded.Skipped)
	require.Len(t, decoded.Records, 3)
	assert.Equal(t, 0, decoded.Records[0].Row)
	assert.Equal(t, 4, decoded.Records[1].Row)
	assert.Equal(t, 5, decoded.Records[2].Row)
}

func TestEncodeTransactionColumnOrder(t *testing.T) {
	txn := Transaction{
		Date:        time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC),
		Type:        KindTransfer,
		WalletType:  TransferTag(WalletTotal, WalletWallet),
		Amount:      decimal.NewFromInt(500),
		Description: "Transfer",
		Balances:    Balances{Total: decimal.NewFromInt(1500), Wallet: decimal.NewFromInt(500)},
		Category:    "transfer",
	}

	assert.Equal(t,
		[]string{"09/01/2026", "transfer", "total_to_wallet", "500", "Transfer", "1500", "500", "transfer", ""},
		EncodeTransaction(txn))
}

func TestDecodeLendingDefaultsRemaining(t *testing.T) {
	rec, err := DecodeLending([]string{"01/02/2026", "John", "300", "lent", "dinner"})
	require.NoError(t, err)
	assert.True(t, rec.Remaining.Equal(decimal.NewFromInt(300)))
	assert.True(t, rec.ReturnDate.IsZero())
	assert.True(t, rec.Status.Outstanding())
}

func TestLendingRoundTrip(t *testing.T) {
	rec := LendingRecord{
		Date:        time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Person:      "Asha",
		Amount:      decimal.NewFromInt(200),
		Status:      StatusReturned,
		Description: "cab",
		ReturnDate:  time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC),
		ReturnTo:    "wallet",
		Remaining:   decimal.Zero,
	}

	got, err := DecodeLending(EncodeLending(rec))
	require.NoError(t, err)
	assert.Equal(t, rec.Person, got.Person)
	assert.Equal(t, rec.ReturnDate, got.ReturnDate)
	assert.True(t, got.Remaining.IsZero())
}

func TestDecodeLendingRejectsNegativeRemaining(t *testing.T) {
	_, err := DecodeLending([]string{"01/02/2026", "John", "300", "partial", "", "", "", "-5"})
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.AppendRow(ctx, SheetLending, []string{"a", "b"}))
	require.NoError(t, store.AppendRow(ctx, SheetLending, []string{"c"}))
	require.NoError(t, store.UpdateCell(ctx, SheetLending, 1, 3, "x"))

	rows, err := store.Rows(ctx, SheetLending)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "", "", "x"}}, rows)

	assert.ErrorIs(t, store.UpdateCell(ctx, SheetLending, 5, 0, "x"), ErrRowOutOfRange)

	require.NoError(t, store.DeleteLastRow(ctx, SheetLending))
	require.NoError(t, store.DeleteLastRow(ctx, SheetLending))
	assert.ErrorIs(t, store.DeleteLastRow(ctx, SheetLending), ErrNoRows)
}
