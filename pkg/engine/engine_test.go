package engine

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var fixedNow = time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

func newTestEngine() (*Engine, *ledger.MemoryStore) {
	store := ledger.NewMemoryStore()
	return New(store).WithClock(func() time.Time { return fixedNow }), store
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRecordTransaction(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine()

	bal, err := e.RecordTransaction(ctx, Entry{Kind: ledger.KindAdd, Wallet: ledger.WalletTotal, Amount: dec("5000"), Description: "salary", Category: "income"})
	require.NoError(t, err)
	assert.True(t, bal.Total.Equal(dec("5000")))
	assert.True(t, bal.Wallet.IsZero())

	bal, err = e.RecordTransaction(ctx, Entry{Kind: ledger.KindSubtract, Wallet: ledger.WalletWallet, Amount: dec("250.50"), Description: "lunch", Category: "food", Merchant: "Cafe"})
	require.NoError(t, err)
	// overdraft is allowed
	assert.True(t, bal.Wallet.Equal(dec("-250.5")))
	assert.True(t, bal.Total.Equal(dec("5000")))

	txns, err := e.Transactions(ctx)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), txns[1].Date)
	assert.Equal(t, "Cafe", txns[1].Merchant)
	assert.Equal(t, "wallet", txns[1].WalletType)
}

func TestRecordTransactionDateOverride(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine()

	yesterday := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	_, err := e.RecordTransaction(ctx, Entry{Kind: ledger.KindSubtract, Wallet: ledger.WalletTotal, Amount: dec("10"), Date: yesterday})
	require.NoError(t, err)

	txns, err := e.Transactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, yesterday, txns[0].Date)
}

func TestRecordTransactionValidation(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  error
	}{
		{"zero amount", Entry{Kind: ledger.KindAdd, Wallet: ledger.WalletTotal, Amount: decimal.Zero}, ErrInvalidAmount},
		{"negative amount", Entry{Kind: ledger.KindAdd, Wallet: ledger.WalletTotal, Amount: dec("-5")}, ErrInvalidAmount},
		{"transfer tag as wallet", Entry{Kind: ledger.KindAdd, Wallet: ledger.Wallet("total_to_wallet"), Amount: dec("5")}, ErrInvalidWallet},
		{"transfer kind", Entry{Kind: ledger.KindTransfer, Wallet: ledger.WalletTotal, Amount: dec("5")}, ErrInvalidKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, store := newTestEngine()
			_, err := e.RecordTransaction(context.Background(), tt.entry)
			assert.ErrorIs(t, err, tt.want)

			rows, _ := store.Rows(context.Background(), ledger.SheetTransactions)
			assert.Empty(t, rows)
		})
	}
}

func TestBalancesUseLastParseableRow(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine()

	_, err := e.RecordTransaction(ctx, Entry{Kind: ledger.KindAdd, Wallet: ledger.WalletTotal, Amount: dec("100")})
	require.NoError(t, err)
	require.NoError(t, store.AppendRow(ctx, ledger.SheetTransactions, []string{"garbage"}))

	bal, err := e.Balances(ctx)
	require.NoError(t, err)
	assert.True(t, bal.Total.Equal(dec("100")))
}

// Every checkpoint must equal the fold of deltas over its prefix.
func TestBalanceReplay(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine()
	rng := rand.New(rand.NewSource(42))
	wallets := []ledger.Wallet{ledger.WalletTotal, ledger.WalletWallet}

	for i := 0; i < 200; i++ {
		amount := decimal.NewFromInt(int64(rng.Intn(1000) + 1)).Div(decimal.NewFromInt(4))
		w := wallets[rng.Intn(2)]

		switch rng.Intn(3) {
		case 0:
			_, err := e.RecordTransaction(ctx, Entry{Kind: ledger.KindAdd, Wallet: w, Amount: amount})
			require.NoError(t, err)
		case 1:
			_, err := e.RecordTransaction(ctx, Entry{Kind: ledger.KindSubtract, Wallet: w, Amount: amount})
			require.NoError(t, err)
		case 2:
			other := wallets[1-indexOf(wallets, w)]
			_, err := e.TransferBetweenWallets(ctx, w, other, amount, "")
			if err != nil {
				require.ErrorIs(t, err, ErrInsufficientFunds)
			}
		}
	}

	txns, err := e.Transactions(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, txns)

	running := ledger.Balances{Total: decimal.Zero, Wallet: decimal.Zero}
	for _, txn := range txns {
		switch txn.Type {
		case ledger.KindAdd:
			running = running.Apply(ledger.Wallet(txn.WalletType), txn.Amount)
		case ledger.KindSubtract:
			running = running.Apply(ledger.Wallet(txn.WalletType), txn.Amount.Neg())
		case ledger.KindTransfer:
			from, to, ok := strings.Cut(txn.WalletType, "_to_")
			require.True(t, ok)
			running = running.Apply(ledger.Wallet(from), txn.Amount.Neg()).Apply(ledger.Wallet(to), txn.Amount)
		}
		assert.True(t, running.Total.Equal(txn.Balances.Total), "row %d total", txn.Row)
		assert.True(t, running.Wallet.Equal(txn.Balances.Wallet), "row %d wallet", txn.Row)
	}
}

func indexOf(ws []ledger.Wallet, w ledger.Wallet) int {
	for i, x := range ws {
		if x == w {
			return i
		}
	}
	return -1
}

func TestTransferBetweenWallets(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine()

	_, err := e.RecordTransaction(ctx, Entry{Kind: ledger.KindAdd, Wallet: ledger.WalletTotal, Amount: dec("1000")})
	require.NoError(t, err)

	res, err := e.TransferBetweenWallets(ctx, ledger.WalletTotal, ledger.WalletWallet, dec("400"), "")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Total.Equal(dec("600")))
	assert.True(t, res.Wallet.Equal(dec("400")))

	txns, err := e.Transactions(ctx)
	require.NoError(t, err)
	last := txns[len(txns)-1]
	assert.Equal(t, ledger.KindTransfer, last.Type)
	assert.Equal(t, "total_to_wallet", last.WalletType)
	assert.Equal(t, "transfer", last.Category)
	assert.Equal(t, "", last.Merchant)
}

func TestTransferGuard(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine()

	_, err := e.RecordTransaction(ctx, Entry{Kind: ledger.KindAdd, Wallet: ledger.WalletWallet, Amount: dec("100")})
	require.NoError(t, err)

	res, err := e.TransferBetweenWallets(ctx, ledger.WalletWallet, ledger.WalletTotal, dec("100.01"), "")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.False(t, res.Success)
	assert.Equal(t, "Insufficient balance in Wallet", res.Message)
	assert.True(t, res.Wallet.Equal(dec("100")))

	res, err = e.TransferBetweenWallets(ctx, ledger.WalletTotal, ledger.WalletWallet, dec("1"), "")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, "Insufficient balance in Total Stack", res.Message)

	_, err = e.TransferBetweenWallets(ctx, ledger.WalletWallet, ledger.WalletWallet, dec("1"), "")
	assert.ErrorIs(t, err, ErrInvalidDirection)

	_, err = e.TransferBetweenWallets(ctx, ledger.Wallet("bank"), ledger.WalletWallet, dec("1"), "")
	assert.ErrorIs(t, err, ErrInvalidDirection)

	rows, _ := store.Rows(ctx, ledger.SheetTransactions)
	assert.Len(t, rows, 1)
}

func TestApplyRepaymentOldestFirst(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine()

	require.NoError(t, e.RecordLoan(ctx, "John", dec("100"), "dinner"))
	require.NoError(t, e.RecordLoan(ctx, "Asha", dec("50"), ""))
	require.NoError(t, e.RecordLoan(ctx, "John", dec("200"), "rent share"))

	res, err := e.ApplyRepayment(ctx, "john", dec("150"), ledger.WalletWallet)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Applied.Equal(dec("150")))
	assert.True(t, res.Unmatched.IsZero())
	assert.Equal(t, 1, res.Closed)
	assert.Equal(t, 1, res.Partial)
	assert.Equal(t, "₹150 applied to john's loans", res.Message)

	loans, err := e.Lending(ctx)
	require.NoError(t, err)
	require.Len(t, loans, 3)

	assert.Equal(t, ledger.StatusReturned, loans[0].Status)
	assert.True(t, loans[0].Remaining.IsZero())
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), loans[0].ReturnDate)
	assert.Equal(t, "wallet", loans[0].ReturnTo)

	assert.Equal(t, ledger.StatusLent, loans[1].Status)

	assert.Equal(t, ledger.StatusPartial, loans[2].Status)
	assert.True(t, loans[2].Remaining.Equal(dec("150")))

	txns, err := e.Transactions(ctx)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, ledger.KindAdd, txns[0].Type)
	assert.Equal(t, "lending", txns[0].Category)
	assert.Equal(t, "Returned by john", txns[0].Description)
	assert.True(t, txns[0].Balances.Wallet.Equal(dec("150")))

	outstanding, err := e.OutstandingBalance(ctx, "JOHN")
	require.NoError(t, err)
	assert.True(t, outstanding.Equal(dec("150")))
}

func TestApplyRepaymentOverpayment(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine()

	require.NoError(t, e.RecordLoan(ctx, "Ravi", dec("80"), ""))

	res, err := e.ApplyRepayment(ctx, "Ravi", dec("100"), ledger.WalletTotal)
	require.NoError(t, err)
	assert.True(t, res.Applied.Equal(dec("80")))
	assert.True(t, res.Unmatched.Equal(dec("20")))
	assert.Contains(t, res.Message, "₹20 more than owed")

	bal, err := e.Balances(ctx)
	require.NoError(t, err)
	assert.True(t, bal.Total.Equal(dec("80")))
}

func TestApplyRepaymentNoOutstandingLoan(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine()

	require.NoError(t, e.RecordLoan(ctx, "Ravi", dec("80"), ""))
	_, err := e.ApplyRepayment(ctx, "Ravi", dec("80"), ledger.WalletWallet)
	require.NoError(t, err)

	res, err := e.ApplyRepayment(ctx, "Ravi", dec("10"), ledger.WalletWallet)
	assert.ErrorIs(t, err, ErrNoOutstandingLoan)
	assert.False(t, res.Success)

	_, err = e.ApplyRepayment(ctx, "Nobody", dec("10"), ledger.WalletWallet)
	assert.ErrorIs(t, err, ErrNoOutstandingLoan)

	rows, _ := store.Rows(ctx, ledger.SheetTransactions)
	assert.Len(t, rows, 1)
}

// Lent amounts are always split between what was applied and what remains.
func TestLoanConservation(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine()
	rng := rand.New(rand.NewSource(7))
	people := []string{"John", "Asha", "Ravi"}

	lent := map[string]decimal.Decimal{}
	applied := map[string]decimal.Decimal{}

	for i := 0; i < 60; i++ {
		person := people[rng.Intn(len(people))]
		amount := decimal.NewFromInt(int64(rng.Intn(300) + 1))

		if rng.Intn(2) == 0 {
			require.NoError(t, e.RecordLoan(ctx, person, amount, ""))
			lent[person] = lent[person].Add(amount)
			continue
		}

		res, err := e.ApplyRepayment(ctx, person, amount, ledger.WalletWallet)
		if err != nil {
			require.ErrorIs(t, err, ErrNoOutstandingLoan)
		}
		applied[person] = applied[person].Add(res.Applied)
		assert.True(t, res.Applied.Add(res.Unmatched).Equal(amount))
	}

	for _, person := range people {
		outstanding, err := e.OutstandingBalance(ctx, person)
		require.NoError(t, err)
		assert.True(t, outstanding.Add(applied[person]).Equal(lent[person]), person)
		assert.False(t, outstanding.IsNegative())
	}
}

func TestRecordLoanValidation(t *testing.T) {
	e, _ := newTestEngine()
	assert.ErrorIs(t, e.RecordLoan(context.Background(), "John", decimal.Zero, ""), ErrInvalidAmount)
	assert.Error(t, e.RecordLoan(context.Background(), "  ", dec("5"), ""))
}

func TestUndoLast(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine()

	_, err := e.UndoLast(ctx)
	assert.ErrorIs(t, err, ErrNothingToUndo)

	_, err = e.RecordTransaction(ctx, Entry{Kind: ledger.KindAdd, Wallet: ledger.WalletTotal, Amount: dec("100")})
	require.NoError(t, err)
	_, err = e.RecordTransaction(ctx, Entry{Kind: ledger.KindSubtract, Wallet: ledger.WalletTotal, Amount: dec("30"), Description: "taxi"})
	require.NoError(t, err)

	undone, err := e.UndoLast(ctx)
	require.NoError(t, err)
	assert.Equal(t, "taxi", undone.Description)

	bal, err := e.Balances(ctx)
	require.NoError(t, err)
	assert.True(t, bal.Total.Equal(dec("100")))
}

func TestStoreFailuresAreWrapped(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection reset")

	t.Run("read", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := ledger.NewMockRowStore(ctrl)
		store.EXPECT().Rows(gomock.Any(), ledger.SheetTransactions).Return(nil, boom)

		_, err := New(store).RecordTransaction(ctx, Entry{Kind: ledger.KindAdd, Wallet: ledger.WalletTotal, Amount: dec("1")})
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("append", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := ledger.NewMockRowStore(ctrl)
		store.EXPECT().Rows(gomock.Any(), ledger.SheetTransactions).Return(nil, nil)
		store.EXPECT().AppendRow(gomock.Any(), ledger.SheetTransactions, gomock.Len(len(ledger.TransactionHeader))).Return(boom)

		_, err := New(store).RecordTransaction(ctx, Entry{Kind: ledger.KindAdd, Wallet: ledger.WalletTotal, Amount: dec("1")})
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})

	t.Run("update loan", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := ledger.NewMockRowStore(ctrl)
		store.EXPECT().Rows(gomock.Any(), ledger.SheetLending).Return([][]string{
			{"01/03/2026", "John", "100", "lent", "", "", "", "100"},
		}, nil)
		gomock.InOrder(
			store.EXPECT().Rows(gomock.Any(), ledger.SheetTransactions).Return(nil, nil),
			store.EXPECT().AppendRow(gomock.Any(), ledger.SheetTransactions, gomock.Len(len(ledger.TransactionHeader))).Return(nil),
			store.EXPECT().UpdateCell(gomock.Any(), ledger.SheetLending, 0, ledger.LendColStatus, "returned").Return(boom),
		)

		res, err := New(store).ApplyRepayment(ctx, "John", dec("100"), ledger.WalletWallet)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.False(t, res.Success)
	})

	t.Run("repayment credit", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := ledger.NewMockRowStore(ctrl)
		store.EXPECT().Rows(gomock.Any(), ledger.SheetLending).Return([][]string{
			{"01/03/2026", "John", "100", "lent", "", "", "", "100"},
		}, nil)
		store.EXPECT().Rows(gomock.Any(), ledger.SheetTransactions).Return(nil, nil)
		store.EXPECT().AppendRow(gomock.Any(), ledger.SheetTransactions, gomock.Any()).Return(boom)
		// no UpdateCell: the loan must stay open when the credit is lost

		res, err := New(store).ApplyRepayment(ctx, "John", dec("60"), ledger.WalletWallet)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.False(t, res.Success)
		assert.True(t, res.Applied.Equal(dec("60")))
	})

	t.Run("undo", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := ledger.NewMockRowStore(ctrl)
		store.EXPECT().Rows(gomock.Any(), ledger.SheetTransactions).Return([][]string{{"x"}}, nil)
		store.EXPECT().DeleteLastRow(gomock.Any(), ledger.SheetTransactions).Return(boom)

		_, err := New(store).UndoLast(ctx)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})
}
