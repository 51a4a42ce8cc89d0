package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *Connection {
	t.Helper()

	conn, err := Open(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestRowStoreAppendAndRead(t *testing.T) {
	ctx := context.Background()
	store := NewRowStore(openTestDB(t))

	require.NoError(t, store.AppendRow(ctx, ledger.SheetTransactions,
		[]string{"01/03/2026", "add", "total", "100", "salary", "100", "0", "income", ""}))
	// short row is padded
	require.NoError(t, store.AppendRow(ctx, ledger.SheetTransactions,
		[]string{"02/03/2026", "subtract", "total"}))

	rows, err := store.Rows(ctx, ledger.SheetTransactions)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "salary", rows[0][ledger.TxnColDescription])
	assert.Len(t, rows[1], len(ledger.TransactionHeader))
	assert.Equal(t, "", rows[1][ledger.TxnColMerchant])

	lending, err := store.Rows(ctx, ledger.SheetLending)
	require.NoError(t, err)
	assert.Empty(t, lending)
}

func TestRowStoreUpdateCell(t *testing.T) {
	ctx := context.Background()
	store := NewRowStore(openTestDB(t))

	for _, person := range []string{"John", "Asha"} {
		require.NoError(t, store.AppendRow(ctx, ledger.SheetLending,
			[]string{"01/03/2026", person, "100", "lent", "", "", "", "100"}))
	}

	require.NoError(t, store.UpdateCell(ctx, ledger.SheetLending, 1, ledger.LendColStatus, "partial"))
	require.NoError(t, store.UpdateCell(ctx, ledger.SheetLending, 1, ledger.LendColRemaining, "40"))

	rows, err := store.Rows(ctx, ledger.SheetLending)
	require.NoError(t, err)
	assert.Equal(t, "lent", rows[0][ledger.LendColStatus])
	assert.Equal(t, "partial", rows[1][ledger.LendColStatus])
	assert.Equal(t, "40", rows[1][ledger.LendColRemaining])

	err = store.UpdateCell(ctx, ledger.SheetLending, 7, ledger.LendColStatus, "returned")
	assert.ErrorIs(t, err, ledger.ErrRowOutOfRange)

	err = store.UpdateCell(ctx, ledger.SheetLending, 0, 99, "x")
	assert.Error(t, err)
}

func TestRowStoreDeleteLastRow(t *testing.T) {
	ctx := context.Background()
	store := NewRowStore(openTestDB(t))

	assert.ErrorIs(t, store.DeleteLastRow(ctx, ledger.SheetTransactions), ledger.ErrNoRows)

	require.NoError(t, store.AppendRow(ctx, ledger.SheetTransactions, []string{"a"}))
	require.NoError(t, store.AppendRow(ctx, ledger.SheetTransactions, []string{"b"}))
	require.NoError(t, store.DeleteLastRow(ctx, ledger.SheetTransactions))

	rows, err := store.Rows(ctx, ledger.SheetTransactions)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0][0])

	// positions stay contiguous after a delete and a new append
	require.NoError(t, store.AppendRow(ctx, ledger.SheetTransactions, []string{"c"}))
	require.NoError(t, store.UpdateCell(ctx, ledger.SheetTransactions, 1, 0, "d"))
	rows, err = store.Rows(ctx, ledger.SheetTransactions)
	require.NoError(t, err)
	assert.Equal(t, "d", rows[1][0])
}

func TestRowStoreUnknownSheet(t *testing.T) {
	store := NewRowStore(openTestDB(t))
	err := store.AppendRow(context.Background(), ledger.Sheet("accounts"), []string{"x"})
	assert.Error(t, err)
}

func TestMetadataAndStats(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	meta := NewMetadata(conn)

	value, err := meta.Get(ctx, MetaLastExport)
	require.NoError(t, err)
	assert.Equal(t, "", value)

	require.NoError(t, meta.Set(ctx, MetaLastExport, "2026-03-01T10:00:00Z"))
	require.NoError(t, meta.Set(ctx, MetaLastExport, "2026-03-02T10:00:00Z"))

	require.NoError(t, NewRowStore(conn).AppendRow(ctx, ledger.SheetLending, []string{"x"}))

	stats, err := GetStats(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalTransactions)
	assert.Equal(t, 1, stats.TotalLending)
	assert.Equal(t, "2026-03-02T10:00:00Z", stats.LastExport)
}
