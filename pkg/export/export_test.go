package export

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/shunichi-ikebuchi/paylog/pkg/beancount"
	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
	"github.com/shunichi-ikebuchi/paylog/pkg/pathutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleTransactions() []ledger.Transaction {
	return []ledger.Transaction{
		{Row: 0, Date: date(2026, 3, 1), Type: ledger.KindAdd, WalletType: "total", Amount: decimal.RequireFromString("50000"), Description: "March salary", Category: "income"},
		{Row: 1, Date: date(2026, 3, 5), Type: ledger.KindSubtract, WalletType: "wallet", Amount: decimal.RequireFromString("250.50"), Description: "lunch, with team", Category: "food", Merchant: "Cafe Coffee Day"},
		{Row: 2, Date: date(2026, 3, 6), Type: ledger.KindTransfer, WalletType: "total_to_wallet", Amount: decimal.RequireFromString("2000"), Description: "Transfer from Total Stack to Wallet", Category: "transfer"},
		{Row: 3, Date: date(2026, 4, 2), Type: ledger.KindSubtract, WalletType: "wallet", Amount: decimal.RequireFromString("90"), Description: "auto", Category: "transport"},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, FilterMonth(sampleTransactions(), "2026-03")))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "transactions_march", buf.Bytes())
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "Date,Type,Wallet,Amount,Category,Description,Merchant\n", buf.String())
}

func TestFilterMonth(t *testing.T) {
	txns := sampleTransactions()
	assert.Len(t, FilterMonth(txns, "2026-03"), 3)
	assert.Len(t, FilterMonth(txns, "2026-04"), 1)
	assert.Empty(t, FilterMonth(txns, "2025-12"))
}

func TestExporterCSV(t *testing.T) {
	paths := pathutil.New(pathutil.Config{DataDir: t.TempDir()})
	x := NewExporter(paths)

	res, err := x.CSV(sampleTransactions(), "2026-04")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "02/04/2026,subtract,wallet,90,transport,auto,")

	_, err = x.CSV(sampleTransactions(), "April")
	assert.Error(t, err)
}

func TestExporterBeancountRegenerates(t *testing.T) {
	paths := pathutil.New(pathutil.Config{DataDir: t.TempDir()})
	x := NewExporter(paths)

	for i := 0; i < 2; i++ {
		res, err := x.Beancount(sampleTransactions(), "2026-03")
		require.NoError(t, err)
		assert.Equal(t, 3, res.Count)
	}

	data, err := os.ReadFile(mustMonthPath(t, paths, "2026-03"))
	require.NoError(t, err)
	content := string(data)

	// a second export replaces the file instead of appending to it
	assert.Equal(t, 1, strings.Count(content, "\"March salary\""))
	assert.Contains(t, content, "; ledger row 2\n2026-03-05 * \"Cafe Coffee Day\" \"lunch, with team\"")
	assert.Contains(t, content, "option \"operating_currency\" \"INR\"")
	assert.NotContains(t, content, "auto")
}

func mustMonthPath(t *testing.T, paths *pathutil.PathResolver, yearMonth string) string {
	t.Helper()
	p, err := paths.GetMonthFilePath(yearMonth)
	require.NoError(t, err)
	return p
}

func TestExporterBeancountAccountMapping(t *testing.T) {
	paths := pathutil.New(pathutil.Config{DataDir: t.TempDir()})
	m, err := beancount.ParseMapper([]byte("wallets:\n  wallet: Assets:Cash\n"))
	require.NoError(t, err)
	x := NewExporter(paths).WithAccountMapping(m)

	_, err = x.Beancount(sampleTransactions(), "2026-03")
	require.NoError(t, err)

	data, err := os.ReadFile(mustMonthPath(t, paths, "2026-03"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Assets:Cash")
	assert.NotContains(t, string(data), "Assets:Wallet")
	assert.Contains(t, string(data), "Assets:Total")
}
