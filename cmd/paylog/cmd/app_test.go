package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setTestEnv(t *testing.T, backend string) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for key, value := range map[string]string{
		"LEDGER_BACKEND":       backend,
		"PAYLOG_DATA_DIR":      filepath.Join(dir, "data"),
		"PAYLOG_LEDGER_DB":     "",
		"PAYLOG_PREFS_DB":      "",
		"PAYLOG_EXPORT_DIR":    "",
		"PAYLOG_KEYWORDS_FILE": "",
		"GOOGLE_AI_API_KEY":    "",
		"GROQ_API_KEY":         "",
		"OPENROUTER_API_KEY":   "",
		"AI_PRIMARY_PROVIDER":  "",
		"AI_MIN_INTERVAL":      "",
		"AI_TIMEOUT":           "",
		"PORT":                 "",
		"PAYLOG_USER_ID":       "tester",
	} {
		t.Setenv(key, value)
	}
	return dir
}

func TestOpenAppSQLite(t *testing.T) {
	dir := setTestEnv(t, "sqlite")
	ctx := context.Background()

	a, err := openApp(ctx)
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.conn)
	assert.FileExists(t, filepath.Join(dir, "data", "ledger.db"))
	assert.FileExists(t, filepath.Join(dir, "data", "prefs.db"))

	reply := a.bot.Handle(ctx, a.cfg.UserID, "/add total 1000 salary")
	assert.Contains(t, reply, "✅ **Transaction Successful!**")

	bal, err := a.engine.Balances(ctx)
	require.NoError(t, err)
	assert.True(t, bal.Total.Equal(decimal.NewFromInt(1000)), bal.Total.String())
}

func TestOpenAppMemory(t *testing.T) {
	setTestEnv(t, "memory")

	a, err := openApp(context.Background())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.conn)
	assert.Equal(t, "tester", a.cfg.UserID)
}

func TestOpenAppSheetsNeedsSpreadsheet(t *testing.T) {
	setTestEnv(t, "sheets")
	t.Setenv("SPREADSHEET_ID", "")

	_, err := openApp(context.Background())
	assert.ErrorContains(t, err, "sheets.spreadsheetId")
}

func TestOpenAppBadKeywordsFile(t *testing.T) {
	dir := setTestEnv(t, "memory")
	t.Setenv("PAYLOG_KEYWORDS_FILE", filepath.Join(dir, "missing.yaml"))

	_, err := openApp(context.Background())
	assert.Error(t, err)
}
