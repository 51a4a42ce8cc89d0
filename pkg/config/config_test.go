package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load reads so the host environment does
// not leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PAYLOG_DATA_DIR", "PAYLOG_LEDGER_DB", "PAYLOG_PREFS_DB", "PAYLOG_EXPORT_DIR",
		"PAYLOG_KEYWORDS_FILE", "LEDGER_BACKEND", "GOOGLE_SHEETS_CREDS", "SPREADSHEET_ID",
		"GOOGLE_AI_API_KEY", "GROQ_API_KEY", "OPENROUTER_API_KEY", "AI_PRIMARY_PROVIDER",
		"AI_MIN_INTERVAL", "AI_TIMEOUT", "PORT", "DEBUG", "PAYLOG_USER_ID",
		"CORS_ALLOWED_ORIGINS", "PAYLOG_ACCOUNT_MAPPING",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.Equal(t, "google", cfg.AI.Primary)
	assert.Equal(t, 500*time.Millisecond, cfg.AI.MinInterval)
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Empty(t, cfg.Server.AllowedOrigins)
	assert.Equal(t, "local", cfg.UserID)
	assert.False(t, cfg.Debug)
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	content := "LEDGER_BACKEND=sheets\nSPREADSHEET_ID=abc123\nAI_MIN_INTERVAL=250\nAI_TIMEOUT=5s\nPORT=9090\nDEBUG=true\nGROQ_API_KEY=gk\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	// godotenv does not override variables that are already set, even empty ones
	for _, key := range []string{"LEDGER_BACKEND", "SPREADSHEET_ID", "AI_MIN_INTERVAL", "AI_TIMEOUT", "PORT", "DEBUG", "GROQ_API_KEY"} {
		os.Unsetenv(key)
	}

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, BackendSheets, cfg.Storage.Backend)
	assert.Equal(t, "abc123", cfg.Sheets.SpreadsheetID)
	assert.Equal(t, 250*time.Millisecond, cfg.AI.MinInterval)
	assert.Equal(t, 5*time.Second, cfg.AI.Timeout)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "gk", cfg.AI.GroqAPIKey)
}

func TestLoadMissingEnvFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"PORT", "eighty"},
		{"AI_TIMEOUT", "soon"},
		{"LEDGER_BACKEND", "postgres"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Storage: StorageConfig{Backend: BackendSheets, DataDir: "./data"},
		AI:      AIConfig{GroqAPIKey: "gk"},
		UserID:  "u1",
	}

	assert.NoError(t, cfg.Validate([]string{"storage", "dataDir"}, []string{"ai", "anyKey"}, []string{"userId"}))

	err := cfg.Validate([]string{"sheets", "spreadsheetId"}, []string{"sheets", "credentials"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sheets.spreadsheetId")
	assert.Contains(t, err.Error(), "sheets.credentials")
}

func TestCredentialsJSON(t *testing.T) {
	inline := SheetsConfig{Credentials: `{"type":"service_account"}`}
	data, err := inline.CredentialsJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"service_account"}`, string(data))

	path := filepath.Join(t.TempDir(), "creds.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"file"}`), 0o600))
	data, err = SheetsConfig{Credentials: path}.CredentialsJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"file"}`, string(data))

	_, err = SheetsConfig{}.CredentialsJSON()
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"https://a.example", "http://localhost:3000"},
		splitList(" https://a.example, ,http://localhost:3000 "))
}
