// Package config provides configuration management for PayLog.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Ledger backends.
const (
	BackendSQLite = "sqlite"
	BackendSheets = "sheets"
	BackendMemory = "memory"
)

// Config represents the application configuration.
type Config struct {
	Storage StorageConfig
	Sheets  SheetsConfig
	AI      AIConfig
	Server  ServerConfig
	UserID  string
	Debug   bool
}

// StorageConfig represents local storage configuration.
type StorageConfig struct {
	Backend      string
	DataDir      string
	LedgerDB     string
	PrefsDB      string
	ExportDir    string
	KeywordsFile string

	// AccountMappingFile maps categories to Beancount accounts (optional).
	AccountMappingFile string
}

// SheetsConfig represents Google Sheets ledger configuration.
type SheetsConfig struct {
	// Credentials is either a service account JSON document or a path to one.
	Credentials   string
	SpreadsheetID string
}

// AIConfig represents the language model provider configuration.
type AIConfig struct {
	Primary          string
	GoogleAPIKey     string
	GroqAPIKey       string
	OpenRouterAPIKey string
	MinInterval      time.Duration
	Timeout          time.Duration
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Port int
	// AllowedOrigins lists the CORS origins; empty allows any origin.
	AllowedOrigins []string
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	// Load .env file
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	port, err := parseIntEnv("PORT", 8000)
	if err != nil {
		return nil, err
	}

	minInterval, err := parseDurationEnv("AI_MIN_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}

	timeout, err := parseDurationEnv("AI_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	backend := strings.ToLower(getEnvOrDefault("LEDGER_BACKEND", BackendSQLite))
	switch backend {
	case BackendSQLite, BackendSheets, BackendMemory:
	default:
		return nil, fmt.Errorf("invalid LEDGER_BACKEND: %s (expected sqlite, sheets or memory)", backend)
	}

	config := &Config{
		Storage: StorageConfig{
			Backend:      backend,
			DataDir:      getEnvOrDefault("PAYLOG_DATA_DIR", "./data"),
			LedgerDB:     os.Getenv("PAYLOG_LEDGER_DB"),
			PrefsDB:      os.Getenv("PAYLOG_PREFS_DB"),
			ExportDir:    os.Getenv("PAYLOG_EXPORT_DIR"),
			KeywordsFile: os.Getenv("PAYLOG_KEYWORDS_FILE"),

			AccountMappingFile: os.Getenv("PAYLOG_ACCOUNT_MAPPING"),
		},
		Sheets: SheetsConfig{
			Credentials:   os.Getenv("GOOGLE_SHEETS_CREDS"),
			SpreadsheetID: os.Getenv("SPREADSHEET_ID"),
		},
		AI: AIConfig{
			Primary:          getEnvOrDefault("AI_PRIMARY_PROVIDER", "google"),
			GoogleAPIKey:     os.Getenv("GOOGLE_AI_API_KEY"),
			GroqAPIKey:       os.Getenv("GROQ_API_KEY"),
			OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
			MinInterval:      minInterval,
			Timeout:          timeout,
		},
		Server: ServerConfig{
			Port:           port,
			AllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		},
		UserID: getEnvOrDefault("PAYLOG_USER_ID", "local"),
		Debug:  os.Getenv("DEBUG") == "true",
	}

	return config, nil
}

// CredentialsJSON returns the service account document, reading it from
// disk when Credentials holds a path.
func (s SheetsConfig) CredentialsJSON() ([]byte, error) {
	creds := strings.TrimSpace(s.Credentials)
	if creds == "" {
		return nil, fmt.Errorf("GOOGLE_SHEETS_CREDS is not set")
	}
	if strings.HasPrefix(creds, "{") {
		return []byte(creds), nil
	}

	data, err := os.ReadFile(creds)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	return data, nil
}

// Validate validates the configuration.
// It checks if all required fields are set.
func (c *Config) Validate(required ...[]string) error {
	var missing []string

	for _, path := range required {
		if len(path) == 0 {
			continue
		}

		var value string
		switch path[0] {
		case "storage":
			if len(path) < 2 {
				continue
			}
			switch path[1] {
			case "backend":
				value = c.Storage.Backend
			case "dataDir":
				value = c.Storage.DataDir
			}
		case "sheets":
			if len(path) < 2 {
				continue
			}
			switch path[1] {
			case "credentials":
				value = c.Sheets.Credentials
			case "spreadsheetId":
				value = c.Sheets.SpreadsheetID
			}
		case "ai":
			if len(path) < 2 {
				continue
			}
			switch path[1] {
			case "anyKey":
				value = c.AI.GoogleAPIKey + c.AI.GroqAPIKey + c.AI.OpenRouterAPIKey
			case "googleApiKey":
				value = c.AI.GoogleAPIKey
			case "groqApiKey":
				value = c.AI.GroqAPIKey
			case "openRouterApiKey":
				value = c.AI.OpenRouterAPIKey
			}
		case "userId":
			value = c.UserID
		}

		if value == "" {
			missing = append(missing, joinPath(path))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}

	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv parses an int from an environment variable.
// Returns defaultValue if the environment variable is not set.
func parseIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %s: %s", key, value)
	}

	return parsed, nil
}

// parseDurationEnv parses a duration such as "500ms" from an environment
// variable. A bare number is read as milliseconds.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value for %s: %s", key, value)
	}

	return parsed, nil
}

// joinPath joins a path slice into a dot-separated string.
func joinPath(path []string) string {
	return strings.Join(path, ".")
}

// splitList reads a comma separated list, dropping empty items.
func splitList(value string) []string {
	var items []string
	for item := range strings.SplitSeq(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
