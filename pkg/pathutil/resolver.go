// Package pathutil provides centralized path management for the ledger
// database, preference store and exports.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathResolver manages paths for the data directory and everything under it.
type PathResolver struct {
	dataDir      string
	ledgerDBPath string
	prefsDBPath  string
	exportDir    string
	keywordsFile string
}

// Config represents the configuration for PathResolver.
type Config struct {
	// DataDir is the root directory for all PayLog data (e.g., ~/.paylog)
	DataDir string
	// LedgerDBPath is the SQLite ledger file
	LedgerDBPath string
	// PrefsDBPath is the bbolt preference store file
	PrefsDBPath string
	// ExportDir receives CSV and Beancount exports
	ExportDir string
	// KeywordsFile overrides the built-in category keyword table (optional)
	KeywordsFile string
}

// New creates a new PathResolver with the given configuration.
// Empty paths default to files under DataDir:
//
//	{DataDir}/ledger.db, {DataDir}/prefs.db, {DataDir}/exports
func New(config Config) *PathResolver {
	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "./data"
	}

	ledgerDB := config.LedgerDBPath
	if ledgerDB == "" {
		ledgerDB = filepath.Join(dataDir, "ledger.db")
	}

	prefsDB := config.PrefsDBPath
	if prefsDB == "" {
		prefsDB = filepath.Join(dataDir, "prefs.db")
	}

	exportDir := config.ExportDir
	if exportDir == "" {
		exportDir = filepath.Join(dataDir, "exports")
	}

	return &PathResolver{
		dataDir:      dataDir,
		ledgerDBPath: ledgerDB,
		prefsDBPath:  prefsDB,
		exportDir:    exportDir,
		keywordsFile: config.KeywordsFile,
	}
}

// GetDataDir returns the data root directory.
func (p *PathResolver) GetDataDir() string {
	return p.dataDir
}

// GetLedgerDBPath returns the SQLite ledger file path.
func (p *PathResolver) GetLedgerDBPath() string {
	return p.ledgerDBPath
}

// GetPrefsDBPath returns the preference store file path.
func (p *PathResolver) GetPrefsDBPath() string {
	return p.prefsDBPath
}

// GetExportDir returns the export directory.
func (p *PathResolver) GetExportDir() string {
	return p.exportDir
}

// GetKeywordsFile returns the keyword table override, or "" for the built-in table.
func (p *PathResolver) GetKeywordsFile() string {
	return p.keywordsFile
}

// GetYearDir returns the export directory for a year.
// Example: ~/.paylog/exports/2026
func (p *PathResolver) GetYearDir(year string) string {
	return filepath.Join(p.exportDir, year)
}

// GetMonthFilePath returns the Beancount export file for a month.
// yearMonth should be in YYYY-MM format.
// Example: ~/.paylog/exports/2026/2026-03.beancount
func (p *PathResolver) GetMonthFilePath(yearMonth string) (string, error) {
	if err := checkYearMonth(yearMonth); err != nil {
		return "", err
	}

	year := yearMonth[:4]
	return filepath.Join(p.GetYearDir(year), yearMonth+".beancount"), nil
}

// GetCSVExportPath returns the CSV export file for a month.
// Example: ~/.paylog/exports/transactions_2026-03.csv
func (p *PathResolver) GetCSVExportPath(yearMonth string) (string, error) {
	if err := checkYearMonth(yearMonth); err != nil {
		return "", err
	}
	return filepath.Join(p.exportDir, fmt.Sprintf("transactions_%s.csv", yearMonth)), nil
}

func checkYearMonth(yearMonth string) error {
	parts := strings.Split(yearMonth, "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return fmt.Errorf("invalid year-month format: %s. Expected YYYY-MM", yearMonth)
	}
	return nil
}

// EnsureDir creates a directory if it doesn't exist.
// It creates all parent directories as needed (like mkdir -p).
func (p *PathResolver) EnsureDir(dirPath string) error {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dirPath, err)
	}
	return nil
}

// EnsureParentDir ensures the parent directory of a file exists.
func (p *PathResolver) EnsureParentDir(filePath string) error {
	return p.EnsureDir(filepath.Dir(filePath))
}

// FileExists checks if a file exists.
func (p *PathResolver) FileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}
