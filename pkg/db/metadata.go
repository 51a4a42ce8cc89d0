package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
)

// Metadata keys.
const (
	MetaLastExport       = "last_export"
	MetaLastExportFormat = "last_export_format"
)

// Metadata manages key/value metadata about the ledger.
type Metadata struct {
	conn *Connection
}

// NewMetadata creates a new Metadata instance.
func NewMetadata(conn *Connection) *Metadata {
	return &Metadata{conn: conn}
}

// Get retrieves a metadata value. A missing key yields an empty string.
func (m *Metadata) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := m.conn.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata: %w", err)
	}

	return value, nil
}

// Set sets a metadata value.
func (m *Metadata) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO metadata (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := m.conn.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set metadata: %w", err)
	}

	return nil
}

// Stats represents ledger statistics.
type Stats struct {
	TotalTransactions int
	TotalLending      int
	LastExport        string
}

// GetStats retrieves row counts and the last export time.
func GetStats(ctx context.Context, conn *Connection) (*Stats, error) {
	var stats Stats
	rows := NewRowStore(conn)

	var err error
	stats.TotalTransactions, err = rows.Count(ctx, ledger.SheetTransactions)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction count: %w", err)
	}

	stats.TotalLending, err = rows.Count(ctx, ledger.SheetLending)
	if err != nil {
		return nil, fmt.Errorf("failed to get lending count: %w", err)
	}

	stats.LastExport, err = NewMetadata(conn).Get(ctx, MetaLastExport)
	if err != nil {
		return nil, fmt.Errorf("failed to get last export time: %w", err)
	}

	return &stats, nil
}
