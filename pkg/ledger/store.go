package ledger

//go:generate mockgen -source=store.go -destination=store_mock.go -package=ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Sheet names a table in the row store.
type Sheet string

const (
	SheetTransactions Sheet = "transactions"
	SheetLending      Sheet = "lending"
)

var (
	// ErrNoRows is returned when deleting from an empty sheet.
	ErrNoRows = errors.New("no rows")

	// ErrRowOutOfRange is returned when a cell update addresses a missing row.
	ErrRowOutOfRange = errors.New("row out of range")
)

// RowStore is an append-mostly store of string rows. Row indices are
// zero-based positions among the data rows of a sheet, in append order.
type RowStore interface {
	// AppendRow adds a row to the end of the sheet.
	AppendRow(ctx context.Context, sheet Sheet, row []string) error

	// Rows returns every data row of the sheet in append order.
	Rows(ctx context.Context, sheet Sheet) ([][]string, error)

	// UpdateCell overwrites a single cell.
	UpdateCell(ctx context.Context, sheet Sheet, row, col int, value string) error

	// DeleteLastRow removes the most recently appended row.
	DeleteLastRow(ctx context.Context, sheet Sheet) error
}

// MemoryStore is a RowStore held in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	sheets map[Sheet][][]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sheets: make(map[Sheet][][]string)}
}

// AppendRow adds a copy of row to the sheet.
func (m *MemoryStore) AppendRow(_ context.Context, sheet Sheet, row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sheets[sheet] = append(m.sheets[sheet], append([]string(nil), row...))
	return nil
}

// Rows returns a copy of the sheet's rows.
func (m *MemoryStore) Rows(_ context.Context, sheet Sheet) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([][]string, len(m.sheets[sheet]))
	for i, r := range m.sheets[sheet] {
		rows[i] = append([]string(nil), r...)
	}
	return rows, nil
}

// UpdateCell overwrites one cell, growing the row if needed.
func (m *MemoryStore) UpdateCell(_ context.Context, sheet Sheet, row, col int, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.sheets[sheet]
	if row < 0 || row >= len(rows) {
		return fmt.Errorf("%w: %s row %d", ErrRowOutOfRange, sheet, row)
	}
	for len(rows[row]) <= col {
		rows[row] = append(rows[row], "")
	}
	rows[row][col] = value
	return nil
}

// DeleteLastRow removes the last row of the sheet.
func (m *MemoryStore) DeleteLastRow(_ context.Context, sheet Sheet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.sheets[sheet]
	if len(rows) == 0 {
		return ErrNoRows
	}
	m.sheets[sheet] = rows[:len(rows)-1]
	return nil
}
