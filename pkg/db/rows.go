package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
)

// sheetColumns maps each sheet to its table columns in row order.
var sheetColumns = map[ledger.Sheet][]string{
	ledger.SheetTransactions: ledger.TransactionHeader,
	ledger.SheetLending:      ledger.LendingHeader,
}

// RowStore is a ledger.RowStore backed by SQLite tables.
type RowStore struct {
	conn *Connection
}

// NewRowStore creates a new RowStore on an open connection.
func NewRowStore(conn *Connection) *RowStore {
	return &RowStore{conn: conn}
}

func columnsFor(sheet ledger.Sheet) ([]string, error) {
	cols, ok := sheetColumns[sheet]
	if !ok {
		return nil, fmt.Errorf("unknown sheet %q", sheet)
	}
	return cols, nil
}

// AppendRow inserts a row. Extra cells are dropped and missing cells are
// stored empty.
func (s *RowStore) AppendRow(ctx context.Context, sheet ledger.Sheet, row []string) error {
	cols, err := columnsFor(sheet)
	if err != nil {
		return err
	}

	args := make([]any, len(cols))
	for i := range cols {
		if i < len(row) {
			args[i] = row[i]
		} else {
			args[i] = ""
		}
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		sheet,
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
	)

	if _, err := s.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to append %s row: %w", sheet, err)
	}

	return nil
}

// Rows returns all rows of the sheet in insertion order.
func (s *RowStore) Rows(ctx context.Context, sheet ledger.Sheet) ([][]string, error) {
	cols, err := columnsFor(sheet)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id", strings.Join(cols, ", "), sheet)

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s rows: %w", sheet, err)
	}
	defer rows.Close()

	var result [][]string
	for rows.Next() {
		values := make([]string, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", sheet, err)
		}
		result = append(result, values)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", sheet, err)
	}

	return result, nil
}

// UpdateCell overwrites a single cell addressed by row position and column.
func (s *RowStore) UpdateCell(ctx context.Context, sheet ledger.Sheet, row, col int, value string) error {
	cols, err := columnsFor(sheet)
	if err != nil {
		return err
	}
	if col < 0 || col >= len(cols) {
		return fmt.Errorf("column %d out of range for %s", col, sheet)
	}
	if row < 0 {
		return fmt.Errorf("%w: %s row %d", ledger.ErrRowOutOfRange, sheet, row)
	}

	query := fmt.Sprintf(
		"UPDATE %[1]s SET %[2]s = ? WHERE id = (SELECT id FROM %[1]s ORDER BY id LIMIT 1 OFFSET ?)",
		sheet, cols[col],
	)

	result, err := s.conn.ExecContext(ctx, query, value, row)
	if err != nil {
		return fmt.Errorf("failed to update %s cell: %w", sheet, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s row %d", ledger.ErrRowOutOfRange, sheet, row)
	}

	return nil
}

// DeleteLastRow removes the most recently inserted row.
func (s *RowStore) DeleteLastRow(ctx context.Context, sheet ledger.Sheet) error {
	if _, err := columnsFor(sheet); err != nil {
		return err
	}

	return s.conn.Transaction(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, fmt.Sprintf("SELECT id FROM %s ORDER BY id DESC LIMIT 1", sheet)).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.ErrNoRows
		}
		if err != nil {
			return fmt.Errorf("failed to find last %s row: %w", sheet, err)
		}

		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", sheet), id); err != nil {
			return fmt.Errorf("failed to delete %s row: %w", sheet, err)
		}
		return nil
	})
}

// Count returns the number of rows in a sheet.
func (s *RowStore) Count(ctx context.Context, sheet ledger.Sheet) (int, error) {
	if _, err := columnsFor(sheet); err != nil {
		return 0, err
	}

	var count int
	if err := s.conn.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", sheet)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s rows: %w", sheet, err)
	}
	return count, nil
}
