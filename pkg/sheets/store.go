// Package sheets implements the ledger row store on a Google Sheets
// spreadsheet, one worksheet per ledger sheet with a header row.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

const valueInputRaw = "RAW"

// Config holds the spreadsheet location and credentials.
type Config struct {
	SpreadsheetID   string
	CredentialsJSON []byte // service account key; empty when opts carry auth
}

// Store is a ledger.RowStore backed by a Google spreadsheet.
type Store struct {
	service       *sheetsapi.Service
	spreadsheetID string

	mu       sync.Mutex
	sheetIDs map[ledger.Sheet]int64
}

// New creates a Store. Extra client options are applied after the
// credentials, which lets callers point the client at another endpoint.
func New(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Store, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("spreadsheet ID is required")
	}

	var clientOpts []option.ClientOption
	if len(cfg.CredentialsJSON) > 0 {
		clientOpts = append(clientOpts,
			option.WithCredentialsJSON(cfg.CredentialsJSON),
			option.WithScopes(sheetsapi.SpreadsheetsScope),
		)
	}
	clientOpts = append(clientOpts, opts...)

	service, err := sheetsapi.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}

	return &Store{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
	}, nil
}

// ensureSheets loads worksheet IDs and creates missing worksheets with
// their header rows.
func (s *Store) ensureSheets(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sheetIDs != nil {
		return nil
	}

	spreadsheet, err := s.service.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	ids := make(map[ledger.Sheet]int64)
	for _, sh := range spreadsheet.Sheets {
		if sh.Properties == nil {
			continue
		}
		ids[ledger.Sheet(sh.Properties.Title)] = sh.Properties.SheetId
	}

	for _, sheet := range []ledger.Sheet{ledger.SheetTransactions, ledger.SheetLending} {
		if _, ok := ids[sheet]; ok {
			continue
		}

		header := ledger.Header(sheet)
		resp, err := s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
			Requests: []*sheetsapi.Request{{
				AddSheet: &sheetsapi.AddSheetRequest{
					Properties: &sheetsapi.SheetProperties{
						Title: string(sheet),
						GridProperties: &sheetsapi.GridProperties{
							RowCount:    1000,
							ColumnCount: int64(len(header)),
						},
					},
				},
			}},
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to add worksheet %s: %w", sheet, err)
		}
		if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
			return fmt.Errorf("add worksheet %s: empty reply", sheet)
		}
		ids[sheet] = resp.Replies[0].AddSheet.Properties.SheetId

		if err := s.append(ctx, sheet, header); err != nil {
			return fmt.Errorf("failed to write %s header: %w", sheet, err)
		}
	}

	s.sheetIDs = ids
	return nil
}

func (s *Store) append(ctx context.Context, sheet ledger.Sheet, row []string) error {
	values := make([]any, len(row))
	for i, v := range row {
		values[i] = v
	}

	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, fmt.Sprintf("%s!A1", sheet), &sheetsapi.ValueRange{
		Values: [][]any{values},
	}).ValueInputOption(valueInputRaw).InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}

// AppendRow appends a row below the last data row.
func (s *Store) AppendRow(ctx context.Context, sheet ledger.Sheet, row []string) error {
	if err := s.ensureSheets(ctx); err != nil {
		return err
	}
	if err := s.append(ctx, sheet, row); err != nil {
		return fmt.Errorf("failed to append %s row: %w", sheet, err)
	}
	return nil
}

// Rows reads every data row below the header.
func (s *Store) Rows(ctx context.Context, sheet ledger.Sheet) ([][]string, error) {
	if err := s.ensureSheets(ctx); err != nil {
		return nil, err
	}

	width := len(ledger.Header(sheet))
	readRange := fmt.Sprintf("%s!A2:%s", sheet, columnLetter(width-1))

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s rows: %w", sheet, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		// trailing empty cells are omitted by the API
		row := make([]string, width)
		for i, v := range raw {
			if i >= width {
				break
			}
			row[i] = fmt.Sprint(v)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// UpdateCell writes one cell of an existing data row.
func (s *Store) UpdateCell(ctx context.Context, sheet ledger.Sheet, row, col int, value string) error {
	rows, err := s.Rows(ctx, sheet)
	if err != nil {
		return err
	}
	if row < 0 || row >= len(rows) {
		return fmt.Errorf("%w: %s row %d", ledger.ErrRowOutOfRange, sheet, row)
	}

	// +2: one for the header, one for A1 numbering
	cellRange := fmt.Sprintf("%s!%s%d", sheet, columnLetter(col), row+2)

	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, cellRange, &sheetsapi.ValueRange{
		Values: [][]any{{value}},
	}).ValueInputOption(valueInputRaw).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", cellRange, err)
	}

	return nil
}

// DeleteLastRow removes the last data row from the worksheet.
func (s *Store) DeleteLastRow(ctx context.Context, sheet ledger.Sheet) error {
	rows, err := s.Rows(ctx, sheet)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ledger.ErrNoRows
	}

	s.mu.Lock()
	sheetID := s.sheetIDs[sheet]
	s.mu.Unlock()

	// grid index 0 is the header, so the last data row sits at len(rows)
	last := int64(len(rows))
	_, err = s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			DeleteDimension: &sheetsapi.DeleteDimensionRequest{
				Range: &sheetsapi.DimensionRange{
					SheetId:         sheetID,
					Dimension:       "ROWS",
					StartIndex:      last,
					EndIndex:        last + 1,
					ForceSendFields: []string{"SheetId"},
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to delete last %s row: %w", sheet, err)
	}

	return nil
}

// columnLetter converts a zero-based column index to A1 notation.
func columnLetter(col int) string {
	name := ""
	for col >= 0 {
		name = string(rune('A'+col%26)) + name
		col = col/26 - 1
	}
	return name
}
