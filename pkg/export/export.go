// Package export writes ledger transactions to CSV and Beancount files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/shunichi-ikebuchi/paylog/pkg/beancount"
	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
	"github.com/shunichi-ikebuchi/paylog/pkg/pathutil"
)

// CSVHeader is the header row of a CSV export.
var CSVHeader = []string{"Date", "Type", "Wallet", "Amount", "Category", "Description", "Merchant"}

// WriteCSV writes transactions as CSV with a header row.
func WriteCSV(w io.Writer, txns []ledger.Transaction) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, txn := range txns {
		record := []string{
			ledger.FormatDate(txn.Date),
			string(txn.Type),
			txn.WalletType,
			txn.Amount.String(),
			txn.Category,
			txn.Description,
			txn.Merchant,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// FilterMonth returns the transactions dated in yearMonth (YYYY-MM).
func FilterMonth(txns []ledger.Transaction, yearMonth string) []ledger.Transaction {
	var out []ledger.Transaction
	for _, txn := range txns {
		if txn.Date.Format("2006-01") == yearMonth {
			out = append(out, txn)
		}
	}
	return out
}

// Result describes a written export file.
type Result struct {
	Path  string
	Count int
}

// Exporter writes monthly export files under the export directory.
type Exporter struct {
	paths     *pathutil.PathResolver
	repo      beancount.Repository
	converter *beancount.Converter
}

// NewExporter creates an Exporter rooted at the resolver's export directory.
func NewExporter(paths *pathutil.PathResolver) *Exporter {
	return &Exporter{
		paths:     paths,
		repo:      beancount.NewFileSystemRepository(paths),
		converter: beancount.NewConverter(beancount.DefaultCurrency),
	}
}

// WithAccountMapping makes Beancount exports use m's account names.
func (x *Exporter) WithAccountMapping(m *beancount.Mapper) *Exporter {
	x.converter.WithMapper(m)
	return x
}

// CSV writes the month's transactions to a CSV file, replacing any
// previous export of that month.
func (x *Exporter) CSV(txns []ledger.Transaction, yearMonth string) (Result, error) {
	path, err := x.paths.GetCSVExportPath(yearMonth)
	if err != nil {
		return Result{}, err
	}
	if err := x.paths.EnsureParentDir(path); err != nil {
		return Result{}, err
	}

	month := FilterMonth(txns, yearMonth)

	f, err := os.Create(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer f.Close()

	if err := WriteCSV(f, month); err != nil {
		return Result{}, err
	}

	return Result{Path: path, Count: len(month)}, nil
}

// Beancount regenerates the month's Beancount file from the ledger.
func (x *Exporter) Beancount(txns []ledger.Transaction, yearMonth string) (Result, error) {
	path, err := x.paths.GetMonthFilePath(yearMonth)
	if err != nil {
		return Result{}, err
	}

	if err := x.repo.RemoveMonthFile(yearMonth); err != nil {
		return Result{}, err
	}
	if err := x.repo.EnsureMonthFile(yearMonth); err != nil {
		return Result{}, err
	}

	month := FilterMonth(txns, yearMonth)
	for _, txn := range month {
		entry, err := x.converter.Convert(txn)
		if err != nil {
			return Result{}, fmt.Errorf("failed to convert row %d: %w", txn.Row, err)
		}

		comment := fmt.Sprintf("ledger row %d", txn.Row+1)
		if err := x.repo.AppendTransaction(yearMonth, x.converter.FormatTransaction(entry), comment); err != nil {
			return Result{}, fmt.Errorf("failed to append transaction: %w", err)
		}
	}

	return Result{Path: path, Count: len(month)}, nil
}
