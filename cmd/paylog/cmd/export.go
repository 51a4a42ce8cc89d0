package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shunichi-ikebuchi/paylog/pkg/beancount"
	"github.com/shunichi-ikebuchi/paylog/pkg/db"
	"github.com/shunichi-ikebuchi/paylog/pkg/export"
	"github.com/spf13/cobra"
)

var (
	exportMonth  string
	exportFormat string
)

// exportCmd represents the export command.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a month of the ledger to CSV or Beancount",
	Long: `Write one month of transactions under the export directory.

Files:
  {exports}/transactions_YYYY-MM.csv
  {exports}/YYYY/YYYY-MM.beancount

An existing export of the same month is replaced. Set
PAYLOG_ACCOUNT_MAPPING to a YAML file to choose the Beancount accounts.

Example:
  paylog export
  paylog export --month 2026-03 --format beancount
  paylog export --month 2026-03 --format all`,
	Run: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportMonth, "month", "", "month to export as YYYY-MM (default is the current month)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "csv, beancount or all")
}

func runExport(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	month := exportMonth
	if month == "" {
		month = time.Now().Format("2006-01")
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		exitOnError(err, "invalid --month")
	}

	var writeCSV, writeBeancount bool
	switch exportFormat {
	case "csv":
		writeCSV = true
	case "beancount":
		writeBeancount = true
	case "all":
		writeCSV, writeBeancount = true, true
	default:
		exitOnError(fmt.Errorf("unknown format %q", exportFormat), "invalid --format")
	}

	a, err := openApp(ctx)
	exitOnError(err, "failed to start")
	defer a.Close()

	txns, err := a.engine.Transactions(ctx)
	if err != nil {
		a.Close()
		exitOnError(err, "failed to read transactions")
	}

	exporter := export.NewExporter(a.paths)
	if file := a.cfg.Storage.AccountMappingFile; file != "" {
		mapper, err := beancount.NewMapper(file)
		if err != nil {
			a.Close()
			exitOnError(err, "failed to load account mapping")
		}
		exporter.WithAccountMapping(mapper)
	}
	var results []export.Result
	if writeCSV {
		res, err := exporter.CSV(txns, month)
		if err != nil {
			a.Close()
			exitOnError(err, "failed to export CSV")
		}
		results = append(results, res)
	}
	if writeBeancount {
		res, err := exporter.Beancount(txns, month)
		if err != nil {
			a.Close()
			exitOnError(err, "failed to export Beancount")
		}
		results = append(results, res)
	}

	for _, res := range results {
		slog.Info("Exported", "path", res.Path, "count", res.Count)
		fmt.Printf("Wrote %d transactions to %s\n", res.Count, res.Path)
	}

	if a.conn != nil {
		meta := db.NewMetadata(a.conn)
		if err := meta.Set(ctx, db.MetaLastExport, time.Now().Format(time.RFC3339)); err != nil {
			slog.Warn("Failed to record export time", "error", err)
		}
		if err := meta.Set(ctx, db.MetaLastExportFormat, exportFormat); err != nil {
			slog.Warn("Failed to record export format", "error", err)
		}
	}
}
