package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shunichi-ikebuchi/paylog/pkg/db"
	"github.com/spf13/cobra"
)

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display ledger statistics",
	Long: `Display statistics about the SQLite ledger.

Shows:
- Total number of transaction rows
- Total number of lending rows
- Last export timestamp

Example:
  paylog stats`,
	Run: runStats,
}

func runStats(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	a, err := openApp(ctx)
	exitOnError(err, "failed to start")
	defer a.Close()

	if a.conn == nil {
		a.Close()
		exitOnError(errors.New("stats needs LEDGER_BACKEND=sqlite"), "unsupported backend")
	}

	stats, err := db.GetStats(ctx, a.conn)
	if err != nil {
		a.Close()
		exitOnError(err, "failed to get statistics")
	}

	// Display statistics
	fmt.Println("\n=== Ledger Statistics ===")
	fmt.Printf("Transactions: %d\n", stats.TotalTransactions)
	fmt.Printf("Lending:      %d\n", stats.TotalLending)

	if stats.LastExport != "" {
		fmt.Printf("Last export:  %s\n", stats.LastExport)
	} else {
		fmt.Printf("Last export:  (never)\n")
	}

	fmt.Println()

	slog.Info("Statistics displayed successfully")
}
