package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shunichi-ikebuchi/paylog/pkg/engine"
	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
	"github.com/spf13/cobra"
)

// undoCmd represents the undo command.
var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Remove the last ledger transaction",
	Long: `Remove the most recent row of the transaction ledger. The balances
return to the checkpoint of the row before it.

Example:
  paylog undo`,
	Run: runUndo,
}

func runUndo(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	a, err := openApp(ctx)
	exitOnError(err, "failed to start")
	defer a.Close()

	removed, err := a.engine.UndoLast(ctx)
	if errors.Is(err, engine.ErrNothingToUndo) {
		fmt.Println("No transactions to undo.")
		return
	}
	if err != nil {
		a.Close()
		exitOnError(err, "failed to undo")
	}

	slog.Info("Removed transaction", "row", removed.Row, "type", removed.Type)
	fmt.Printf("Removed: %s %s %s - %s\n",
		removed.Date.Format(ledger.DateLayout), removed.Type, removed.Amount.StringFixed(2), removed.Description)

	balances, err := a.engine.Balances(ctx)
	if err != nil {
		a.Close()
		exitOnError(err, "failed to read balances")
	}
	fmt.Printf("Total Stack: %s\nWallet:      %s\n", balances.Total.StringFixed(2), balances.Wallet.StringFixed(2))
}
