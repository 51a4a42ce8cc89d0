package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var summaryUser string

// summaryCmd represents the summary command.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the financial summary",
	Long: `Print balances, 30-day income and expenses, lending totals and the
wallet runway, as the /summary chat command does.

Example:
  paylog summary
  paylog summary --user alice`,
	Run: runSummary,
}

func init() {
	summaryCmd.Flags().StringVar(&summaryUser, "user", "", "user ID (default is $PAYLOG_USER_ID or local)")
}

func runSummary(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	a, err := openApp(ctx)
	exitOnError(err, "failed to start")
	defer a.Close()

	userID := summaryUser
	if userID == "" {
		userID = a.cfg.UserID
	}

	fmt.Println(a.bot.Handle(ctx, userID, "/summary"))
	slog.Debug("Summary displayed", "user_id", userID)
}
