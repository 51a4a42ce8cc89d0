package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
)

var (
	chatUser    string
	chatMessage string
)

// chatCmd represents the chat command.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the bot from the terminal",
	Long: `Start an interactive session with the bot, or send a single message
with --message. End a line with a backslash to continue the message on
the next line (for /batch and /budget). Type "exit" or press Ctrl-D to
leave.

Example:
  paylog chat
  paylog chat -m "Lent 2000 to Ravi"
  paylog chat --user alice -m "/balance"`,
	Run: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatUser, "user", "", "user ID (default is $PAYLOG_USER_ID or local)")
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "send one message and exit")
}

func runChat(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := openApp(ctx)
	exitOnError(err, "failed to start")
	defer a.Close()

	userID := chatUser
	if userID == "" {
		userID = a.cfg.UserID
	}

	if chatMessage != "" {
		fmt.Println(a.bot.Handle(ctx, userID, chatMessage))
		return
	}

	fmt.Println(a.bot.Handle(ctx, userID, "/start"))
	scanner := bufio.NewScanner(os.Stdin)
	var pending []string
	for {
		if len(pending) == 0 {
			fmt.Print("\n> ")
		} else {
			fmt.Print(". ")
		}
		if !scanner.Scan() {
			fmt.Println()
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if rest, ok := strings.CutSuffix(line, `\`); ok {
			pending = append(pending, strings.TrimSpace(rest))
			continue
		}
		message := strings.Join(append(pending, line), "\n")
		pending = pending[:0]

		switch strings.ToLower(strings.TrimSpace(message)) {
		case "":
			continue
		case "exit", "quit":
			return
		}
		fmt.Println(a.bot.Handle(ctx, userID, message))

		if ctx.Err() != nil {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		a.Close()
		exitOnError(err, "failed to read input")
	}
}
