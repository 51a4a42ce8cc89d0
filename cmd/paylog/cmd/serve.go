package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shunichi-ikebuchi/paylog/pkg/bot"
	"github.com/shunichi-ikebuchi/paylog/pkg/server"
	"github.com/spf13/cobra"
)

var servePort int

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP chat server",
	Long: `Serve the chat front end over HTTP.

Endpoints:
- GET  /, /health          liveness text
- POST /api/v1/messages    {"user_id", "text"} -> {"reply"}
- GET  /api/v1/menu        reply keyboard rows

Example:
  paylog serve --port 8000`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default is $PORT or 8000)")
}

func runServe(cmd *cobra.Command, args []string) {
	// The server logs structured JSON.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	exitOnError(err, "failed to start")
	defer a.Close()

	port := a.cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}

	srv := server.New(a.bot, server.Options{
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		Menu:           bot.MenuLabels(),
	})
	if err := srv.ListenAndServe(ctx, fmt.Sprintf(":%d", port)); err != nil {
		a.Close()
		exitOnError(err, "server error")
	}
}
