package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/docflow-server/internal/client"
	"github.com/vovakirdan/docflow-server/internal/log"
)

var (
	serverURL string
	email     string
	password  string
	logLevel  string
)

// rootCmd logs in, joins the user's room and prints every toast the session raises.
var rootCmd = &cobra.Command{
	Use:          "docflow-watch",
	Short:        "Follow document notifications from the terminal",
	SilenceUsage: true,
	RunE:         run,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "docflow server base URL")
	rootCmd.Flags().StringVar(&email, "email", "", "account email")
	rootCmd.Flags().StringVar(&password, "password", os.Getenv("DOCFLOW_PASSWORD"), "account password (default $DOCFLOW_PASSWORD)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	_ = rootCmd.MarkFlagRequired("email")
}

func run(cmd *cobra.Command, _ []string) error {
	logger := log.New(logLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, err := client.NewAPI(serverURL, nil)
	if err != nil {
		return err
	}
	loginCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	res, err := api.Login(loginCtx, email, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	notifier := client.NotifierFunc(func(t client.Toast) {
		ev := logger.Info()
		if t.Level == client.LevelError {
			ev = logger.Error()
		}
		ev.Str("event", t.Event).Msg(t.Message)
	})
	session := client.NewSession(api, res.User, notifier, logger)
	defer session.Close()

	if err := session.Refresh(loginCtx, client.ListOptions{}); err != nil {
		return fmt.Errorf("load documents: %w", err)
	}
	logger.Info().
		Str("user", res.User.Email).
		Int("documents", len(session.Consumer.Documents())).
		Int("notifications", len(session.Consumer.Notifications())).
		Msg("logged in")

	conn, err := session.Connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	logger.Info().Str("server", serverURL).Msg("watching, press Ctrl+C to stop")
	return conn.Run(ctx, session.Consumer)
}
