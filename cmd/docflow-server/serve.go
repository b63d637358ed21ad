package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/docflow-server/internal/app"
	"github.com/vovakirdan/docflow-server/internal/log"
)

// serveCmd starts the HTTP API and the push channel.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the docflow HTTP and WebSocket server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := log.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	setupCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	application, err := app.New(setupCtx, &cfg, logger)
	cancel()
	if err != nil {
		return err
	}

	logger.Info().Str("addr", cfg.Addr).Msg("starting docflow server")
	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
