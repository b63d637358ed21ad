package main

import (
	"github.com/spf13/cobra"

	"github.com/vovakirdan/docflow-server/internal/config"
	"github.com/vovakirdan/docflow-server/internal/log"
)

var (
	configFile string
	addr       string
	logLevel   string
)

// rootCmd runs the server when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:           "docflow-server",
	Short:         "Document management server with realtime notifications",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.New("info").Fatal().Err(err).Msg("command failed")
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config.yaml (default: ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "", "HTTP listen address, overrides config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error), overrides config")
}

// loadConfig applies flag overrides on top of file and env configuration.
func loadConfig() (config.Config, error) {
	bootLog := log.New(firstNonEmpty(logLevel, "info"))
	cfg, path, err := config.Load(bootLog, configFile)
	if err != nil {
		return cfg, err
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	bootLog.Debug().Str("path", path).Msg("config loaded")
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
