// package main is the entry point for the pr-tracker tool
package main

import (
	"log/slog"
	"os"

	configcmd "github.com/alan/pr-tracker/cmd/config"
	"github.com/alan/pr-tracker/cmd/pipelines"
	"github.com/alan/pr-tracker/cmd/reconcile"
	"github.com/alan/pr-tracker/cmd/serve"
	"github.com/alan/pr-tracker/cmd/status"
	"github.com/alan/pr-tracker/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	var configFile string
	var logLevel string
	var logFormat string

	rootCmd := &cobra.Command{
		Use:   "pr-tracker",
		Short: "Track pull requests and keep a board pipeline in sync across branches",
		Long: `pr-tracker ingests pull request lifecycle events into a local data file,
serves the reconciled records over HTTP, and files tracking-board issues
for commits that have not propagated from the primary to the secondary
branch.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogger(logLevel, logFormat)
		},
	}

	// Add global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "pr-tracker.yaml", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&logFormat, "log-format", "f", "text", "Log format (text, json)")

	// Create commands with access to the global config file
	rootCmd.AddCommand(configcmd.NewConfigCmd(&configFile, config.LoadConfig, config.SaveConfig))
	rootCmd.AddCommand(serve.NewServeCmd(&configFile, config.LoadConfig))
	rootCmd.AddCommand(reconcile.NewReconcileCmd(&configFile, config.LoadConfig))
	rootCmd.AddCommand(status.NewStatusCmd(&configFile, config.LoadConfig))
	rootCmd.AddCommand(pipelines.NewPipelinesCmd(&configFile, config.LoadConfig))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogger(level, format string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}

	slog.SetDefault(slog.New(handler))
}
