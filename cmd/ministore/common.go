package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/ministore/config"
)

// newLogger creates a JSON logger for CLI use.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// loadConfig loads the file named by --config, or the defaults when the flag
// is empty.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// stderrLogger builds the CLI logger at the configured level.
func stderrLogger(cfg *config.Config) *slog.Logger {
	return newLogger(os.Stderr, config.LogLevel(cfg))
}
