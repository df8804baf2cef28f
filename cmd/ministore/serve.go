package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/ministore/config"
	"github.com/jpalmerr/ministore/internal/app"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd starts the web dashboard.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	Long: `Start the ministore web dashboard.

The server will:
  - Load configuration from the specified YAML file (defaults otherwise)
  - Create the demo store and its event loop
  - Serve the dashboard UI, the dispatch API and a live SSE feed

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  ministore serve
  ministore serve -c config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := stderrLogger(cfg)

	logger.Info("config loaded",
		"title", cfg.Title,
		"nested_dispatch", cfg.Store.NestedDispatch,
		"listener_panics", cfg.Store.ListenerPanics,
	)
	logger.Info("starting server", "port", cfg.Port)

	a, err := app.New(config.AppOptions(cfg, logger)...)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	// cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- a.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
