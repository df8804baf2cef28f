package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/ministore"
	"github.com/jpalmerr/ministore/config"
	"github.com/jpalmerr/ministore/demo"
	"github.com/jpalmerr/ministore/internal/tui"
)

// tuiCmd runs the interactive terminal demo.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Start the terminal demo",
	Long: `Start the interactive terminal demo.

The screen shows a counter display, a user display and their controls. Each
display counts how often it re-rendered, so you can watch selector-based
subscriptions skip renders for changes they do not care about.

Logs are discarded unless --log-file is given, since the terminal is in use.

Example:
  ministore tui
  ministore tui -c config.yaml --log-file ministore.log`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)

	tuiCmd.Flags().StringP("config", "c", "", "path to config file")
	tuiCmd.Flags().String("log-file", "", "write JSON logs to this file")
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var logOut io.Writer = io.Discard
	if path, _ := cmd.Flags().GetString("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := newLogger(logOut, config.LogLevel(cfg))

	storeOpts := append([]ministore.Option{ministore.WithLogger(logger)}, config.StoreOptions(cfg)...)
	store, err := demo.NewStore(config.InitialState(cfg), storeOpts...)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	return tui.Run(store, cfg.Title, logger)
}
