package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/ministore/config"
)

// validateCmd validates a config file without starting anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a ministore configuration file without starting the server.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  ministore validate -c config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	state := config.InitialState(cfg)
	depth := "unbounded"
	if cfg.Store.MaxDispatchDepth > 0 {
		depth = fmt.Sprintf("%d", cfg.Store.MaxDispatchDepth)
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Title:           %s\n", cfg.Title)
	fmt.Printf("  Port:            %d\n", cfg.Port)
	fmt.Printf("  Log level:       %s\n", cfg.LogLevel)
	fmt.Printf("  Initial state:   counter=%d user=%q age=%d\n", state.Counter, state.User.Name, state.User.Age)
	fmt.Printf("  Nested dispatch: %s (max depth %s)\n", cfg.Store.NestedDispatch, depth)
	fmt.Printf("  Listener panics: %s\n", cfg.Store.ListenerPanics)
	fmt.Printf("  Skip stale:      %t\n", cfg.Store.SkipStaleNotifications)

	return nil
}
