// Package main is the entry point for the ministore CLI.
//
// Usage:
//
//	ministore serve -c config.yaml            # Start the web dashboard
//	ministore tui -c config.yaml              # Start the terminal demo
//	ministore run -c config.yaml script.yaml  # Replay an action script
//	ministore validate -c config.yaml         # Validate configuration
//	ministore version                         # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "ministore",
	Short: "A tiny synchronous state store with live demos",
	Long: `ministore is a small predictable state container: one reducer, one
state value, and subscribers that are notified only when the slice of state
they select actually changes.

The binary hosts a counter-and-user demo store three ways:
  - serve: a web dashboard with live updates over Server-Sent Events
  - tui:   an interactive terminal UI
  - run:   a scripted replay that prints which subscribers fired

Example config:
  title: Counter Demo
  port: 8080
  initial_state:
    counter: 0
    user:
      name: ${DEMO_USER:-John Doe}
      age: 25
  store:
    nested_dispatch: inline`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// cobra already prints the error
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this ministore binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ministore %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
