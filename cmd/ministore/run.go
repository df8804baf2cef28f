package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/ministore"
	"github.com/jpalmerr/ministore/config"
	"github.com/jpalmerr/ministore/demo"
)

// runCmd replays an action script against the demo store.
var runCmd = &cobra.Command{
	Use:   "run [script.yaml]",
	Short: "Replay an action script",
	Long: `Replay a YAML action script against the demo store.

Three subscribers watch the store:
  all      fires on every state change
  counter  fires only when the counter changes
  user     fires only when the user changes

Each step prints the action, the resulting version and state, and which
subscribers fired.

Script format:
  actions:
    - type: INCREMENT
    - type: UPDATE_USER_NAME
      payload: Alice

Example:
  ministore run script.yaml
  ministore run -c config.yaml --format json script.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("config", "c", "", "path to config file")
	runCmd.Flags().String("format", "text", "output format: text or json")
}

// stepResult is the outcome of one replayed action.
type stepResult struct {
	Step    int           `json:"step"`
	Action  string        `json:"action"`
	Version uint64        `json:"version"`
	Changed bool          `json:"changed"`
	State   demo.AppState `json:"state"`
	Fired   []string      `json:"fired"`
	Error   string        `json:"error,omitempty"`
}

// runReport is the whole replay.
type runReport struct {
	Steps   []stepResult  `json:"steps"`
	Changes int           `json:"changes"`
	Final   demo.AppState `json:"final"`
}

func runRun(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "json" {
		return fmt.Errorf("format must be text or json, got %q", format)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	script, err := config.LoadScript(args[0])
	if err != nil {
		return fmt.Errorf("failed to load script: %w", err)
	}

	report, err := replay(cfg, script, stderrLogger(cfg))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		return writeJSON(out, report)
	}
	writeText(out, report)
	return nil
}

// replay dispatches every script action in order and records which
// subscribers fired.
func replay(cfg *config.Config, script *config.Script, logger *slog.Logger) (*runReport, error) {
	storeOpts := append([]ministore.Option{ministore.WithLogger(logger)}, config.StoreOptions(cfg)...)
	store, err := demo.NewStore(config.InitialState(cfg), storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	var fired []string
	record := func(name string) ministore.Listener[demo.AppState] {
		return func(demo.AppState) { fired = append(fired, name) }
	}

	unsubs := []ministore.Unsubscribe{
		store.Subscribe(record("all"), ministore.WithSubscriptionName("all")),
		ministore.SubscribeSelect(store, record("counter"), demo.SelectCounter, ministore.WithSubscriptionName("counter")),
		ministore.SubscribeSelect(store, record("user"), demo.SelectUser, ministore.WithSubscriptionName("user")),
	}
	defer func() {
		for _, unsubscribe := range unsubs {
			unsubscribe()
		}
	}()

	report := &runReport{Steps: make([]stepResult, 0, len(script.Actions))}
	for i, action := range script.Actions {
		fired = []string{}
		before := store.Version()

		step := stepResult{Step: i + 1, Action: action.String()}
		if err := store.Dispatch(action); err != nil {
			step.Error = err.Error()
		}

		step.Version = store.Version()
		step.Changed = step.Version != before
		step.State = store.GetState()
		step.Fired = fired
		if step.Changed {
			report.Changes++
		}
		report.Steps = append(report.Steps, step)
	}
	report.Final = store.GetState()

	logger.Debug("script replayed",
		"store", store.Name(),
		"actions", len(script.Actions),
		"changes", report.Changes,
	)
	return report, nil
}

func writeJSON(w io.Writer, report *runReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func writeText(w io.Writer, report *runReport) {
	for _, step := range report.Steps {
		fired := "none"
		if len(step.Fired) > 0 {
			fired = strings.Join(step.Fired, ", ")
		}
		fmt.Fprintf(w, "step %d: %s | v%d | %s | fired: %s\n",
			step.Step, step.Action, step.Version, formatState(step.State), fired)
		if step.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", step.Error)
		}
	}
	fmt.Fprintf(w, "final: %s (%d actions, %d changes)\n",
		formatState(report.Final), len(report.Steps), report.Changes)
}

func formatState(s demo.AppState) string {
	name, age := "", 0
	if s.User != nil {
		name, age = s.User.Name, s.User.Age
	}
	return fmt.Sprintf("counter=%d user=%q age=%d", s.Counter, name, age)
}
