// Package config provides YAML configuration for the ministore binary.
//
// Example configuration:
//
//	title: Counter Demo
//	port: 8080
//	log_level: info
//
//	initial_state:
//	  counter: 0
//	  user:
//	    name: ${DEMO_USER:-John Doe}
//	    age: 25
//
//	store:
//	  max_dispatch_depth: 8
//	  nested_dispatch: inline   # inline | queue
//	  listener_panics: recover  # recover | propagate
//	  skip_stale_notifications: false
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort     = 8080
	defaultTitle    = "ministore"
	defaultLogLevel = "info"

	// NestedInline runs a dispatch issued from a listener immediately.
	NestedInline = "inline"
	// NestedQueue defers it until the current notification round ends.
	NestedQueue = "queue"

	// PanicsRecover isolates listener panics.
	PanicsRecover = "recover"
	// PanicsPropagate lets listener panics reach the dispatcher.
	PanicsPropagate = "propagate"
)

// Config is the root configuration structure.
//
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard and TUI title. Defaults to "ministore".
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// LogLevel is one of debug, info, warn, error. Defaults to info.
	LogLevel string `yaml:"log_level"`

	// InitialState overrides the demo's initial state when set.
	InitialState *StateConfig `yaml:"initial_state"`

	// Store configures the store's behaviour.
	Store StoreConfig `yaml:"store"`
}

// StateConfig is the YAML form of the demo state.
type StateConfig struct {
	Counter int         `yaml:"counter"`
	User    *UserConfig `yaml:"user"`
}

// UserConfig is the YAML form of the demo user.
type UserConfig struct {
	// Name supports environment variable substitution: ${VAR} or ${VAR:-default}
	Name string `yaml:"name"`
	Age  int    `yaml:"age"`
}

// StoreConfig configures the store.
type StoreConfig struct {
	// Name labels the store in logs. A random name is used when empty.
	Name string `yaml:"name"`

	// MaxDispatchDepth caps reentrant dispatch nesting. 0 means unbounded.
	MaxDispatchDepth int `yaml:"max_dispatch_depth"`

	// NestedDispatch is "inline" (default) or "queue".
	NestedDispatch string `yaml:"nested_dispatch"`

	// ListenerPanics is "recover" (default) or "propagate".
	ListenerPanics string `yaml:"listener_panics"`

	// SkipStaleNotifications ends a notification round once a nested inline
	// dispatch has committed a newer state.
	SkipStaleNotifications bool `yaml:"skip_stale_notifications"`
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before validation.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in the title, the store name and the
// initial user name. Defaults are applied for every unset field.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.Title == "" {
		c.Title = defaultTitle
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.Store.NestedDispatch == "" {
		c.Store.NestedDispatch = NestedInline
	}
	if c.Store.ListenerPanics == "" {
		c.Store.ListenerPanics = PanicsRecover
	}
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	var err error

	if c.Title, err = expandEnvVars(c.Title); err != nil {
		return fmt.Errorf("title: %w", err)
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	c.LogLevel = strings.ToLower(c.LogLevel)
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	if c.Store.Name, err = expandEnvVars(c.Store.Name); err != nil {
		return fmt.Errorf("store.name: %w", err)
	}
	if c.Store.MaxDispatchDepth < 0 {
		return fmt.Errorf("store.max_dispatch_depth cannot be negative, got %d", c.Store.MaxDispatchDepth)
	}
	if c.Store.NestedDispatch != NestedInline && c.Store.NestedDispatch != NestedQueue {
		return fmt.Errorf("store.nested_dispatch must be %q or %q, got %q", NestedInline, NestedQueue, c.Store.NestedDispatch)
	}
	if c.Store.ListenerPanics != PanicsRecover && c.Store.ListenerPanics != PanicsPropagate {
		return fmt.Errorf("store.listener_panics must be %q or %q, got %q", PanicsRecover, PanicsPropagate, c.Store.ListenerPanics)
	}

	if c.InitialState != nil && c.InitialState.User != nil {
		u := c.InitialState.User
		if u.Name, err = expandEnvVars(u.Name); err != nil {
			return fmt.Errorf("initial_state.user.name: %w", err)
		}
		if strings.TrimSpace(u.Name) == "" {
			return fmt.Errorf("initial_state.user.name is required")
		}
		if u.Age < 0 {
			return fmt.Errorf("initial_state.user.age cannot be negative, got %d", u.Age)
		}
	}

	return nil
}
