package config

import (
	"log/slog"

	"github.com/jpalmerr/ministore"
	"github.com/jpalmerr/ministore/demo"
	"github.com/jpalmerr/ministore/internal/app"
)

// StoreOptions converts the store section into store options.
func StoreOptions(cfg *Config) []ministore.Option {
	var opts []ministore.Option

	if cfg.Store.Name != "" {
		opts = append(opts, ministore.WithName(cfg.Store.Name))
	}
	if cfg.Store.MaxDispatchDepth > 0 {
		opts = append(opts, ministore.WithMaxDispatchDepth(cfg.Store.MaxDispatchDepth))
	}
	if cfg.Store.NestedDispatch == NestedQueue {
		opts = append(opts, ministore.WithQueuedDispatch())
	}
	if cfg.Store.SkipStaleNotifications {
		opts = append(opts, ministore.WithSkipStaleNotifications())
	}
	if cfg.Store.ListenerPanics == PanicsPropagate {
		opts = append(opts, ministore.WithListenerPanics(ministore.PropagateListenerPanics))
	}

	return opts
}

// InitialState returns the configured initial state, falling back to
// [demo.InitialState] for anything left unset.
func InitialState(cfg *Config) demo.AppState {
	state := demo.InitialState()
	if cfg.InitialState == nil {
		return state
	}

	state.Counter = cfg.InitialState.Counter
	if u := cfg.InitialState.User; u != nil {
		state.User = &demo.UserState{Name: u.Name, Age: u.Age}
	}
	return state
}

// LogLevel maps log_level to a slog level.
func LogLevel(cfg *Config) slog.Level {
	switch cfg.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// AppOptions converts the configuration into options for the dashboard app.
func AppOptions(cfg *Config, logger *slog.Logger) []app.Option {
	opts := []app.Option{
		app.WithTitle(cfg.Title),
		app.WithPort(cfg.Port),
		app.WithInitialState(InitialState(cfg)),
		app.WithStoreOptions(StoreOptions(cfg)...),
	}
	if logger != nil {
		opts = append(opts, app.WithLogger(logger))
	}
	return opts
}
