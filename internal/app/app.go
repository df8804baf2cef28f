// Package app wires the demo store to the HTTP dashboard.
//
// [App.Start] builds the store, hosts it on a [loop.Loop], publishes every
// committed state to a [feed.MemoryFeed] and serves the dashboard until the
// context is cancelled.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jpalmerr/ministore"
	"github.com/jpalmerr/ministore/dashboard"
	"github.com/jpalmerr/ministore/demo"
	"github.com/jpalmerr/ministore/internal/feed"
	"github.com/jpalmerr/ministore/internal/loop"
	"github.com/jpalmerr/ministore/internal/server"
)

const defaultPort = 8080

// App hosts the demo store behind the dashboard server.
//
// The typical lifecycle is:
//
//	a, err := app.New(app.WithPort(9090))
//	if err != nil {
//	    return err
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	a.Start(ctx) // blocks until context cancelled
type App struct {
	title     string
	port      int
	logger    *slog.Logger
	initial   demo.AppState
	storeOpts []ministore.Option
}

// Option configures an [App].
type Option func(*appConfig) error

type appConfig struct {
	title     string
	port      int
	logger    *slog.Logger
	initial   *demo.AppState
	storeOpts []ministore.Option
}

// WithTitle sets the dashboard title.
func WithTitle(title string) Option {
	return func(c *appConfig) error {
		c.title = title
		return nil
	}
}

// WithPort sets the HTTP port. Must be between 1 and 65535.
func WithPort(port int) Option {
	return func(c *appConfig) error {
		if port < 1 || port > 65535 {
			return fmt.Errorf("port must be between 1 and 65535, got %d", port)
		}
		c.port = port
		return nil
	}
}

// WithLogger sets the logger for the app and the store it creates.
func WithLogger(logger *slog.Logger) Option {
	return func(c *appConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithInitialState sets the state the store starts from.
// Defaults to [demo.InitialState].
func WithInitialState(s demo.AppState) Option {
	return func(c *appConfig) error {
		c.initial = &s
		return nil
	}
}

// WithStoreOptions passes options through to the store.
// They are applied after the app's own logger option.
func WithStoreOptions(opts ...ministore.Option) Option {
	return func(c *appConfig) error {
		c.storeOpts = append(c.storeOpts, opts...)
		return nil
	}
}

// New creates an [App]. Defaults: port 8080, the demo initial state and
// [slog.Default].
func New(opts ...Option) (*App, error) {
	cfg := &appConfig{port: defaultPort}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	initial := demo.InitialState()
	if cfg.initial != nil {
		initial = *cfg.initial
	}

	return &App{
		title:     cfg.title,
		port:      cfg.port,
		logger:    logger,
		initial:   initial,
		storeOpts: cfg.storeOpts,
	}, nil
}

// Port returns the configured HTTP port.
func (a *App) Port() int {
	return a.port
}

// Start creates the store and serves the dashboard.
//
// Start blocks until ctx is cancelled and returns nil on graceful shutdown.
// It returns an error if the store cannot be built or the HTTP server
// fails to start.
func (a *App) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}

	storeOpts := append([]ministore.Option{ministore.WithLogger(a.logger)}, a.storeOpts...)
	store, err := demo.NewStore(a.initial, storeOpts...)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	fd := feed.NewMemoryFeed()
	host := newHost(store, fd, a.logger)
	if err := host.publishInitial(); err != nil {
		return err
	}

	l := loop.New(store, a.logger)
	host.loop = l
	l.Start(ctx)
	defer l.Stop()

	httpServer := server.NewServer(fd, host, a.port, dashboard.Assets, a.title, a.logger)
	if err := httpServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	a.logger.Info("ministore started",
		"store", store.Name(),
		"url", fmt.Sprintf("http://localhost:%d", a.port),
	)

	<-ctx.Done()
	a.logger.Info("ministore stopped")
	return nil
}
