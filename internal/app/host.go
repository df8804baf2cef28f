package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jpalmerr/ministore"
	"github.com/jpalmerr/ministore/demo"
	"github.com/jpalmerr/ministore/internal/feed"
	"github.com/jpalmerr/ministore/internal/loop"
)

// host owns the store subscriptions that bridge it to the outside world.
// Everything except Dispatch runs on the store goroutine.
type host struct {
	store  *demo.Store
	feed   *feed.MemoryFeed
	loop   *loop.Loop[demo.AppState, ministore.Action]
	logger *slog.Logger

	// action being dispatched, for snapshot labels
	current string
}

// newHost registers the feed publisher and the counter log listener.
// It must be called before the loop takes ownership of the store.
func newHost(store *demo.Store, fd *feed.MemoryFeed, logger *slog.Logger) *host {
	h := &host{store: store, feed: fd, logger: logger}

	store.Subscribe(h.publish, ministore.WithSubscriptionName("feed"))

	ministore.SubscribeSelect(store, func(s demo.AppState) {
		logger.Info("counter changed", "counter", s.Counter, "version", store.Version())
	}, demo.SelectCounter, ministore.WithSubscriptionName("counter-log"))

	return h
}

func (h *host) publishInitial() error {
	snapshot, err := feed.NewSnapshot(h.store.Version(), "", h.store.GetState())
	if err != nil {
		return fmt.Errorf("failed to publish initial state: %w", err)
	}
	h.feed.Publish(snapshot)
	return nil
}

// publish runs once per commit. A round resumed after a nested dispatch
// carries an older state than the store holds; the nested round has already
// published the newer one.
func (h *host) publish(s demo.AppState) {
	if s != h.store.GetState() {
		return
	}
	snapshot, err := feed.NewSnapshot(h.store.Version(), h.current, s)
	if err != nil {
		h.logger.Error("failed to encode snapshot", "error", err)
		return
	}
	h.feed.Publish(snapshot)
}

// Dispatch sends action to the store goroutine.
func (h *host) Dispatch(ctx context.Context, action ministore.Action) error {
	return h.loop.Do(ctx, func(s *demo.Store) error {
		h.current = action.String()
		defer func() { h.current = "" }()
		return s.Dispatch(action)
	})
}
