// Command example embeds ministore directly, without the demo state or the
// dashboard. It models a small shopping cart and shows selector-based
// subscriptions, a listener dispatching a follow-up action, and listener
// failures surfacing as errors.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jpalmerr/ministore"
)

type cart struct {
	Items    []string
	Discount int
	Checkout bool
}

type cartAction struct {
	kind string
	item string
}

func reduce(c cart, a cartAction) cart {
	switch a.kind {
	case "add":
		items := append(append([]string(nil), c.Items...), a.item)
		return cart{Items: items, Discount: c.Discount}
	case "discount":
		return cart{Items: c.Items, Discount: 10, Checkout: c.Checkout}
	case "checkout":
		return cart{Items: c.Items, Discount: c.Discount, Checkout: true}
	default:
		return c
	}
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	store, err := ministore.New(reduce, cart{},
		ministore.WithName("cart"),
		ministore.WithLogger(logger),
		ministore.WithQueuedDispatch(),
	)
	if err != nil {
		slog.Error("failed to create store", "error", err)
		os.Exit(1)
	}

	// re-renders only when the item count changes
	ministore.SubscribeSelect(store, func(c cart) {
		fmt.Printf("items: %d\n", len(c.Items))
	}, func(c cart) int { return len(c.Items) }, ministore.WithSubscriptionName("badge"))

	// three items earn a discount; queued so it runs after this round
	store.Subscribe(func(c cart) {
		if len(c.Items) == 3 && c.Discount == 0 {
			_ = store.Dispatch(cartAction{kind: "discount"})
		}
	}, ministore.WithSubscriptionName("promotions"))

	ministore.SubscribeSelect(store, func(c cart) {
		fmt.Printf("discount: %d%%\n", c.Discount)
	}, func(c cart) int { return c.Discount })

	ministore.SubscribeSelect(store, func(c cart) {
		if c.Checkout {
			panic("payment provider unavailable")
		}
	}, func(c cart) bool { return c.Checkout }, ministore.WithSubscriptionName("payments"))

	for _, item := range []string{"tea", "milk", "bread"} {
		if err := store.Dispatch(cartAction{kind: "add", item: item}); err != nil {
			slog.Error("dispatch failed", "error", err)
		}
	}

	err = store.Dispatch(cartAction{kind: "checkout"})
	var lerr *ministore.ListenerError
	if errors.As(err, &lerr) {
		fmt.Printf("checkout committed, but %s failed (correlation_id: %s)\n", lerr.Name, lerr.CorrelationID)
	}

	fmt.Printf("final version: %d\n", store.Version())
}
