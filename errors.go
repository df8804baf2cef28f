package ministore

import (
	"errors"
	"fmt"
)

// ErrDispatchDepthExceeded is returned by [Store.Dispatch] when a nested
// dispatch would exceed the limit set with [WithMaxDispatchDepth].
var ErrDispatchDepthExceeded = errors.New("dispatch depth exceeded")

// ListenerError describes a listener panic that was recovered during a
// notification round.
type ListenerError struct {
	// SubscriptionID is the store-assigned ID, e.g. "sub_3".
	SubscriptionID string

	// Name is the label given with [WithSubscriptionName], if any.
	Name string

	// CorrelationID matches the "correlation_id" attribute of the log entry
	// that carries the stack trace.
	CorrelationID string

	// Panic is the value passed to panic.
	Panic any
}

func (e *ListenerError) Error() string {
	label := e.SubscriptionID
	if e.Name != "" {
		label = fmt.Sprintf("%s (%s)", e.SubscriptionID, e.Name)
	}
	return fmt.Sprintf("listener %s panicked: %v (correlation_id: %s)", label, e.Panic, e.CorrelationID)
}
