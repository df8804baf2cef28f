package feed

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is the JSON representation of one committed store state.
type Snapshot struct {
	// Version is the store version that produced this state.
	Version uint64 `json:"version"`

	// Action is the printable form of the action that caused the change.
	// Empty for the initial snapshot.
	Action string `json:"action,omitempty"`

	// State is the encoded state.
	State json.RawMessage `json:"state"`

	// At is when the snapshot was taken.
	At time.Time `json:"at"`
}

// NewSnapshot encodes state into a [Snapshot] stamped with the current time.
func NewSnapshot(version uint64, action string, state any) (Snapshot, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encoding state: %w", err)
	}
	return Snapshot{
		Version: version,
		Action:  action,
		State:   data,
		At:      time.Now(),
	}, nil
}

// Feed publishes snapshots to concurrent readers.
//
// Implementations must be safe for concurrent access.
type Feed interface {
	// Publish records s as the latest snapshot and sends it to subscribers.
	Publish(s Snapshot)

	// Latest returns the most recently published snapshot.
	// ok is false until the first Publish.
	Latest() (s Snapshot, ok bool)

	// Subscribe returns a channel that receives every published snapshot.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Snapshot

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Snapshot)
}
