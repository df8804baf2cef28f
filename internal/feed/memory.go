package feed

import (
	"sync"
)

// subscriberBuffer is the channel capacity given to each subscriber.
const subscriberBuffer = 100

// MemoryFeed is an in-memory implementation of [Feed].
//
// Snapshots are delivered through buffered channels (buffer size 100). Sends
// are non-blocking; if a subscriber's buffer is full the snapshot is dropped
// for that subscriber. Readers that fall behind can resynchronise with
// [MemoryFeed.Latest].
type MemoryFeed struct {
	mu        sync.RWMutex
	latest    Snapshot
	published bool

	subscribers map[chan Snapshot]struct{}
	subMu       sync.RWMutex
}

// NewMemoryFeed creates an empty [MemoryFeed].
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// Publish stores s as the latest snapshot and notifies all subscribers.
//
// A snapshot older than the current latest (lower Version) is still
// delivered to subscribers but does not replace the latest.
func (m *MemoryFeed) Publish(s Snapshot) {
	m.mu.Lock()
	if !m.published || s.Version >= m.latest.Version {
		m.latest = s
		m.published = true
	}
	m.mu.Unlock()

	m.notifySubscribers(s)
}

// Latest returns the most recently published snapshot.
func (m *MemoryFeed) Latest() (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.latest, m.published
}

// Subscribe creates a new subscription and returns a channel for receiving snapshots.
//
// Caller must call [MemoryFeed.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryFeed) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// Safe to call multiple times or with an unknown channel.
func (m *MemoryFeed) Unsubscribe(ch <-chan Snapshot) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	// receive-only handles cannot be used as map keys for the send side
	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// Len returns the number of active subscribers.
func (m *MemoryFeed) Len() int {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	return len(m.subscribers)
}

func (m *MemoryFeed) notifySubscribers(s Snapshot) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- s:
		default:
			// slow subscriber, drop
		}
	}
}
