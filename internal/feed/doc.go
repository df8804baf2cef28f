// Package feed fans state snapshots out to dashboard clients.
//
// The store itself is single-goroutine and synchronous. Anything that needs
// to observe it from other goroutines (the SSE handler, the /api/state
// endpoint) reads from a [Feed] instead: a listener on the store goroutine
// publishes a [Snapshot] after every committed change, and readers pick it
// up through [Feed.Latest] or a subscription channel.
//
// Subscribers receive snapshots via buffered channels with non-blocking
// sends. A slow subscriber misses snapshots rather than stalling the store.
package feed
