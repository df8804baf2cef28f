// Package server provides the HTTP dashboard and API for a hosted store.
//
// Routes:
//
//   - GET /: the embedded dashboard page
//   - GET /api/state: the latest state snapshot as JSON
//   - POST /api/dispatch: dispatch an action to the store
//   - GET /api/sse: Server-Sent Events stream of state snapshots
//
// The server never touches the store directly. Reads come from a
// [feed.Feed] and writes go through a [Dispatcher], normally a loop that
// owns the store goroutine.
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
