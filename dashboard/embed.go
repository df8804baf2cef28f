// Package dashboard provides the embedded web UI for the ministore server.
//
// The page mirrors the terminal demo: a counter display and controls, and a
// user display and controls. It reads state from /api/sse and sends actions
// to /api/dispatch.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Dashboard page with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS
