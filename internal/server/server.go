package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jpalmerr/ministore"
	"github.com/jpalmerr/ministore/internal/feed"
	"github.com/jpalmerr/ministore/internal/loop"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "ministore"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"

	// maxDispatchBody caps the size of a dispatch request body.
	maxDispatchBody = 64 << 10
)

// Dispatcher delivers actions to the goroutine that owns the store.
type Dispatcher interface {
	Dispatch(ctx context.Context, action ministore.Action) error
}

// dispatchResponse is the body of a successful POST /api/dispatch.
type dispatchResponse struct {
	Snapshot *feed.Snapshot `json:"snapshot"`
	Error    string         `json:"error,omitempty"`
}

// Server handles HTTP requests for the dashboard and API.
type Server struct {
	feed       feed.Feed
	dispatcher Dispatcher
	port       int
	httpServer *http.Server
	assets     fs.FS
	title      string
	logger     *slog.Logger
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - fd: Feed of state snapshots
//   - d: Dispatcher for POST /api/dispatch
//   - port: TCP port to listen on
//   - assets: Embedded filesystem containing dashboard assets (may be nil)
//   - title: Dashboard title (defaults to "ministore" if empty)
//   - logger: Logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(fd feed.Feed, d Dispatcher, port int, assets fs.FS, title string, logger *slog.Logger) *Server {
	return &Server{
		feed:       fd,
		dispatcher: d,
		port:       port,
		assets:     assets,
		title:      title,
		logger:     logger,
	}
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/dispatch", s.handleDispatch)
	mux.HandleFunc("/api/sse", s.handleSSE)

	if s.assets != nil {
		mux.HandleFunc("/", s.handleDashboard)
	}

	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler: s.Handler(),
		// request contexts end with ctx, which stops long-running SSE handlers
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// handleDashboard serves the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if s.assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// escape to prevent XSS through the configured title
	title := s.title
	if title == "" {
		title = defaultTitle
	}
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// handleState returns the latest snapshot as JSON.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot, ok := s.feed.Latest()
	if !ok {
		http.Error(w, "State not available", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		s.logger.Error("failed to encode state response", "error", err)
	}
}

// handleDispatch decodes an action and hands it to the dispatcher.
//
// A recovered listener failure does not undo the state change, so it is
// reported in the body of a 202 rather than as a failed request.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxDispatchBody))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	action, err := decodeAction(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.dispatcher.Dispatch(r.Context(), action)
	switch {
	case errors.Is(err, loop.ErrStopped), errors.Is(err, loop.ErrNotStarted):
		http.Error(w, "Store not running", http.StatusServiceUnavailable)
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "Dispatch cancelled", http.StatusServiceUnavailable)
		return
	case errors.Is(err, ministore.ErrDispatchDepthExceeded):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	resp := dispatchResponse{}
	if err != nil {
		s.logger.Warn("dispatch reported errors", "action", action.String(), "error", err)
		resp.Error = err.Error()
	}
	if snapshot, ok := s.feed.Latest(); ok {
		resp.Snapshot = &snapshot
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to encode dispatch response", "error", err)
	}
}

// decodeAction parses a dispatch body. Numbers are kept as json.Number so
// integer payloads survive the round trip.
func decodeAction(body []byte) (ministore.Action, error) {
	var action ministore.Action

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&action); err != nil {
		return action, fmt.Errorf("invalid action JSON: %w", err)
	}
	if strings.TrimSpace(action.Type) == "" {
		return action, errors.New("action type is required")
	}
	return action, nil
}

// handleSSE streams snapshots via Server-Sent Events.
//
// Writes carry a deadline so a slow or vanished client cannot pin the
// handler; without one a blocked write would never observe cancellation.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// some ResponseWriter implementations do not support deadlines
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}

		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ch := s.feed.Subscribe()
	defer s.feed.Unsubscribe(ch)

	// the client never sees a version older than one it was already sent
	var sent uint64
	if snapshot, ok := s.feed.Latest(); ok {
		data, err := json.Marshal(snapshot)
		if err == nil {
			if err := writeAndFlush(data); err != nil {
				return
			}
			sent = snapshot.Version
		}
	}

	for {
		select {
		case snapshot, ok := <-ch:
			if !ok {
				return
			}
			if snapshot.Version <= sent && sent != 0 {
				continue
			}
			data, err := json.Marshal(snapshot)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}
			sent = snapshot.Version

		case <-r.Context().Done():
			// fires on client disconnect and, through BaseContext, on shutdown
			return
		}
	}
}
