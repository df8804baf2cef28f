package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jpalmerr/ministore"
	"github.com/jpalmerr/ministore/internal/feed"
	"github.com/jpalmerr/ministore/internal/loop"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func publish(f *feed.MemoryFeed, version uint64, counter int) {
	f.Publish(feed.Snapshot{
		Version: version,
		State:   json.RawMessage(fmt.Sprintf(`{"counter":%d}`, counter)),
		At:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
}

// mockDispatcher counts INCREMENT actions and publishes the result to a feed,
// the way the app's feed listener does on the store goroutine.
type mockDispatcher struct {
	mu      sync.Mutex
	feed    *feed.MemoryFeed
	counter int
	version uint64
	actions []ministore.Action
	err     error
}

func (m *mockDispatcher) Dispatch(_ context.Context, action ministore.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.actions = append(m.actions, action)
	if m.err != nil && !errors.As(m.err, new(*ministore.ListenerError)) {
		return m.err
	}
	if action.Type == "INCREMENT" {
		m.counter++
		m.version++
		publish(m.feed, m.version, m.counter)
	}
	return m.err
}

func newTestServer() (*Server, *feed.MemoryFeed, *mockDispatcher) {
	f := feed.NewMemoryFeed()
	d := &mockDispatcher{feed: f}
	return NewServer(f, d, 0, nil, "", testLogger()), f, d
}

// --- Dispatch ---

func TestHandleDispatch_Accepted(t *testing.T) {
	srv, _, d := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/dispatch", strings.NewReader(`{"type":"INCREMENT"}`))
	rec := httptest.NewRecorder()

	srv.handleDispatch(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d, body: %s", rec.Code, http.StatusAccepted, rec.Body.String())
	}

	var resp dispatchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Snapshot == nil {
		t.Fatal("response should include the latest snapshot")
	}
	if resp.Snapshot.Version != 1 {
		t.Errorf("Snapshot.Version = %d, want 1", resp.Snapshot.Version)
	}
	if string(resp.Snapshot.State) != `{"counter":1}` {
		t.Errorf("Snapshot.State = %s, want %s", resp.Snapshot.State, `{"counter":1}`)
	}
	if resp.Error != "" {
		t.Errorf("Error = %q, want empty", resp.Error)
	}
	if len(d.actions) != 1 || d.actions[0].Type != "INCREMENT" {
		t.Errorf("dispatched %v, want [INCREMENT]", d.actions)
	}
}

func TestHandleDispatch_PayloadKeepsNumbers(t *testing.T) {
	srv, _, d := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/dispatch", strings.NewReader(`{"type":"SET_COUNTER","payload":5}`))
	rec := httptest.NewRecorder()

	srv.handleDispatch(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	got, ok := d.actions[0].Payload.(json.Number)
	if !ok {
		t.Fatalf("payload type = %T, want json.Number", d.actions[0].Payload)
	}
	if got.String() != "5" {
		t.Errorf("payload = %s, want 5", got)
	}
}

func TestHandleDispatch_Errors(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       string
		err        error
		wantStatus int
	}{
		{"wrong method", http.MethodGet, "", nil, http.StatusMethodNotAllowed},
		{"bad json", http.MethodPost, `{"type":`, nil, http.StatusBadRequest},
		{"missing type", http.MethodPost, `{"payload":1}`, nil, http.StatusBadRequest},
		{"blank type", http.MethodPost, `{"type":"  "}`, nil, http.StatusBadRequest},
		{"loop stopped", http.MethodPost, `{"type":"INCREMENT"}`, loop.ErrStopped, http.StatusServiceUnavailable},
		{"loop not started", http.MethodPost, `{"type":"INCREMENT"}`, loop.ErrNotStarted, http.StatusServiceUnavailable},
		{"cancelled", http.MethodPost, `{"type":"INCREMENT"}`, context.Canceled, http.StatusServiceUnavailable},
		{"depth exceeded", http.MethodPost, `{"type":"INCREMENT"}`, fmt.Errorf("%w: depth 1", ministore.ErrDispatchDepthExceeded), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, d := newTestServer()
			d.err = tt.err

			req := httptest.NewRequest(tt.method, "/api/dispatch", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			srv.handleDispatch(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d, body: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestHandleDispatch_ListenerErrorStillAccepted(t *testing.T) {
	srv, _, d := newTestServer()
	d.err = &ministore.ListenerError{SubscriptionID: "sub_1", CorrelationID: "abc", Panic: "boom"}

	req := httptest.NewRequest(http.MethodPost, "/api/dispatch", strings.NewReader(`{"type":"INCREMENT"}`))
	rec := httptest.NewRecorder()

	srv.handleDispatch(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}

	var resp dispatchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !strings.Contains(resp.Error, "sub_1") {
		t.Errorf("Error = %q, want it to mention sub_1", resp.Error)
	}
	if resp.Snapshot == nil || resp.Snapshot.Version != 1 {
		t.Errorf("Snapshot = %+v, want version 1", resp.Snapshot)
	}
}

// --- State ---

func TestHandleState(t *testing.T) {
	srv, f, _ := newTestServer()
	publish(f, 4, 2)

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	rec := httptest.NewRecorder()

	srv.handleState(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}

	var snapshot feed.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if snapshot.Version != 4 {
		t.Errorf("Version = %d, want 4", snapshot.Version)
	}
}

func TestHandleState_NotPublished(t *testing.T) {
	srv, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	rec := httptest.NewRecorder()

	srv.handleState(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestHandleState_WrongMethod(t *testing.T) {
	srv, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/state", nil)
	rec := httptest.NewRecorder()

	srv.handleState(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

// --- SSE ---

func parseSSEEvents(body string) []feed.Snapshot {
	var snapshots []feed.Snapshot
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "data: ") {
			var s feed.Snapshot
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &s); err == nil {
				snapshots = append(snapshots, s)
			}
		}
	}
	return snapshots
}

func TestHandleSSE_InitialSnapshot(t *testing.T) {
	srv, f, _ := newTestServer()
	publish(f, 3, 7)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	srv.handleSSE(rec, req)

	events := parseSSEEvents(rec.Body.String())
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1: %s", len(events), rec.Body.String())
	}
	if events[0].Version != 3 {
		t.Errorf("Version = %d, want 3", events[0].Version)
	}
}

func TestHandleSSE_StreamsUpdates(t *testing.T) {
	srv, f, _ := newTestServer()
	publish(f, 1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.handleSSE(rec, req)
		close(done)
	}()

	// give handler time to subscribe
	time.Sleep(50 * time.Millisecond)

	publish(f, 2, 2)
	publish(f, 3, 3)

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("handler did not exit after context cancellation")
	}

	events := parseSSEEvents(rec.Body.String())
	var versions []uint64
	for _, e := range events {
		versions = append(versions, e.Version)
	}
	if fmt.Sprint(versions) != "[1 2 3]" {
		t.Errorf("versions = %v, want [1 2 3]", versions)
	}
}

func TestHandleSSE_SkipsStaleSnapshots(t *testing.T) {
	srv, f, _ := newTestServer()
	publish(f, 5, 5)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.handleSSE(rec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	publish(f, 4, 4)
	publish(f, 6, 6)
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	var versions []uint64
	for _, e := range parseSSEEvents(rec.Body.String()) {
		versions = append(versions, e.Version)
	}
	if fmt.Sprint(versions) != "[5 6]" {
		t.Errorf("versions = %v, want [5 6]", versions)
	}
}

func TestHandleSSE_ClientDisconnect(t *testing.T) {
	srv, _, _ := newTestServer()

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.handleSSE(rec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("handler did not exit after client disconnect")
	}
}

func TestHandleSSE_UnsubscribesOnExit(t *testing.T) {
	srv, f, _ := newTestServer()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	srv.handleSSE(httptest.NewRecorder(), req)

	if f.Len() != 0 {
		t.Errorf("feed subscribers = %d after handler exit, want 0", f.Len())
	}
}

func TestHandleSSE_NoGoroutineLeaks(t *testing.T) {
	runtime.GC()
	time.Sleep(100 * time.Millisecond)
	before := runtime.NumGoroutine()

	srv, _, _ := newTestServer()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
			srv.handleSSE(httptest.NewRecorder(), req)
		}()
	}

	wg.Wait()

	runtime.GC()
	time.Sleep(200 * time.Millisecond)

	after := runtime.NumGoroutine()
	if after > before+2 { // small tolerance for runtime variance
		t.Errorf("potential goroutine leak: before=%d, after=%d", before, after)
	}
}

func TestHandleSSE_ConcurrentClientsShutdown(t *testing.T) {
	srv, f, _ := newTestServer()
	publish(f, 1, 1)

	serverCtx, serverCancel := context.WithCancel(context.Background())

	numClients := 10
	var wg sync.WaitGroup
	started := make(chan struct{})
	var startedCount atomic.Int32

	for i := 0; i < numClients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(serverCtx)

			if startedCount.Add(1) == int32(numClients) {
				close(started)
			}

			srv.handleSSE(httptest.NewRecorder(), req)
		}()
	}

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("clients did not start in time")
	}

	time.Sleep(100 * time.Millisecond)
	serverCancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("not all handlers exited after shutdown")
	}
}

type nonFlushWriter struct {
	header     http.Header
	statusCode int
	body       []byte
}

func (n *nonFlushWriter) Header() http.Header {
	return n.header
}

func (n *nonFlushWriter) Write(b []byte) (int, error) {
	n.body = append(n.body, b...)
	return len(b), nil
}

func (n *nonFlushWriter) WriteHeader(statusCode int) {
	n.statusCode = statusCode
}

func TestHandleSSE_SSENotSupported(t *testing.T) {
	srv, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil)
	w := &nonFlushWriter{header: make(http.Header)}

	srv.handleSSE(w, req)

	if w.statusCode != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.statusCode)
	}
}

func TestHandleSSE_Headers(t *testing.T) {
	srv, _, _ := newTestServer()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	srv.handleSSE(rec, req)

	expectedHeaders := map[string]string{
		"Content-Type":                "text/event-stream",
		"Cache-Control":               "no-cache",
		"Connection":                  "keep-alive",
		"Access-Control-Allow-Origin": "*",
	}

	for key, expected := range expectedHeaders {
		if got := rec.Header().Get(key); got != expected {
			t.Errorf("header %s = %q, want %q", key, got, expected)
		}
	}
}

// TestHandleSSE_ServerShutdownIntegration uses a real connection, which
// supports write deadlines unlike ResponseRecorder.
func TestHandleSSE_ServerShutdownIntegration(t *testing.T) {
	srv, f, _ := newTestServer()
	publish(f, 1, 1)

	serverCtx, serverCancel := context.WithCancel(context.Background())

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.handleSSE(w, r.WithContext(serverCtx))
	})

	ts := httptest.NewServer(handler)
	defer ts.Close()

	connDone := make(chan error, 1)
	go func() {
		resp, err := ts.Client().Get(ts.URL)
		if err != nil {
			connDone <- err
			return
		}
		defer func() { _ = resp.Body.Close() }()

		buf := make([]byte, 1024)
		for {
			if _, err := resp.Body.Read(buf); err != nil {
				connDone <- nil
				return
			}
		}
	}()

	time.Sleep(100 * time.Millisecond)
	serverCancel()

	select {
	case <-connDone:
	case <-time.After(3 * time.Second):
		t.Fatal("SSE connection did not close after server shutdown")
	}
}

// --- Routing and Start ---

func TestHandler_Routes(t *testing.T) {
	f := feed.NewMemoryFeed()
	publish(f, 1, 1)
	d := &mockDispatcher{feed: f}
	srv := NewServer(f, d, 0, &mockFS{content: "<title>{{.Title}}</title>"}, "", testLogger())

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("GET /api/state: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /api/state status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL+"/api/dispatch", "application/json", strings.NewReader(`{"type":"INCREMENT"}`))
	if err != nil {
		t.Fatalf("POST /api/dispatch: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("POST /api/dispatch status = %d, want 202", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), "<title>ministore</title>") {
		t.Errorf("GET / body = %s, want default title", body)
	}
}

func TestStart_AvailablePort_ReturnsNil(t *testing.T) {
	srv, _, _ := newTestServer()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		t.Errorf("Start() on available port returned error: %v", err)
	}
}

func TestStart_PortInUse_ReturnsError(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	defer func() { _ = ln.Close() }()

	port := ln.Addr().(*net.TCPAddr).Port

	f := feed.NewMemoryFeed()
	srv := NewServer(f, &mockDispatcher{feed: f}, port, nil, "", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = srv.Start(ctx)
	if err == nil {
		t.Fatal("Start() on occupied port should return error")
	}
	if !strings.Contains(err.Error(), "failed to bind") {
		t.Errorf("expected bind error, got: %v", err)
	}
}

func TestStart_InvalidPort_ReturnsError(t *testing.T) {
	f := feed.NewMemoryFeed()
	srv := NewServer(f, &mockDispatcher{feed: f}, -1, nil, "", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err == nil {
		t.Fatal("Start() with invalid port should return error")
	}
}

// --- Dashboard ---

// mockFS implements fs.ReadFileFS for testing dashboard rendering.
type mockFS struct {
	content string
}

func (m *mockFS) Open(name string) (fs.File, error) {
	return nil, fs.ErrNotExist
}

func (m *mockFS) ReadFile(name string) ([]byte, error) {
	if name == "assets/index.html" {
		return []byte(m.content), nil
	}
	return nil, fs.ErrNotExist
}

func TestHandleDashboard(t *testing.T) {
	tests := []struct {
		name      string
		assets    fs.FS
		title     string
		path      string
		wantCode  int
		wantBody  string
		forbidden string
	}{
		{"custom title", &mockFS{content: "<title>{{.Title}}</title><h1>{{.Title}}</h1>"}, "Counter Demo", "/", http.StatusOK, "<h1>Counter Demo</h1>", ""},
		{"default title", &mockFS{content: "<title>{{.Title}}</title>"}, "", "/", http.StatusOK, "<title>ministore</title>", ""},
		{"escapes html", &mockFS{content: "<title>{{.Title}}</title>"}, "<script>alert('xss')</script>", "/", http.StatusOK, "&lt;script&gt;", "<script>"},
		{"escapes ampersand", &mockFS{content: "<title>{{.Title}}</title>"}, "Counter & User", "/", http.StatusOK, "Counter &amp; User", ""},
		{"missing assets", nil, "x", "/", http.StatusInternalServerError, "", ""},
		{"non-root path", &mockFS{content: "x"}, "", "/other", http.StatusNotFound, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := feed.NewMemoryFeed()
			srv := NewServer(f, &mockDispatcher{feed: f}, 0, tt.assets, tt.title, testLogger())

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			srv.handleDashboard(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			body := rec.Body.String()
			if tt.wantBody != "" && !strings.Contains(body, tt.wantBody) {
				t.Errorf("body = %s, want it to contain %q", body, tt.wantBody)
			}
			if tt.forbidden != "" && strings.Contains(body, tt.forbidden) {
				t.Errorf("body = %s, must not contain %q", body, tt.forbidden)
			}
		})
	}
}

func BenchmarkHandleDispatch(b *testing.B) {
	srv, _, _ := newTestServer()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/dispatch", strings.NewReader(`{"type":"INCREMENT"}`))
		srv.handleDispatch(httptest.NewRecorder(), req)
	}
}
