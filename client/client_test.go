package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

var testRecord = map[string]any{
	"isin":               "US912828XG32",
	"name":               "US Treasury 4.625% 2035",
	"country":            "US",
	"issuer":             "United States Treasury",
	"security_type":      "NOMINAL",
	"currency":           "USD",
	"coupon_rate":        4.625,
	"coupon_frequency":   2,
	"maturity_date":      "2035-05-15",
	"issue_date":         "2025-05-15",
	"outstanding_amount": 42_000_000_000.0,
}

// newTestClient wires a Client at an httptest server with poll delays
// collapsed so retry cycles finish in test time.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := Open(Config{
		BaseURL:        srv.URL,
		Timeout:        2 * time.Second,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func wantKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("want %v error, got nil", kind)
	}
	got, ok := KindOf(err)
	if !ok {
		t.Fatalf("want %v error, got foreign error %v", kind, err)
	}
	if got != kind {
		t.Fatalf("error kind = %v, want %v (err: %v)", got, kind, err)
	}
}

func TestResolve_FoundThenCached(t *testing.T) {
	var calls atomic.Int64
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"status": "found", "data": testRecord})
	}))

	v, err := c.Resolve(context.Background(), "US912828XG32", "coupon_rate")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if v != 4.625 {
		t.Fatalf("coupon_rate = %v, want 4.625 untouched", v)
	}

	// Second call on any field of the same bond must be a pure cache hit.
	if _, err := c.Resolve(context.Background(), "us912828xg32", "name"); err != nil {
		t.Fatalf("cached Resolve: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("backend calls = %d, want 1", n)
	}
	if stats := c.CacheStats(); stats.Hits != 1 {
		t.Fatalf("cache hits = %d, want 1", stats.Hits)
	}
}

func TestResolve_ShorthandAndNegativeCache(t *testing.T) {
	var calls atomic.Int64
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusNotFound, map[string]any{"status": "not_found"})
	}))

	_, err := c.Resolve(context.Background(), "XS0000000009", "coupon")
	wantKind(t, err, KindNotFound)

	// The absence is remembered; the repeat never reaches the backend.
	_, err = c.Resolve(context.Background(), "XS0000000009", "coupon")
	wantKind(t, err, KindNotFound)
	if n := calls.Load(); n != 1 {
		t.Fatalf("backend calls = %d, want 1", n)
	}
}

func TestResolveBlocking_PollsThroughInProgress(t *testing.T) {
	var calls atomic.Int64
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 3 {
			writeJSON(w, http.StatusAccepted, map[string]any{"status": "searching"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "found", "data": testRecord})
	}))

	v, err := c.ResolveBlocking(context.Background(), "US912828XG32", "maturity")
	if err != nil {
		t.Fatalf("ResolveBlocking: %v", err)
	}
	if v != "2035-05-15" {
		t.Fatalf("maturity = %v, want 2035-05-15", v)
	}
	if n := calls.Load(); n != 4 {
		t.Fatalf("backend calls = %d, want 4 (3 in-progress + 1 found)", n)
	}
}

func TestResolve_NonBlockingReturnsInProgress(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusAccepted, map[string]any{"status": "searching"})
	}))

	_, err := c.Resolve(context.Background(), "US912828XG32", "name")
	wantKind(t, err, KindLookupInProgress)
}

func TestResolveBlocking_ExhaustedBecomesNotFound(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusAccepted, map[string]any{"status": "searching"})
	}))
	defer srv.Close()

	c, err := Open(Config{
		BaseURL:        srv.URL,
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	_, rerr := c.ResolveBlocking(context.Background(), "US912828XG32", "name")
	wantKind(t, rerr, KindNotFound)
	if !strings.Contains(rerr.Error(), "gave up") {
		t.Fatalf("exhausted message = %q, want a gave-up wording", rerr.Error())
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("backend calls = %d, want MaxAttempts=3", n)
	}

	// The exhausted sentinel absorbs the immediate retry.
	_, rerr = c.Resolve(context.Background(), "US912828XG32", "name")
	wantKind(t, rerr, KindNotFound)
	if n := calls.Load(); n != 3 {
		t.Fatalf("backend calls after retry = %d, want still 3", n)
	}
}

func TestResolve_ValidationNeverTouchesNetworkOrCache(t *testing.T) {
	var calls atomic.Int64
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	for _, isin := range []string{"", "BADKEY", "US12", "12912828XG32"} {
		_, err := c.Resolve(context.Background(), isin, "name")
		wantKind(t, err, KindValidation)
	}
	_, err := c.Resolve(context.Background(), "US912828XG32", "no_such_field")
	wantKind(t, err, KindFieldNotFound)

	if n := calls.Load(); n != 0 {
		t.Fatalf("backend calls = %d, want 0", n)
	}
	if stats := c.CacheStats(); stats.Size != 0 {
		t.Fatalf("cache size = %d, want 0 (invalid input must not be cached)", stats.Size)
	}
}

func TestResolve_TransportFailureNotCached(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			time.Sleep(200 * time.Millisecond)
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "found", "data": testRecord})
	}))
	defer srv.Close()

	c, err := Open(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	_, rerr := c.Resolve(context.Background(), "US912828XG32", "name")
	wantKind(t, rerr, KindBackendUnavailable)

	// Failure is not memorized: the backend recovers and the very next
	// call succeeds without waiting out any TTL.
	failing.Store(false)
	if _, err := c.Resolve(context.Background(), "US912828XG32", "name"); err != nil {
		t.Fatalf("Resolve after recovery: %v", err)
	}
}

func TestInfo(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "found", "data": testRecord})
	}))

	rows, err := c.Info(context.Background(), "US912828XG32", true)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + values", len(rows))
	}
	if rows[0][0] != "ISIN" || rows[1][0] != "US912828XG32" {
		t.Fatalf("unexpected first column: %v / %v", rows[0][0], rows[1][0])
	}
	if len(rows[0]) != len(rows[1]) {
		t.Fatalf("ragged rows: %d headers, %d values", len(rows[0]), len(rows[1]))
	}

	rows, err = c.Info(context.Background(), "US912828XG32", false)
	if err != nil {
		t.Fatalf("Info without headers: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want values only", len(rows))
	}
}

func TestClearCacheForcesRefetch(t *testing.T) {
	var calls atomic.Int64
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"status": "found", "data": testRecord})
	}))

	ctx := context.Background()
	if _, err := c.Resolve(ctx, "US912828XG32", "name"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if n := c.ClearCache(); n != 1 {
		t.Fatalf("ClearCache = %d, want 1", n)
	}
	if _, err := c.Resolve(ctx, "US912828XG32", "name"); err != nil {
		t.Fatalf("Resolve after clear: %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("backend calls = %d, want 2", n)
	}
}

func TestStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %s, want /health", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}))
	if err := c.Status(context.Background()); err != nil {
		t.Fatalf("Status: %v", err)
	}
}

func TestClosedClient(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := c.Resolve(context.Background(), "US912828XG32", "name"); !errors.Is(err, ErrClientClosed) {
		t.Fatalf("Resolve after Close = %v, want ErrClientClosed", err)
	}
	if _, err := c.List(context.Background(), ListQuery{Country: "US"}); !errors.Is(err, ErrClientClosed) {
		t.Fatalf("List after Close = %v, want ErrClientClosed", err)
	}
}
