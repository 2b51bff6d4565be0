package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(url string) *Client {
	return New(Config{BaseURL: url, Timeout: 2 * time.Second})
}

func TestResolve_FoundEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/resolve/GB00BYZW3G56" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID header")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"isin": "GB00BYZW3G56", "coupon_rate": 0.015},
		})
	}))
	defer srv.Close()

	got := newTestClient(srv.URL).Resolve(context.Background(), "GB00BYZW3G56")
	if got.Kind != Found {
		t.Fatalf("kind = %v, err = %v", got.Kind, got.Err)
	}
	if got.Record["coupon_rate"] != 0.015 {
		t.Fatalf("record = %v", got.Record)
	}
}

func TestResolve_FoundBareObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"isin": "US912810TM58", "currency": "USD"})
	}))
	defer srv.Close()

	got := newTestClient(srv.URL).Resolve(context.Background(), "US912810TM58")
	if got.Kind != Found || got.Record["currency"] != "USD" {
		t.Fatalf("got %+v", got)
	}
}

func TestResolve_InProgressWithHint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	got := newTestClient(srv.URL).Resolve(context.Background(), "XS0000000001")
	if got.Kind != InProgress {
		t.Fatalf("kind = %v", got.Kind)
	}
	if got.RetryAfter != 3*time.Second {
		t.Fatalf("retryAfter = %v", got.RetryAfter)
	}
}

func TestResolve_InProgressNoHint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	got := newTestClient(srv.URL).Resolve(context.Background(), "XS0000000001")
	if got.Kind != InProgress || got.RetryAfter != 0 {
		t.Fatalf("got %+v", got)
	}
}

func TestResolve_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if got := newTestClient(srv.URL).Resolve(context.Background(), "ZZ999999999Z"); got.Kind != NotFound {
		t.Fatalf("kind = %v", got.Kind)
	}
}

func TestResolve_ServerErrorIsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	got := newTestClient(srv.URL).Resolve(context.Background(), "GB00BYZW3G56")
	if got.Kind != TransportFailure || got.Err == nil {
		t.Fatalf("got %+v", got)
	}
}

func TestResolve_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	got := c.Resolve(context.Background(), "GB00BYZW3G56")
	if got.Kind != TransportFailure || got.Err == nil {
		t.Fatalf("got %+v", got)
	}
}

func TestResolve_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // nothing listening anymore

	got := newTestClient(srv.URL).Resolve(context.Background(), "GB00BYZW3G56")
	if got.Kind != TransportFailure {
		t.Fatalf("kind = %v", got.Kind)
	}
}

func TestList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/list" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("country"); got != "GB" {
			t.Errorf("country = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"isin": "GB00BYZW3G56"},
				{"isin": "GB00B3LZBF68"},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	recs, err := c.List(context.Background(), map[string][]string{"country": {"GB"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0]["isin"] != "GB00BYZW3G56" {
		t.Fatalf("records = %v", recs)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
	}))
	defer srv.Close()

	if err := newTestClient(srv.URL).Health(context.Background()); err != nil {
		t.Fatal(err)
	}
}

// The pooled http.Client is constructed once even when the first calls race.
func TestPool_SingleInit(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	done := make(chan *http.Client, 8)
	for i := 0; i < 8; i++ {
		go func() {
			c.Resolve(context.Background(), "GB00BYZW3G56")
			done <- c.pool()
		}()
	}
	first := <-done
	for i := 1; i < 8; i++ {
		if p := <-done; p != first {
			t.Fatal("pool constructed more than once")
		}
	}
	if atomic.LoadInt64(&calls) != 8 {
		t.Fatalf("backend saw %d calls, want 8", calls)
	}
}

// Close racing the very first call must see a fully published pool, never
// a half-constructed one. Exercised under -race.
func TestClose_RacesFirstCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	done := make(chan struct{})
	go func() {
		c.Resolve(context.Background(), "GB00BYZW3G56")
		close(done)
	}()
	c.Close()
	<-done
	c.Close() // idempotent after use
}
