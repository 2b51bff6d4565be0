// Package backend is the only component that performs network I/O: a
// pooled HTTP client for the bond-data service, plus the mapping from HTTP
// statuses into the Response vocabulary the rest of the module consumes.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bondmaster/bondcache/bond"
)

// Config holds the transport settings. Immutable after construction.
type Config struct {
	BaseURL string
	Timeout time.Duration
	APIKey  string
}

// Client wraps HTTP calls to the bond-data service. One Client is shared
// per process (or per bondcache.Client); its connection pool is built
// lazily on first use and reused by all callers.
type Client struct {
	cfg Config

	once sync.Once
	http *http.Client
}

// New returns a Client. No connection is made until the first call.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{cfg: cfg}
}

// pool returns the shared *http.Client, constructing it exactly once even
// under concurrent first calls.
func (c *Client) pool() *http.Client {
	c.once.Do(func() {
		c.http = &http.Client{
			Timeout: c.cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        32,
				MaxIdleConnsPerHost: 32,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	})
	return c.http
}

// Close releases idle pooled connections. Goes through pool so a Close
// racing a first call never observes a half-published client.
func (c *Client) Close() {
	c.pool().CloseIdleConnections()
}

// Resolve performs one GET /resolve/{key} call and maps the result:
// 200 → Found, 202 → InProgress (Retry-After honored), 404 → NotFound,
// anything else (including network errors and timeouts) → TransportFailure.
func (c *Client) Resolve(ctx context.Context, key string) Response {
	resp, err := c.get(ctx, "/resolve/"+url.PathEscape(key), nil)
	if err != nil {
		return Response{Kind: TransportFailure, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		rec, err := decodeRecord(resp)
		if err != nil {
			return Response{Kind: TransportFailure, Err: err}
		}
		return Response{Kind: Found, Record: rec}

	case http.StatusAccepted:
		return Response{Kind: InProgress, RetryAfter: retryAfterHint(resp)}

	case http.StatusNotFound:
		return Response{Kind: NotFound}

	default:
		return Response{
			Kind: TransportFailure,
			Err:  fmt.Errorf("backend: unexpected status %d for %s", resp.StatusCode, key),
		}
	}
}

// List performs GET /list with the given filter parameters and returns the
// matching records. Used for the bulk passthrough surface; no Response
// mapping is needed because the call has no pending state.
func (c *Client) List(ctx context.Context, params url.Values) ([]bond.Record, error) {
	resp, err := c.get(ctx, "/list", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend: list returned status %d", resp.StatusCode)
	}

	var envelope struct {
		Data []bond.Record `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("backend: decode list response: %w", err)
	}
	return envelope.Data, nil
}

// Stats performs GET /stats and returns the backend's own counters
// (total bonds, per-country breakdown). Passthrough, never cached.
func (c *Client) Stats(ctx context.Context) (map[string]any, error) {
	resp, err := c.get(ctx, "/stats", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend: stats returned status %d", resp.StatusCode)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("backend: decode stats response: %w", err)
	}
	return out, nil
}

// Health probes GET /health. A nil error means the backend is reachable.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.get(ctx, "/health", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend: health returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	u := c.cfg.BaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("backend: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", c.cfg.APIKey)
	}

	resp, err := c.pool().Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: request failed: %w", err)
	}
	return resp, nil
}

// decodeRecord accepts both the enveloped {"data": {...}} shape and a bare
// object, matching what the service emits across versions.
func decodeRecord(resp *http.Response) (bond.Record, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("backend: decode record: %w", err)
	}
	if data, ok := raw["data"]; ok {
		var rec bond.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("backend: decode record envelope: %w", err)
		}
		return rec, nil
	}
	rec := make(bond.Record, len(raw))
	for k, v := range raw {
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return nil, fmt.Errorf("backend: decode field %q: %w", k, err)
		}
		rec[k] = val
	}
	return rec, nil
}

// retryAfterHint reads the Retry-After header (delta-seconds form) from a
// 202 response. Malformed or absent values yield 0 (no hint).
func retryAfterHint(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
