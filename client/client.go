// Package client is the synchronous entry surface callers invoke: it
// validates input, consults the lookup cache, delegates misses to the
// lookup coordinator, and folds every outcome into the fixed error
// taxonomy. One Client owns one transport, one cache, and one coordinator;
// construct it explicitly with Open and pass it around — there are no
// package-level globals.
package client

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/bondmaster/bondcache/backend"
	"github.com/bondmaster/bondcache/bond"
	"github.com/bondmaster/bondcache/cache"
	"github.com/bondmaster/bondcache/internal/singleflight"
	"github.com/bondmaster/bondcache/lookup"
)

// ErrClientClosed is returned by operations on a closed Client.
var ErrClientClosed = errors.New("client: closed")

// Client bundles the transport, the cache store, and the coordinator with
// an explicit lifecycle. Safe for concurrent use by multiple goroutines.
type Client struct {
	cfg   Config
	be    *backend.Client
	store cache.Cache[string, lookup.Entry]
	coord *lookup.Coordinator

	// Passthrough queries are coalesced so identical recalculating cells
	// don't fan duplicate list/stats calls at the backend.
	listQ  singleflight.Group[string, []bond.Record]
	statsQ singleflight.Group[string, map[string]any]

	closed atomic.Bool
}

// Open wires a ready-to-use Client from cfg. Zero-valued cfg fields fall
// back to DefaultConfig values. No network I/O happens until the first
// lookup.
func Open(cfg Config) (*Client, error) {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if cfg.NegativeTTL <= 0 {
		cfg.NegativeTTL = def.NegativeTTL
	}
	if cfg.ExhaustedTTL <= 0 {
		cfg.ExhaustedTTL = def.ExhaustedTTL
	}
	if cfg.CacheCapacity <= 0 {
		cfg.CacheCapacity = def.CacheCapacity
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}

	be := backend.New(backend.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		APIKey:  cfg.APIKey,
	})
	store := cache.New[string, lookup.Entry](cache.Options[string, lookup.Entry]{
		Capacity:   cfg.CacheCapacity,
		Shards:     cfg.CacheShards,
		DefaultTTL: cfg.CacheTTL,
		Metrics:    cfg.CacheMetrics,
	})
	coord := lookup.New(store, be, lookup.Config{
		MaxAttempts:    cfg.MaxAttempts,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
		NegativeTTL:    cfg.NegativeTTL,
		ExhaustedTTL:   cfg.ExhaustedTTL,
		Metrics:        cfg.LookupMetrics,
		Logger:         cfg.Logger,
	})

	return &Client{cfg: cfg, be: be, store: store, coord: coord}, nil
}

// Close stops background polling and releases pooled connections.
// Idempotent; operations after Close return ErrClientClosed.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	err := c.coord.Close()
	_ = c.store.Close()
	c.be.Close()
	return err
}

// record validates and normalizes isin, then resolves its full record via
// the cache-first, coordinator-on-miss path shared by every per-bond
// operation. Malformed input fails here, before cache or network.
func (c *Client) record(ctx context.Context, isin string) (bond.Record, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	key := bond.NormalizeISIN(isin)
	if key == "" {
		return nil, errValidation("ISIN required")
	}
	if !bond.ValidISIN(key) {
		return nil, errValidation("invalid ISIN format: %s", key)
	}

	if e, ok := c.store.Get(key); ok {
		e, err := classifyEntry(key, e)
		if err != nil {
			return nil, err
		}
		return e.Record, nil
	}

	e, err := classify(key, c.coord.Resolve(ctx, key))
	if err != nil {
		return nil, err
	}
	return e.Record, nil
}

// recordBlocking is record for callers that can afford to wait out an
// in-flight polling cycle (CLI, tests). Spreadsheet hosts stay on the
// non-blocking path and re-poll by re-invoking.
func (c *Client) recordBlocking(ctx context.Context, isin string) (bond.Record, error) {
	for {
		rec, err := c.record(ctx, isin)
		if kind, ok := KindOf(err); !ok || kind != KindLookupInProgress {
			return rec, err
		}
		key := bond.NormalizeISIN(isin)
		if r, waited := c.coord.Wait(ctx, key); waited {
			if r.Err != nil || r.Pending {
				if _, err := classify(key, r); err != nil {
					return nil, err
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, errUnavailable(err)
		}
		// Re-read through the cache so hit accounting and TTL rules stay
		// in one place.
	}
}

// ClearCache drops all cached entries and returns how many were removed.
// In-flight lookups are untouched; they re-populate the cache on
// completion.
func (c *Client) ClearCache() int {
	return c.store.Clear()
}

// CacheStats returns a point-in-time cache snapshot.
func (c *Client) CacheStats() cache.Stats {
	return c.store.Stats()
}

// Status probes backend connectivity. A nil error means reachable.
func (c *Client) Status(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if err := c.be.Health(ctx); err != nil {
		return errUnavailable(err)
	}
	return nil
}
