package lookup

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bondmaster/bondcache/backend"
	"github.com/bondmaster/bondcache/cache"
)

// ErrClosed is returned for lookups issued or in flight while the
// coordinator shuts down.
var ErrClosed = errors.New("lookup: coordinator closed")

// Backend is the single operation the coordinator needs from the
// transport. *backend.Client satisfies it.
type Backend interface {
	Resolve(ctx context.Context, key string) backend.Response
}

// Config tunes the polling state machine. Zero values select defaults.
type Config struct {
	// MaxAttempts bounds backend calls per resolution cycle (default 5).
	MaxAttempts int

	// InitialBackoff and MaxBackoff shape the delay between polls:
	// exponential from InitialBackoff (default 500ms) capped at
	// MaxBackoff (default 5s). A Retry-After hint overrides the curve.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// NegativeTTL is the cache TTL for definitive not-found sentinels
	// (default 30s). Short, so a bond issued later is picked up.
	NegativeTTL time.Duration

	// ExhaustedTTL is the cache TTL for gave-up sentinels (default 15s).
	// Shorter than NegativeTTL: exhaustion is not a statement about the
	// bond, only about this polling cycle.
	ExhaustedTTL time.Duration

	// Metrics receives poll/outcome/inflight signals. Nil => NoopMetrics.
	Metrics Metrics

	// Logger for poll-cycle events. Nil => slog.Default().
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 500 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Second
	}
	if c.NegativeTTL <= 0 {
		c.NegativeTTL = 30 * time.Second
	}
	if c.ExhaustedTTL <= 0 {
		c.ExhaustedTTL = 15 * time.Second
	}
	if c.Metrics == nil {
		c.Metrics = NoopMetrics{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// pendingLookup tracks one in-flight resolution cycle. At most one exists
// per key; the pending table enforces that, not the cache. Waiters block
// on done; result is published before done is closed.
type pendingLookup struct {
	key       string
	startedAt time.Time
	attempts  atomic.Int32

	done   chan struct{}
	result Result
}

// Coordinator owns the pending-lookup table and writes terminal results
// into the cache store. Safe for concurrent use.
type Coordinator struct {
	store cache.Cache[string, Entry]
	be    Backend
	cfg   Config

	mu      sync.Mutex
	pending map[string]*pendingLookup
	closed  bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// New constructs a Coordinator writing terminal results into store.
func New(store cache.Cache[string, Entry], be Backend, cfg Config) *Coordinator {
	return &Coordinator{
		store:   store,
		be:      be,
		cfg:     cfg.withDefaults(),
		pending: make(map[string]*pendingLookup),
		stop:    make(chan struct{}),
	}
}

// Resolve handles a cache miss for key. It issues at most one bounded
// backend call on the caller's thread. The returned Result is either
// terminal (found / not-found / exhausted / transport error) or pending,
// in which case polling continues in the background and a later call for
// the same key observes the progressed state.
//
// Concurrent callers for one key collapse into a single cycle: whoever
// creates the pending entry becomes the leader; everyone else gets the
// pending indicator immediately.
func (c *Coordinator) Resolve(ctx context.Context, key string) Result {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Result{Err: ErrClosed}
	}
	if _, inFlight := c.pending[key]; inFlight {
		c.mu.Unlock()
		return Result{Pending: true}
	}
	p := &pendingLookup{key: key, startedAt: time.Now(), done: make(chan struct{})}
	c.pending[key] = p
	c.cfg.Metrics.Inflight(len(c.pending))
	c.mu.Unlock()

	// Double-check after winning the leader slot: another caller's
	// terminal write may have landed between the facade's miss and here.
	if e, ok := c.store.Get(key); ok {
		return c.finish(p, Result{Entry: e}, "")
	}

	p.attempts.Add(1)
	c.cfg.Metrics.Poll()
	resp := c.be.Resolve(ctx, key)

	switch resp.Kind {
	case backend.Found:
		e := Entry{Status: StatusFound, Record: resp.Record}
		c.store.Set(key, e)
		return c.finish(p, Result{Entry: e}, "found")

	case backend.NotFound:
		e := Entry{Status: StatusNotFound}
		c.store.SetWithTTL(key, e, c.cfg.NegativeTTL)
		return c.finish(p, Result{Entry: e}, "not_found")

	case backend.InProgress:
		if int(p.attempts.Load()) >= c.cfg.MaxAttempts {
			return c.exhaust(p)
		}
		c.wg.Add(1)
		go c.poll(p, resp.RetryAfter)
		return Result{Pending: true}

	default: // backend.TransportFailure
		return c.finish(p, Result{Err: resp.Err}, "transport_failure")
	}
}

// Wait blocks until the in-flight lookup for key reaches a terminal state,
// or ctx expires. The second return is false when nothing is in flight; in
// that case the cache already holds whatever there is to know.
func (c *Coordinator) Wait(ctx context.Context, key string) (Result, bool) {
	c.mu.Lock()
	p, ok := c.pending[key]
	c.mu.Unlock()
	if !ok {
		return Result{}, false
	}
	select {
	case <-p.done:
		return p.result, true
	case <-ctx.Done():
		return Result{Err: ctx.Err()}, true
	}
}

// InFlight reports whether a resolution cycle is currently running for key.
func (c *Coordinator) InFlight(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[key]
	return ok
}

// Close stops background polling and fails any in-flight cycles with
// ErrClosed. Idempotent.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.stop)
	c.mu.Unlock()
	c.wg.Wait()
	return nil
}

// poll drives the background portion of one resolution cycle. Runs on its
// own goroutine; the caller that started the cycle has long returned.
func (c *Coordinator) poll(p *pendingLookup, hint time.Duration) {
	defer c.wg.Done()

	log := c.cfg.Logger
	for {
		delay := hint
		if delay <= 0 {
			delay = backoffDelay(c.cfg.InitialBackoff, c.cfg.MaxBackoff, int(p.attempts.Load()))
		}
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-c.stop:
			timer.Stop()
			c.finish(p, Result{Err: ErrClosed}, "")
			return
		}

		attempt := int(p.attempts.Add(1))
		c.cfg.Metrics.Poll()
		resp := c.be.Resolve(context.Background(), p.key)
		log.Debug("lookup poll",
			"key", p.key, "attempt", attempt, "outcome", resp.Kind.String())

		switch resp.Kind {
		case backend.Found:
			e := Entry{Status: StatusFound, Record: resp.Record}
			c.store.Set(p.key, e)
			c.finish(p, Result{Entry: e}, "found")
			return

		case backend.NotFound:
			e := Entry{Status: StatusNotFound}
			c.store.SetWithTTL(p.key, e, c.cfg.NegativeTTL)
			c.finish(p, Result{Entry: e}, "not_found")
			return

		case backend.InProgress:
			if attempt >= c.cfg.MaxAttempts {
				c.exhaust(p)
				return
			}
			hint = resp.RetryAfter

		default: // backend.TransportFailure
			// A transient network problem must not poison the cache;
			// the next facade miss starts a fresh cycle immediately.
			c.finish(p, Result{Err: resp.Err}, "transport_failure")
			return
		}
	}
}

// exhaust ends a cycle whose attempt budget ran out while the backend was
// still searching. A short-lived sentinel keeps the next few recalculations
// from hammering the backend, while staying distinct from NotFound.
func (c *Coordinator) exhaust(p *pendingLookup) Result {
	c.cfg.Logger.Warn("lookup exhausted",
		"key", p.key,
		"attempts", p.attempts.Load(),
		"elapsed", time.Since(p.startedAt))
	e := Entry{Status: StatusExhausted}
	c.store.SetWithTTL(p.key, e, c.cfg.ExhaustedTTL)
	return c.finish(p, Result{Entry: e}, "exhausted")
}

// finish publishes the terminal result, wakes all waiters, and removes the
// pending entry. The publish happens-before close(done), so waiters always
// observe the final result.
func (c *Coordinator) finish(p *pendingLookup, r Result, outcome string) Result {
	p.result = r
	close(p.done)

	c.mu.Lock()
	delete(c.pending, p.key)
	c.cfg.Metrics.Inflight(len(c.pending))
	c.mu.Unlock()

	if outcome != "" {
		c.cfg.Metrics.Outcome(outcome)
	}
	return r
}
