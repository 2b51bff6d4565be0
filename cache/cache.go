package cache

import (
	"sync/atomic"
	"time"

	"github.com/bondmaster/bondcache/internal/util"
)

// store is a sharded in-memory KV map with LRU eviction and lazy TTL.
// All methods are safe for concurrent use by multiple goroutines.
type store[K comparable, V any] struct {
	shards []*shard[K, V]
	hash   func(K) uint64
	closed atomic.Bool

	opt Options[K, V]
}

// New constructs a store with the provided Options. Panics if Capacity <= 0;
// a cache without a bound defeats the purpose of having one.
func New[K comparable, V any](opt Options[K, V]) Cache[K, V] {
	if opt.Capacity <= 0 {
		panic("cache: Capacity must be > 0")
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}

	sh := opt.Shards
	if sh <= 0 {
		sh = util.ReasonableShardCount()
	} else {
		sh = int(util.NextPow2(uint64(sh)))
	}
	// Never spread a small capacity so thin that shards round to zero slots.
	if sh > opt.Capacity {
		sh = int(util.NextPow2(uint64(opt.Capacity)))
		if sh > opt.Capacity {
			sh >>= 1
		}
		if sh < 1 {
			sh = 1
		}
	}

	// Floor-split the capacity and hand the remainder out one slot at a
	// time, so the per-shard caps sum to exactly opt.Capacity.
	cs := make([]*shard[K, V], sh)
	base, extra := opt.Capacity/sh, opt.Capacity%sh
	for i := 0; i < sh; i++ {
		perShardCap := base
		if i < extra {
			perShardCap++
		}
		cs[i] = newShard[K, V](perShardCap, opt)
	}

	return &store[K, V]{
		shards: cs,
		hash:   util.Fnv64a[K],
		opt:    opt,
	}
}

// ---- Cache[K,V] implementation ----

func (c *store[K, V]) Get(k K) (V, bool) {
	if c.closed.Load() {
		var zero V
		return zero, false
	}
	return c.getShard(k).Get(k)
}

func (c *store[K, V]) Set(k K, v V) {
	if c.closed.Load() {
		return
	}
	c.getShard(k).Set(k, v, c.deadline(c.opt.DefaultTTL))
}

func (c *store[K, V]) SetWithTTL(k K, v V, ttl time.Duration) {
	if c.closed.Load() {
		return
	}
	c.getShard(k).Set(k, v, c.deadline(ttl))
}

func (c *store[K, V]) Remove(k K) bool {
	if c.closed.Load() {
		return false
	}
	return c.getShard(k).Remove(k)
}

func (c *store[K, V]) Clear() int {
	if c.closed.Load() {
		return 0
	}
	total := 0
	for _, s := range c.shards {
		total += s.Clear()
	}
	return total
}

func (c *store[K, V]) Len() int {
	total := 0
	for _, s := range c.shards {
		total += s.Len()
	}
	return total
}

// Stats aggregates per-shard counters into one snapshot. Shards are read
// one at a time, so the snapshot is approximate under concurrent writes;
// that is fine for an observability surface.
func (c *store[K, V]) Stats() Stats {
	st := Stats{
		Capacity: c.opt.Capacity,
		TTL:      c.opt.DefaultTTL,
	}
	for _, s := range c.shards {
		size, hits, misses, evicts := s.snapshot()
		st.Size += size
		st.Hits += hits
		st.Misses += misses
		st.Evictions += evicts
	}
	if total := st.Hits + st.Misses; total > 0 {
		st.HitRate = float64(st.Hits) / float64(total)
	}
	return st
}

// Close marks the cache as closed. Future operations are ignored.
func (c *store[K, V]) Close() error {
	c.closed.Store(true)
	return nil
}

// ---- helpers ----

// getShard picks a shard by hashing the key and masking with len-1.
// len(c.shards) is guaranteed to be a power of two.
func (c *store[K, V]) getShard(k K) *shard[K, V] {
	h := c.hash(k)
	return c.shards[int(h)&(len(c.shards)-1)]
}

// deadline converts a relative TTL into an absolute UnixNano deadline.
// A non-positive ttl returns 0 (no expiration).
func (c *store[K, V]) deadline(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	now := time.Now().UnixNano()
	if c.opt.Clock != nil {
		now = c.opt.Clock.NowUnixNano()
	}
	return now + int64(ttl)
}
