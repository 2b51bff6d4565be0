package cache

import "time"

// Clock provides time in UnixNano; useful for deterministic TTL tests.
type Clock interface{ NowUnixNano() int64 }

// Options configures the store. Zero values are safe; defaults are applied
// in New():
//   - Shards <= 0  => auto (2×GOMAXPROCS rounded up to a power of two)
//   - nil Metrics  => NoopMetrics
//   - DefaultTTL 0 => entries written via Set never expire
type Options[K comparable, V any] struct {
	// Capacity is the entry count limit across all shards. Must be > 0.
	Capacity int

	// Shards is the number of shards. Non-positive selects an automatic
	// power-of-two value.
	Shards int

	// DefaultTTL applies to Set when no per-entry TTL is given (0 = none).
	DefaultTTL time.Duration

	// OnEvict is called for every eviction under the shard lock;
	// keep callbacks lightweight.
	OnEvict func(k K, v V, reason EvictReason)

	// Metrics receives Hit/Miss/Evict/Size signals. Nil => NoopMetrics.
	Metrics Metrics

	// Clock overrides the time source (tests). Nil => time.Now().
	Clock Clock
}
