// Package cache provides the bounded, TTL-expiring store that fronts the
// bond-data backend: a generic, sharded in-memory map with LRU eviction,
// per-entry TTL, hit/miss/eviction accounting, and lightweight metrics hooks.
//
// Design
//
//   - Concurrency: the store is split into shards, each protected by its own
//     mutex. The default shard count is a power of two derived from
//     GOMAXPROCS, which keeps lock contention low when many spreadsheet
//     recalculation threads hit the cache at once.
//
//   - Storage: each shard keeps a map[K]*node for lookups and an intrusive
//     MRU↔LRU doubly linked list for recency ordering. All operations are
//     O(1) expected.
//
//   - Eviction: least-recently-used per shard — the victim is the coldest
//     entry of the full shard, not of the whole store. Bond reference data
//     has a skewed, read-heavy access pattern (the same gilts referenced by
//     many cells), so recency is the right signal. The per-shard caps sum
//     to Capacity, which is enforced after every insert.
//
//   - TTL: entries carry absolute deadlines (UnixNano). Expiry is lazy: an
//     expired entry is evicted on the read that discovers it. SetWithTTL
//     overrides the default TTL per entry, which is how short-lived negative
//     results (not-found, exhausted-lookup sentinels) are stored next to
//     regular records.
//
//   - Accounting: per-shard padded atomic counters feed a point-in-time
//     Stats() snapshot (size, capacity, hits, misses, evictions, hit rate).
//     Counters are observability only; eviction never consults them.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size signals.
//     NoopMetrics is the default; metrics/prom exports to Prometheus.
//
// The store holds only terminal lookup results. In-flight ("still
// searching") state belongs to the lookup coordinator, which writes here
// once per key when a lookup resolves. See the lookup package.
package cache
