package cache

import "time"

// Cache is a sharded, in-memory key/value store with TTL and LRU eviction.
// All methods are safe for concurrent use by multiple goroutines.
//
// Typical complexity is amortized O(1): a map lookup plus constant-time
// list adjustments under a shard lock. No method blocks on I/O.
type Cache[K comparable, V any] interface {
	// Get returns the value for k and a presence flag. Expired entries are
	// treated as absent and evicted on discovery. On hit, the entry is
	// promoted to most-recently-used.
	Get(k K) (V, bool)

	// Set inserts or updates k→v using the store's DefaultTTL (if any) and
	// promotes the entry. At capacity, the least-recently-used entry is
	// evicted first.
	Set(k K, v V)

	// SetWithTTL inserts or updates k→v with a per-entry TTL, overriding
	// DefaultTTL. A non-positive ttl disables expiration for this entry.
	SetWithTTL(k K, v V, ttl time.Duration)

	// Remove deletes k if present and returns true on success.
	Remove(k K) bool

	// Clear removes all entries, resets hit/miss accounting, and returns
	// the number of entries dropped.
	Clear() int

	// Len returns the total number of resident entries across all shards.
	Len() int

	// Stats returns a point-in-time snapshot of size and accounting.
	Stats() Stats

	// Close marks the cache closed; subsequent operations are ignored.
	Close() error
}
