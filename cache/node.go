package cache

// node is an intrusive doubly linked list element owned by a shard.
// It stores the key/value alongside list links and the TTL deadline.
type node[K comparable, V any] struct {
	key K
	val V

	// Intrusive list links: head is MRU, tail is LRU.
	prev *node[K, V]
	next *node[K, V]

	// Absolute expiration deadline in UnixNano. Zero means no TTL.
	exp int64
}
