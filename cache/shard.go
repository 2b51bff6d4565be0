package cache

import (
	"sync"
	"time"

	"github.com/bondmaster/bondcache/internal/util"
)

// shard is an independent partition of the store with its own lock, map,
// and an intrusive doubly linked list (head=MRU, tail=LRU).
type shard[K comparable, V any] struct {
	// ---- guarded by mu ----
	mu   sync.Mutex
	m    map[K]*node[K, V]
	head *node[K, V] // MRU
	tail *node[K, V] // LRU
	len  int
	cap  int // per-shard entry capacity

	opt Options[K, V]

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	_      util.CacheLinePad
	hits   util.PaddedAtomicInt64
	misses util.PaddedAtomicInt64
	evicts util.PaddedAtomicUint64
}

func newShard[K comparable, V any](capacity int, opt Options[K, V]) *shard[K, V] {
	return &shard[K, V]{
		m:   make(map[K]*node[K, V], capacity),
		cap: capacity,
		opt: opt,
	}
}

// Set inserts or updates an entry and promotes it to MRU.
// exp is an absolute UnixNano deadline (0 = no TTL).
func (s *shard[K, V]) Set(k K, v V, exp int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.m[k]; ok {
		n.val = v
		n.exp = exp
		s.moveToFront(n)
		s.opt.Metrics.Size(s.len)
		return
	}

	n := &node[K, V]{key: k, val: v, exp: exp}
	s.m[k] = n
	s.insertFront(n)

	for s.len > s.cap {
		tail := s.tail
		if tail == nil {
			break
		}
		// Prefer reclaiming an already-expired victim's slot silently as
		// part of the same pass: expiry takes precedence over recency.
		reason := EvictLRU
		if s.expiredLocked(tail) {
			reason = EvictTTL
		}
		s.evictNode(tail, reason)
	}
	s.opt.Metrics.Size(s.len)
}

// Get returns the value and promotes the entry to MRU.
// An expired entry is evicted and reported as a miss.
func (s *shard[K, V]) Get(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.m[k]
	if !ok {
		s.misses.Add(1)
		s.opt.Metrics.Miss()
		var zero V
		return zero, false
	}
	if s.expiredLocked(n) {
		s.evictNode(n, EvictTTL)
		s.misses.Add(1)
		s.opt.Metrics.Miss()
		var zero V
		return zero, false
	}

	s.moveToFront(n)
	s.hits.Add(1)
	s.opt.Metrics.Hit()
	return n.val, true
}

// Remove deletes an entry by key. Returns true if the entry existed.
// Explicit removal is not counted as an eviction.
func (s *shard[K, V]) Remove(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.m[k]
	if !ok {
		return false
	}
	s.removeNode(n)
	delete(s.m, k)
	s.opt.Metrics.Size(s.len)
	return true
}

// Clear drops every entry and resets hit/miss accounting, mirroring the
// caller-facing "cache cleared" semantics. Returns the number dropped.
func (s *shard[K, V]) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := s.len
	if cb := s.opt.OnEvict; cb != nil {
		for n := s.head; n != nil; n = n.next {
			cb(n.key, n.val, EvictClear)
		}
	}
	s.m = make(map[K]*node[K, V], s.cap)
	s.head, s.tail = nil, nil
	s.len = 0
	s.hits.Store(0)
	s.misses.Store(0)
	s.opt.Metrics.Size(0)
	return dropped
}

// Len returns the number of resident entries in this shard.
func (s *shard[K, V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.len
}

// snapshot reads the occupancy and counters without long lock holds.
func (s *shard[K, V]) snapshot() (size int, hits, misses int64, evicts uint64) {
	s.mu.Lock()
	size = s.len
	s.mu.Unlock()
	return size, s.hits.Load(), s.misses.Load(), s.evicts.Load()
}

// -------------------- internals (mu held) --------------------

func (s *shard[K, V]) expiredLocked(n *node[K, V]) bool {
	if n.exp == 0 {
		return false
	}
	return s.now() > n.exp
}

func (s *shard[K, V]) now() int64 {
	if s.opt.Clock != nil {
		return s.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

// insertFront inserts n at MRU in O(1).
func (s *shard[K, V]) insertFront(n *node[K, V]) {
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
	s.len++
}

// moveToFront promotes n to MRU in O(1).
func (s *shard[K, V]) moveToFront(n *node[K, V]) {
	if n == s.head {
		return
	}
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if s.tail == n {
		s.tail = n.prev
	}
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
}

// removeNode detaches n from the list and updates counters in O(1).
func (s *shard[K, V]) removeNode(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if s.head == n {
		s.head = n.next
	}
	if s.tail == n {
		s.tail = n.prev
	}
	n.prev, n.next = nil, nil
	s.len--
}

// evictNode removes the node, updates metrics, and calls OnEvict.
func (s *shard[K, V]) evictNode(n *node[K, V], reason EvictReason) {
	s.removeNode(n)
	delete(s.m, n.key)
	s.evicts.Add(1)
	s.opt.Metrics.Evict(reason)
	if cb := s.opt.OnEvict; cb != nil {
		// Called under the shard lock; callbacks must not re-enter the cache.
		cb(n.key, n.val, reason)
	}
}
