package cache

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictLRU — removed as the least-recently-used entry to make room.
	EvictLRU EvictReason = iota
	// EvictTTL — expired by TTL (lazy eviction on access).
	EvictTTL
	// EvictClear — removed by an explicit Clear.
	EvictClear
)

// Metrics exposes cache-level observability hooks.
// NoopMetrics is used when Options.Metrics is nil.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int)
}

// NoopMetrics is a drop-in Metrics implementation that does nothing.
// Safe for concurrent use.
type NoopMetrics struct{}

func (NoopMetrics) Hit()              {}
func (NoopMetrics) Miss()             {}
func (NoopMetrics) Evict(EvictReason) {}
func (NoopMetrics) Size(int)          {}

var _ Metrics = NoopMetrics{}
