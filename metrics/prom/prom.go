// Package prom exports cache and lookup instrumentation as Prometheus
// metrics. Import only when Prometheus is wanted; the core packages carry
// no Prometheus dependency themselves.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bondmaster/bondcache/cache"
	"github.com/bondmaster/bondcache/lookup"
)

// CacheAdapter implements cache.Metrics and exports Prometheus
// counters/gauges. Safe for concurrent use; all Prometheus metric types
// are goroutine-safe.
type CacheAdapter struct {
	hits    prometheus.Counter
	misses  prometheus.Counter
	evicts  *prometheus.CounterVec
	sizeEnt prometheus.Gauge
}

// NewCache constructs a Prometheus adapter for the lookup cache.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func NewCache(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *CacheAdapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &CacheAdapter{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "hits_total",
			Help:        "Cache hits",
			ConstLabels: constLabels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "misses_total",
			Help:        "Cache misses",
			ConstLabels: constLabels,
		}),
		evicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "evictions_total",
				Help:        "Cache evictions by reason",
				ConstLabels: constLabels,
			},
			[]string{"reason"},
		),
		sizeEnt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "size_entries",
			Help:        "Number of resident entries",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.evicts, a.sizeEnt)
	return a
}

// Hit increments the hit counter.
func (a *CacheAdapter) Hit() { a.hits.Inc() }

// Miss increments the miss counter.
func (a *CacheAdapter) Miss() { a.misses.Inc() }

// Evict increments the eviction counter with a reason label.
func (a *CacheAdapter) Evict(r cache.EvictReason) {
	a.evicts.WithLabelValues(reason(r)).Inc()
}

// Size updates the resident-entries gauge.
func (a *CacheAdapter) Size(entries int) {
	a.sizeEnt.Set(float64(entries))
}

// reason maps EvictReason to a stable label value.
func reason(r cache.EvictReason) string {
	switch r {
	case cache.EvictTTL:
		return "ttl"
	case cache.EvictClear:
		return "clear"
	default:
		return "lru"
	}
}

// LookupAdapter implements lookup.Metrics: backend poll volume, terminal
// outcomes by label, and the in-flight gauge.
type LookupAdapter struct {
	polls    prometheus.Counter
	outcomes *prometheus.CounterVec
	inflight prometheus.Gauge
}

// NewLookup constructs a Prometheus adapter for the lookup coordinator.
func NewLookup(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *LookupAdapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &LookupAdapter{
		polls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "polls_total",
			Help:        "Backend resolve calls, initial and polling",
			ConstLabels: constLabels,
		}),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "outcomes_total",
				Help:        "Terminal lookup outcomes by kind",
				ConstLabels: constLabels,
			},
			[]string{"outcome"},
		),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "inflight_lookups",
			Help:        "Resolution cycles currently in flight",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.polls, a.outcomes, a.inflight)
	return a
}

// Poll counts one backend resolve call.
func (a *LookupAdapter) Poll() { a.polls.Inc() }

// Outcome counts one terminal outcome (found, not_found, exhausted, ...).
func (a *LookupAdapter) Outcome(label string) {
	a.outcomes.WithLabelValues(label).Inc()
}

// Inflight sets the in-flight cycle gauge.
func (a *LookupAdapter) Inflight(n int) {
	a.inflight.Set(float64(n))
}

// Compile-time interface checks.
var (
	_ cache.Metrics  = (*CacheAdapter)(nil)
	_ lookup.Metrics = (*LookupAdapter)(nil)
)
