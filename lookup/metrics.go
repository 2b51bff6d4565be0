package lookup

// Metrics exposes coordinator-level observability hooks.
// NoopMetrics is used by default.
type Metrics interface {
	// Poll is called for every backend call issued, first or retry.
	Poll()
	// Outcome is called once per resolution cycle with the terminal
	// outcome label: found, not_found, exhausted, or transport_failure.
	Outcome(label string)
	// Inflight reports the current size of the pending-lookup table.
	Inflight(n int)
}

// NoopMetrics is a drop-in Metrics implementation that does nothing.
type NoopMetrics struct{}

func (NoopMetrics) Poll()           {}
func (NoopMetrics) Outcome(string)  {}
func (NoopMetrics) Inflight(int)    {}

var _ Metrics = NoopMetrics{}
