// Package lookup converts cache misses into at most one backend
// interaction per key at a time, and drives multi-step resolution when the
// backend answers "still searching".
//
// Per-key state machine:
//
//	Idle ──request──► Polling ──Found──────► Resolved(record)
//	                    │ │
//	                    │ └─NotFound───────► Resolved(absent)
//	                    │
//	                    ├─InProgress, attempts < max ──► Polling (backoff)
//	                    ├─InProgress, attempts = max ──► Exhausted
//	                    └─TransportFailure ───────────► terminal error (not cached)
//
// Callers never block through the polling sequence. Resolve returns a
// terminal entry when one is available after a single bounded backend
// call, and a pending indicator otherwise while polling continues on a
// background goroutine. A later invocation for the same key observes the
// progressed state through the cache. Wait is available for callers that
// can afford to block (tests, CLI).
package lookup

import "github.com/bondmaster/bondcache/bond"

// Status classifies a terminal lookup result as stored in the cache.
type Status int

const (
	// StatusFound — the backend returned the record.
	StatusFound Status = iota
	// StatusNotFound — the backend definitively reported absence.
	StatusNotFound
	// StatusExhausted — the attempt budget ran out while the backend was
	// still searching. Distinct from NotFound so the caller can tell
	// "does not exist" from "gave up for now".
	StatusExhausted
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not_found"
	case StatusExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Entry is the terminal value written to the cache store: either a record
// or a negative sentinel. Only terminal results ever reach the cache;
// in-flight state lives in the coordinator's pending table.
type Entry struct {
	Status Status
	Record bond.Record
}

// Result is the immediate outcome of one Resolve invocation.
type Result struct {
	// Pending is true when resolution continues in the background and no
	// terminal entry exists yet.
	Pending bool

	// Entry is valid when Pending is false and Err is nil.
	Entry Entry

	// Err is set for transport-level failures. These are surfaced, never
	// cached: a transient network issue must not poison the cache.
	Err error
}
