package backend

import (
	"time"

	"github.com/bondmaster/bondcache/bond"
)

// Kind discriminates the outcomes a resolve call can produce. Every HTTP
// status and transport error is folded into this vocabulary before any
// other component sees it.
type Kind int

const (
	// Found — the backend returned the record (HTTP 200).
	Found Kind = iota
	// InProgress — the backend queued or is still running the lookup
	// (HTTP 202); the caller should poll again later.
	InProgress
	// NotFound — the backend definitively reports absence (HTTP 404).
	NotFound
	// TransportFailure — the call itself failed: timeout, connection
	// error, or an unexpected status. Never cached as a negative result.
	TransportFailure
)

func (k Kind) String() string {
	switch k {
	case Found:
		return "found"
	case InProgress:
		return "in_progress"
	case NotFound:
		return "not_found"
	case TransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// Response is the normalized result of one backend call.
type Response struct {
	Kind Kind

	// Record is set when Kind == Found.
	Record bond.Record

	// RetryAfter is the backend's next-poll hint for InProgress responses.
	// Zero means no hint was given.
	RetryAfter time.Duration

	// Err carries the underlying cause when Kind == TransportFailure.
	Err error
}
