package client

import "github.com/bondmaster/bondcache/lookup"

// classify maps a coordinator result into the caller-visible outcome.
// Pure: no side effects, no I/O; the whole error taxonomy for lookup
// results is decided here and nowhere else.
//
//	Resolved(record)   → (entry, nil)
//	Resolved(absent)   → NotFound
//	Exhausted          → NotFound-equivalent with a distinct message
//	Pending            → LookupInProgress
//	transport failure  → BackendUnavailable
func classify(key string, r lookup.Result) (lookup.Entry, error) {
	if r.Err != nil {
		return lookup.Entry{}, errUnavailable(r.Err)
	}
	if r.Pending {
		return lookup.Entry{}, errInProgress(key)
	}
	return classifyEntry(key, r.Entry)
}

// classifyEntry maps a cached terminal entry the same way, for the hit path.
func classifyEntry(key string, e lookup.Entry) (lookup.Entry, error) {
	switch e.Status {
	case lookup.StatusFound:
		return e, nil
	case lookup.StatusExhausted:
		return lookup.Entry{}, errNotFound("lookup gave up after repeated retries: %s", key)
	default: // lookup.StatusNotFound
		return lookup.Entry{}, errNotFound("bond not found: %s", key)
	}
}
