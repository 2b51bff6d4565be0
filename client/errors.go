package client

import (
	"errors"
	"fmt"
)

// ErrorKind is the fixed taxonomy of caller-visible outcomes. Every failure
// leaving the facade carries exactly one of these; callers never see raw
// transport or protocol internals.
type ErrorKind int

const (
	// KindValidation — malformed key or unusable input. Resolved entirely
	// client-side; never reaches the cache or the network.
	KindValidation ErrorKind = iota

	// KindNotFound — the backend definitively reported absence, or the
	// polling budget was exhausted. Cached briefly to spare the backend.
	KindNotFound

	// KindLookupInProgress — non-fatal transient status: resolution
	// continues in the background and a later call will see the result.
	KindLookupInProgress

	// KindBackendUnavailable — transport-level failure (timeout,
	// connection refused, 5xx). Never cached; the next call retries.
	KindBackendUnavailable

	// KindFieldNotFound — the key resolved but the requested field or
	// shorthand is unrecognized.
	KindFieldNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindLookupInProgress:
		return "lookup_in_progress"
	case KindBackendUnavailable:
		return "backend_unavailable"
	case KindFieldNotFound:
		return "field_not_found"
	default:
		return "unknown"
	}
}

// Error is the structured error type returned by all facade operations.
// The message is short, human-readable, and safe to show in a cell.
type Error struct {
	Kind  ErrorKind
	msg   string
	cause error
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.cause }

// Is makes errors.Is(err, &Error{Kind: k}) match on kind alone.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the taxonomy kind from err. The second result is false
// for errors that did not originate in this package.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func errValidation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, msg: fmt.Sprintf(format, args...)}
}

func errNotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, msg: fmt.Sprintf(format, args...)}
}

func errFieldNotFound(field string) *Error {
	return &Error{Kind: KindFieldNotFound, msg: fmt.Sprintf("unknown field: %s", field)}
}

func errInProgress(key string) *Error {
	return &Error{Kind: KindLookupInProgress, msg: fmt.Sprintf("lookup in progress: %s", key)}
}

func errUnavailable(cause error) *Error {
	return &Error{
		Kind:  KindBackendUnavailable,
		msg:   "backend unavailable: " + shortCause(cause),
		cause: cause,
	}
}

// shortCause keeps boundary messages to one line without Go error-chain
// prefixes leaking protocol detail into a spreadsheet cell.
func shortCause(err error) string {
	if err == nil {
		return "unknown error"
	}
	s := err.Error()
	const limit = 120
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}
