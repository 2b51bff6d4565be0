package client

import (
	"context"

	"github.com/bondmaster/bondcache/bond"
)

// Resolve returns one field of a bond's reference data. The shorthand
// aliases accepted by CanonicalField (coupon, maturity, type, ...) are
// resolved before projection.
//
// Resolve never blocks beyond a single bounded backend call: when the
// backend is still searching, it returns a KindLookupInProgress error
// immediately and a later invocation observes the progressed state.
func (c *Client) Resolve(ctx context.Context, isin, field string) (any, error) {
	canon, err := checkField(field)
	if err != nil {
		return nil, err
	}
	rec, err := c.record(ctx, isin)
	if err != nil {
		return nil, err
	}
	return projectField(rec, canon), nil
}

// ResolveBlocking is Resolve for callers that can wait out an in-flight
// polling cycle (CLI, batch jobs).
func (c *Client) ResolveBlocking(ctx context.Context, isin, field string) (any, error) {
	canon, err := checkField(field)
	if err != nil {
		return nil, err
	}
	rec, err := c.recordBlocking(ctx, isin)
	if err != nil {
		return nil, err
	}
	return projectField(rec, canon), nil
}

// infoColumns is the ordered projection used by Info, mirroring the
// columns the original worksheet function spilled.
var infoColumns = []struct {
	field  string
	header string
}{
	{"isin", "ISIN"},
	{"name", "Name"},
	{"country", "Country"},
	{"issuer", "Issuer"},
	{"security_type", "Type"},
	{"currency", "Currency"},
	{"coupon_rate", "Coupon %"},
	{"coupon_frequency", "Frequency"},
	{"maturity_date", "Maturity"},
	{"issue_date", "Issue Date"},
	{"outstanding_amount", "Outstanding"},
}

// Info returns the full record as ordered rows: an optional header row
// followed by one row of values.
func (c *Client) Info(ctx context.Context, isin string, withHeaders bool) ([][]any, error) {
	rec, err := c.record(ctx, isin)
	if err != nil {
		return nil, err
	}

	values := make([]any, len(infoColumns))
	for i, col := range infoColumns {
		values[i] = projectField(rec, col.field)
	}

	if !withHeaders {
		return [][]any{values}, nil
	}
	headers := make([]any, len(infoColumns))
	for i, col := range infoColumns {
		headers[i] = col.header
	}
	return [][]any{headers, values}, nil
}

// checkField normalizes the selector client-side; unknown selectors never
// reach the cache or the network.
func checkField(field string) (string, error) {
	if field == "" {
		return "", errValidation("field required")
	}
	canon, ok := bond.CanonicalField(field)
	if !ok {
		return "", errFieldNotFound(field)
	}
	return canon, nil
}

// projectField extracts one canonical field from a record. Missing or null
// values project as the empty string. Values pass through untouched; the
// backend serves display-ready scalars (coupon_rate already in percent).
func projectField(rec bond.Record, field string) any {
	v, ok := rec[field]
	if !ok || v == nil {
		return ""
	}
	return v
}
