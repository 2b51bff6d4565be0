package client

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bondmaster/bondcache/bond"
)

const (
	defaultListLimit = 500
	maxListLimit     = 1000
)

// searchFilters are the filter keys the backend's /list endpoint accepts.
var searchFilters = map[string]bool{
	"country":       true,
	"security_type": true,
	"currency":      true,
	"maturity_from": true,
	"maturity_to":   true,
	"min_coupon":    true,
	"max_coupon":    true,
}

// ListQuery selects bonds by country, optionally narrowed by security type.
type ListQuery struct {
	Country      string
	SecurityType string // NOMINAL or INDEX_LINKED; empty = both
	Limit        int    // 0 = default (500), capped at 1000
}

// List returns the ISINs of all bonds for a country. A passthrough to the
// backend's bulk endpoint: results are not cached (bulk listings would
// crowd real lookups out of a few-hundred-entry cache), but identical
// concurrent queries are coalesced into one backend call.
func (c *Client) List(ctx context.Context, q ListQuery) ([]string, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	country := strings.ToUpper(strings.TrimSpace(q.Country))
	if country == "" {
		return nil, errValidation("country code required (US, GB, DE, FR, IT, ES, JP, NL)")
	}
	if _, ok := bond.Countries[country]; !ok {
		return nil, errValidation("unknown country: %s", country)
	}

	params := url.Values{}
	params.Set("country", country)
	if q.SecurityType != "" {
		st := strings.ToUpper(strings.TrimSpace(q.SecurityType))
		if st != "NOMINAL" && st != "INDEX_LINKED" {
			return nil, errValidation("security_type must be NOMINAL or INDEX_LINKED")
		}
		params.Set("security_type", st)
	}
	params.Set("limit", strconv.Itoa(clampLimit(q.Limit)))

	return c.listISINs(ctx, params)
}

// Search returns ISINs matching arbitrary filter criteria. At least one
// recognized filter is required; unknown filter names fail client-side.
func (c *Client) Search(ctx context.Context, filters map[string]string) ([]string, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	params := url.Values{}
	for k, v := range filters {
		k = strings.ToLower(strings.TrimSpace(k))
		if v == "" {
			continue
		}
		if !searchFilters[k] {
			return nil, errValidation("unknown filter: %s", k)
		}
		params.Set(k, v)
	}
	if len(params) == 0 {
		return nil, errValidation("at least one filter required")
	}
	params.Set("limit", strconv.Itoa(defaultListLimit))

	return c.listISINs(ctx, params)
}

// Count returns the number of bonds the backend holds, optionally for one
// country. Backed by the backend's own stats endpoint; coalesced but not
// cached (the call is cheap and the number moves with backend refreshes).
func (c *Client) Count(ctx context.Context, country string) (int, error) {
	if c.closed.Load() {
		return 0, ErrClientClosed
	}
	stats, err := c.statsQ.Do(ctx, "stats", func() (map[string]any, error) {
		return c.be.Stats(ctx)
	})
	if err != nil {
		return 0, errUnavailable(err)
	}

	if country = strings.ToUpper(strings.TrimSpace(country)); country != "" {
		byCountry, _ := stats["by_country"].(map[string]any)
		return asInt(byCountry[country]), nil
	}
	return asInt(stats["total_bonds"]), nil
}

// Maturity pairs an ISIN with its maturity date, for range scans.
type Maturity struct {
	ISIN string
	Date string // YYYY-MM-DD
}

// MaturityRange returns bonds maturing within [from, to], optionally for
// one country. Dates use YYYY-MM-DD. Useful for reinvestment planning.
func (c *Client) MaturityRange(ctx context.Context, from, to, country string) ([]Maturity, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	for _, d := range []string{from, to} {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return nil, errValidation("bad date %q, want YYYY-MM-DD", d)
		}
	}
	params := url.Values{}
	params.Set("maturity_from", from)
	params.Set("maturity_to", to)
	params.Set("limit", strconv.Itoa(defaultListLimit))
	if country = strings.ToUpper(strings.TrimSpace(country)); country != "" {
		if _, ok := bond.Countries[country]; !ok {
			return nil, errValidation("unknown country: %s", country)
		}
		params.Set("country", country)
	}

	recs, err := c.listQ.Do(ctx, params.Encode(), func() ([]bond.Record, error) {
		return c.be.List(ctx, params)
	})
	if err != nil {
		return nil, errUnavailable(err)
	}

	out := make([]Maturity, 0, len(recs))
	for _, r := range recs {
		isin, _ := r["isin"].(string)
		date, _ := r["maturity_date"].(string)
		if isin != "" {
			out = append(out, Maturity{ISIN: isin, Date: date})
		}
	}
	return out, nil
}

// listISINs funnels every bulk query through the singleflight group keyed
// by the encoded parameters, then projects ISINs.
func (c *Client) listISINs(ctx context.Context, params url.Values) ([]string, error) {
	recs, err := c.listQ.Do(ctx, params.Encode(), func() ([]bond.Record, error) {
		return c.be.List(ctx, params)
	})
	if err != nil {
		return nil, errUnavailable(err)
	}

	isins := make([]string, 0, len(recs))
	for _, r := range recs {
		if isin, ok := r["isin"].(string); ok && isin != "" {
			isins = append(isins, isin)
		}
	}
	return isins, nil
}

func clampLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}

// asInt converts the JSON number shapes the stats endpoint produces.
func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
