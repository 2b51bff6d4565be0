package client

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bondmaster/bondcache/bond"
)

// YearsToMaturity returns the time from asOf to the bond's maturity date,
// in years rounded to two decimals. A zero asOf means now. Matured bonds
// yield a negative number rather than an error.
func (c *Client) YearsToMaturity(ctx context.Context, isin string, asOf time.Time) (float64, error) {
	rec, err := c.record(ctx, isin)
	if err != nil {
		return 0, err
	}
	raw, _ := rec["maturity_date"].(string)
	if raw == "" {
		return 0, errFieldNotFound("maturity_date")
	}
	maturity, perr := time.Parse("2006-01-02", raw)
	if perr != nil {
		return 0, errUnavailable(fmt.Errorf("bad maturity_date %q for %s: %w", raw, isin, perr))
	}
	if asOf.IsZero() {
		asOf = time.Now()
	}
	years := maturity.Sub(asOf).Hours() / 24 / 365.25
	return math.Round(years*100) / 100, nil
}

// CouponFrequency renders the bond's coupon schedule as a human label.
func (c *Client) CouponFrequency(ctx context.Context, isin string) (string, error) {
	rec, err := c.record(ctx, isin)
	if err != nil {
		return "", err
	}
	// Zero-coupon issues are recognized by the rate, not the schedule:
	// backends report frequency 1 for some zero-coupon bills.
	if rate, ok := numericField(rec, "coupon_rate"); ok && rate == 0 {
		return "Zero coupon", nil
	}
	n, ok := numericField(rec, "coupon_frequency")
	if !ok {
		return "", errFieldNotFound("coupon_frequency")
	}
	switch int(n) {
	case 0:
		return "Zero coupon", nil
	case 1:
		return "Annual", nil
	case 2:
		return "Semi-annual", nil
	case 4:
		return "Quarterly", nil
	case 12:
		return "Monthly", nil
	default:
		return fmt.Sprintf("%dx per year", int(n)), nil
	}
}

// IsIndexLinked reports whether the bond's principal tracks an inflation
// index (a linker) rather than paying a fixed nominal.
func (c *Client) IsIndexLinked(ctx context.Context, isin string) (bool, error) {
	rec, err := c.record(ctx, isin)
	if err != nil {
		return false, err
	}
	st, _ := rec["security_type"].(string)
	return strings.EqualFold(st, "INDEX_LINKED"), nil
}

// ValidISIN reports whether the string is a well-formed ISIN with an
// issuer prefix this service covers. Purely local: no cache or network.
func ValidISIN(isin string) bool {
	key := bond.NormalizeISIN(isin)
	return bond.ValidISIN(key) && bond.KnownPrefix(key)
}

func numericField(rec bond.Record, field string) (float64, bool) {
	switch v := rec[field].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
