// Package bond holds the static reference vocabulary shared by the client:
// the canonical field table, shorthand aliases, ISIN validation, and the
// country codes the backend serves. It contains no I/O and no mutable state.
package bond

import (
	"regexp"
	"strings"
)

// Record is a resolved bond: canonical field name → scalar value,
// decoded straight from the backend's JSON payload.
type Record map[string]any

// isinPattern: 2 letters (country prefix) + 9 alphanumerics + 1 check digit.
var isinPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)

// Countries maps the country prefixes the backend serves to display names.
var Countries = map[string]string{
	"US": "United States",
	"GB": "United Kingdom",
	"DE": "Germany",
	"FR": "France",
	"IT": "Italy",
	"ES": "Spain",
	"JP": "Japan",
	"NL": "Netherlands",
}

// Fields is the canonical field table with help text. Projection accepts any
// field present in a record, but unknown selectors are rejected against this
// table before a record is even fetched.
var Fields = map[string]string{
	"isin":                 "ISIN identifier",
	"cusip":                "CUSIP (US bonds)",
	"sedol":                "SEDOL (UK bonds)",
	"name":                 "Bond name",
	"country":              "Country code (US, GB, DE...)",
	"issuer":               "Issuing entity",
	"security_type":        "NOMINAL or INDEX_LINKED",
	"currency":             "Currency code (USD, GBP, EUR...)",
	"coupon_rate":          "Coupon rate (displayed as %)",
	"coupon_frequency":     "Payments per year (1=annual, 2=semi)",
	"day_count_convention": "Day count method",
	"maturity_date":        "Maturity date",
	"issue_date":           "Issue date",
	"first_coupon_date":    "First coupon payment date",
	"outstanding_amount":   "Amount outstanding",
	"original_tenor":       "Original term (e.g., 10Y)",
}

// aliases are accepted shorthands resolved to canonical names before projection.
var aliases = map[string]string{
	"coupon":    "coupon_rate",
	"maturity":  "maturity_date",
	"issue":     "issue_date",
	"type":      "security_type",
	"freq":      "coupon_frequency",
	"frequency": "coupon_frequency",
}

// NormalizeISIN uppercases and trims an identifier. It does not validate.
func NormalizeISIN(isin string) string {
	return strings.ToUpper(strings.TrimSpace(isin))
}

// ValidISIN reports whether isin (already normalized) matches the ISIN format.
func ValidISIN(isin string) bool {
	return isinPattern.MatchString(isin)
}

// KnownPrefix reports whether the two-letter ISIN prefix is one the backend
// serves. XS and EU cover Eurobond issues that carry no national prefix.
func KnownPrefix(isin string) bool {
	if len(isin) < 2 {
		return false
	}
	p := isin[:2]
	if _, ok := Countries[p]; ok {
		return true
	}
	return p == "XS" || p == "EU"
}

// CanonicalField lowercases, trims, and resolves shorthand aliases.
// The second result is false when the selector names no known field.
func CanonicalField(field string) (string, bool) {
	f := strings.ToLower(strings.TrimSpace(field))
	if canon, ok := aliases[f]; ok {
		f = canon
	}
	_, ok := Fields[f]
	return f, ok
}
