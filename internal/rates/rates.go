// Package rates supplies currency exchange rates to the transformation
// engine. Rates are injected at construction and treated as immutable for the
// duration of a batch.
package rates

import "strings"

// Provider resolves an exchange rate between two currency codes.
// Same-currency pairs always resolve to 1.
type Provider interface {
	Rate(from, to string) (float64, bool)
}

// Table is a static rate table keyed by upper-case currency pair. Missing
// direct pairs fall back to the inverse rate.
type Table map[string]float64

// Key builds the canonical pair key.
func Key(from, to string) string {
	return strings.ToUpper(strings.TrimSpace(from)) + "/" + strings.ToUpper(strings.TrimSpace(to))
}

// Rate implements Provider.
func (t Table) Rate(from, to string) (float64, bool) {
	if strings.EqualFold(strings.TrimSpace(from), strings.TrimSpace(to)) {
		return 1, true
	}
	if r, ok := t[Key(from, to)]; ok && r > 0 {
		return r, true
	}
	if r, ok := t[Key(to, from)]; ok && r > 0 {
		return 1 / r, true
	}
	return 0, false
}

// Func adapts a plain function to Provider.
type Func func(from, to string) (float64, bool)

// Rate implements Provider.
func (f Func) Rate(from, to string) (float64, bool) { return f(from, to) }
