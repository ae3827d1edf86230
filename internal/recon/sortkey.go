package recon

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/arunsoman/match-magic/internal/coerce"
	"github.com/arunsoman/match-magic/internal/match"
	"github.com/arunsoman/match-magic/internal/model"
)

var nonNumericChars = regexp.MustCompile(`[^0-9.\-]`)

// sortValue is a row's projected sort key: either numeric (numbers, epochs)
// or textual. Null sorts lowest.
type sortValue struct {
	null    bool
	numeric bool
	num     float64
	str     string
}

// projectSortKey computes the sort value of enriched[key] per the projection
// rules: date-like strings become epoch milliseconds, numeric strings parse
// after stripping non-numeric characters, dates and numbers pass through,
// anything else compares as raw text.
func projectSortKey(row model.Row, key string) sortValue {
	v, ok := row.Get(key)
	if !ok || v.IsNull() {
		return sortValue{null: true}
	}
	switch v.Kind {
	case model.KindNumber:
		return sortValue{numeric: true, num: v.Num}
	case model.KindDate:
		return sortValue{numeric: true, num: float64(v.Date)}
	case model.KindBool:
		if v.Bool {
			return sortValue{numeric: true, num: 1}
		}
		return sortValue{numeric: true, num: 0}
	case model.KindString:
		s := strings.TrimSpace(v.Str)
		if s == "" {
			return sortValue{null: true}
		}
		if coerce.LooksLikeDate(s) {
			if ms, ok := coerce.ParseDate(s); ok {
				return sortValue{numeric: true, num: float64(ms)}
			}
		}
		stripped := nonNumericChars.ReplaceAllString(s, "")
		if stripped != "" && stripped != "-" && stripped != "." {
			if n, ok := coerce.ParseNumber(stripped); ok {
				return sortValue{numeric: true, num: n}
			}
		}
		return sortValue{str: s}
	}
	return sortValue{null: true}
}

// compareKeys orders two sort values and applies the tolerance window:
// 0 means "within tolerance", otherwise the sign of a-b. Null sorts lowest
// and matches nothing except another null under the exact unit.
func compareKeys(a, b sortValue, tolerance float64, unit model.ToleranceUnit) int {
	if a.null || b.null {
		switch {
		case a.null && b.null:
			if unit == model.UnitExact {
				return 0
			}
			return -1
		case a.null:
			return -1
		default:
			return 1
		}
	}

	if a.numeric && b.numeric {
		if withinKeyTolerance(a.num, b.num, tolerance, unit) {
			return 0
		}
		if a.num < b.num {
			return -1
		}
		return 1
	}

	// Mixed or textual keys reduce to lexicographic total order.
	return strings.Compare(keyText(a), keyText(b))
}

func withinKeyTolerance(a, b, tolerance float64, unit model.ToleranceUnit) bool {
	switch unit {
	case model.UnitExact:
		return a == b
	case model.UnitMinutes, model.UnitHours, model.UnitDays:
		diff := a - b
		if diff < 0 {
			diff = -diff
		}
		return diff <= match.ToleranceMillis(tolerance, unit)
	case model.UnitAmount:
		diff := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Abs()
		return diff.LessThanOrEqual(decimal.NewFromFloat(tolerance).Mul(decimal.NewFromInt(2)))
	case model.UnitPercentage:
		diff := a - b
		if diff < 0 {
			diff = -diff
		}
		base := a
		if base < 0 {
			base = -base
		}
		return diff <= base*tolerance/100
	}
	return a == b
}

// SortRows stably sorts rows in place by the projected sort key under a
// strict total order (no tolerance): nulls first, then numerics, then text.
func SortRows(rows []model.Row, key string) {
	keys := make([]sortValue, len(rows))
	for i, r := range rows {
		keys[i] = projectSortKey(r, key)
	}
	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return totalLess(keys[idx[a]], keys[idx[b]])
	})
	out := make([]model.Row, len(rows))
	for i, j := range idx {
		out[i] = rows[j]
	}
	copy(rows, out)
}

func totalLess(a, b sortValue) bool {
	switch {
	case a.null:
		return !b.null
	case b.null:
		return false
	case a.numeric && b.numeric:
		return a.num < b.num
	case a.numeric != b.numeric:
		return a.numeric // numerics order before text
	default:
		return a.str < b.str
	}
}

func keyText(v sortValue) string {
	if v.numeric {
		return coerce.FormatNumber(v.num)
	}
	return v.str
}
