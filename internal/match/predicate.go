// Package match implements tolerance-aware value comparison and
// field-weighted confidence scoring between mapped rows.
package match

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/arunsoman/match-magic/internal/coerce"
	"github.com/arunsoman/match-magic/internal/model"
)

const (
	minuteMillis = 60_000
	hourMillis   = 3_600_000
	dayMillis    = 86_400_000
)

// ToleranceMillis converts a time-unit tolerance to milliseconds. Zero for
// non-time units.
func ToleranceMillis(tolerance float64, unit model.ToleranceUnit) float64 {
	switch unit {
	case model.UnitMinutes:
		return tolerance * minuteMillis
	case model.UnitHours:
		return tolerance * hourMillis
	case model.UnitDays:
		return tolerance * dayMillis
	}
	return 0
}

// ValuesMatch compares two cell values under the batch tolerance. Strict
// equality short-circuits; dates compare in unit-converted milliseconds;
// numbers compare absolutely or by percentage; everything else falls back to
// trimmed lower-case string equality.
func ValuesMatch(a, b model.Scalar, tolerance float64, unit model.ToleranceUnit) bool {
	if a.Equal(b) {
		return true
	}

	if a.Kind == model.KindDate && b.Kind == model.KindDate {
		if unit == model.UnitMinutes || unit == model.UnitHours || unit == model.UnitDays {
			return math.Abs(float64(a.Date-b.Date)) <= ToleranceMillis(tolerance, unit)
		}
		return a.Date == b.Date
	}

	if a.Kind == model.KindNumber && b.Kind == model.KindNumber {
		switch unit {
		case model.UnitAmount:
			return amountWithin(a.Num, b.Num, tolerance)
		case model.UnitPercentage:
			// Percentage against zero admits only exact zero.
			return math.Abs(a.Num-b.Num) <= math.Abs(a.Num)*tolerance/100
		default:
			return a.Num == b.Num
		}
	}

	return normalized(a) == normalized(b)
}

// amountWithin applies the half-interval window: each value spans
// [v-tolerance, v+tolerance] and two amounts match when the windows overlap.
// Decimal arithmetic keeps cent-level comparisons exact.
func amountWithin(a, b, tolerance float64) bool {
	diff := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Abs()
	window := decimal.NewFromFloat(tolerance).Mul(decimal.NewFromInt(2))
	return diff.LessThanOrEqual(window)
}

func normalized(v model.Scalar) string {
	return strings.ToLower(strings.TrimSpace(coerce.ToString(v)))
}

// Weight returns the heuristic importance of a mapped column, keyed on the
// target column name: identifiers and amounts weigh 3, dates and
// descriptions 2, everything else 1.
func Weight(column string) float64 {
	c := strings.ToLower(column)
	switch {
	case strings.Contains(c, "id"), strings.Contains(c, "reference"):
		return 3
	case strings.Contains(c, "amount"), strings.Contains(c, "value"):
		return 3
	case strings.Contains(c, "date"):
		return 2
	case strings.Contains(c, "description"), strings.Contains(c, "details"):
		return 2
	default:
		return 1
	}
}
