// Package coerce converts cell values into canonical scalar forms. All
// conversions are idempotent: coercing an already-canonical value returns it
// unchanged.
package coerce

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/arunsoman/match-magic/internal/model"
)

// ErrBadDate marks a value that cannot be interpreted as a date.
var ErrBadDate = eris.New("coerce: bad date")

// numberStrip removes currency symbols, separators, percent signs and
// whitespace before numeric parsing.
var numberStrip = strings.NewReplacer(
	",", "", "$", "", "€", "", "£", "", "¥", "", "₹", "", "%", "",
	" ", "", "\t", "",
)

// ToNumber converts a scalar to float64. Null and empty become 0, booleans
// 0/1, unparseable strings 0. The result is always finite.
func ToNumber(s model.Scalar) float64 {
	switch s.Kind {
	case model.KindNull:
		return 0
	case model.KindBool:
		if s.Bool {
			return 1
		}
		return 0
	case model.KindNumber:
		if math.IsNaN(s.Num) || math.IsInf(s.Num, 0) {
			return 0
		}
		return s.Num
	case model.KindDate:
		return float64(s.Date)
	case model.KindString:
		n, ok := ParseNumber(s.Str)
		if !ok {
			return 0
		}
		return n
	}
	return 0
}

// ParseNumber parses a numeric string after stripping currency symbols,
// thousands separators, percent signs and whitespace.
func ParseNumber(str string) (float64, bool) {
	cleaned := numberStrip.Replace(strings.TrimSpace(str))
	if cleaned == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// ToString converts a scalar to its natural textual form. Null becomes the
// empty string; dates format as ISO-8601 by default.
func ToString(s model.Scalar) string {
	switch s.Kind {
	case model.KindNull:
		return ""
	case model.KindBool:
		return strconv.FormatBool(s.Bool)
	case model.KindNumber:
		return FormatNumber(s.Num)
	case model.KindString:
		return s.Str
	case model.KindDate:
		return FormatDate(s.Date, "")
	}
	return ""
}

// FormatNumber renders a float without trailing zeros.
func FormatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ToDate converts a scalar to canonical epoch milliseconds. Numbers are taken
// as epoch-ms, strings parse through the supported patterns, dates pass
// through unchanged.
func ToDate(s model.Scalar) (int64, error) {
	switch s.Kind {
	case model.KindDate:
		return s.Date, nil
	case model.KindNumber:
		if math.IsNaN(s.Num) || math.IsInf(s.Num, 0) {
			return 0, eris.Wrap(ErrBadDate, "non-finite epoch")
		}
		return int64(s.Num), nil
	case model.KindString:
		ms, ok := ParseDate(s.Str)
		if !ok {
			return 0, eris.Wrapf(ErrBadDate, "unparseable %q", s.Str)
		}
		return ms, nil
	}
	return 0, eris.Wrapf(ErrBadDate, "cannot interpret %s as date", s.Kind)
}
