// Package model defines the value, row, mapping, and result records shared by
// the preprocessing and reconciliation engines.
package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// Kind discriminates the Scalar union.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindDate
)

// String returns the kind name used in logs and error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	default:
		return "unknown"
	}
}

// Scalar is a single cell value. Dates are canonical epoch milliseconds.
type Scalar struct {
	Kind Kind
	Bool bool
	Num  float64
	Str  string
	Date int64
}

// Null returns the null scalar.
func Null() Scalar { return Scalar{Kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Scalar { return Scalar{Kind: KindBool, Bool: b} }

// Number wraps a float64.
func Number(f float64) Scalar { return Scalar{Kind: KindNumber, Num: f} }

// String wraps a string.
func String(s string) Scalar { return Scalar{Kind: KindString, Str: s} }

// Date wraps an epoch-millisecond instant.
func Date(ms int64) Scalar { return Scalar{Kind: KindDate, Date: ms} }

// DateTime wraps a time.Time, truncating to millisecond precision.
func DateTime(t time.Time) Scalar { return Scalar{Kind: KindDate, Date: t.UnixMilli()} }

// FromAny converts a dynamically typed value (JSON decode output, spreadsheet
// cells) into a Scalar. Unrecognized types stringify via fmt-free fallbacks.
func FromAny(v any) Scalar {
	switch x := v.(type) {
	case nil:
		return Null()
	case Scalar:
		return x
	case bool:
		return Bool(x)
	case float64:
		return Number(x)
	case float32:
		return Number(float64(x))
	case int:
		return Number(float64(x))
	case int32:
		return Number(float64(x))
	case int64:
		return Number(float64(x))
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return String(x.String())
		}
		return Number(f)
	case string:
		return String(x)
	case time.Time:
		return DateTime(x)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return Null()
		}
		return String(string(b))
	}
}

// IsNull reports whether the scalar is the null value.
func (s Scalar) IsNull() bool { return s.Kind == KindNull }

// IsMissing reports whether the scalar is null or an empty string.
func (s Scalar) IsMissing() bool {
	return s.Kind == KindNull || (s.Kind == KindString && s.Str == "")
}

// Time converts a date scalar to time.Time in UTC. Zero time for non-dates.
func (s Scalar) Time() time.Time {
	if s.Kind != KindDate {
		return time.Time{}
	}
	return time.UnixMilli(s.Date).UTC()
}

// Equal reports strict equality: same kind, same payload. NaN never equals.
func (s Scalar) Equal(o Scalar) bool {
	if s.Kind != o.Kind {
		return false
	}
	switch s.Kind {
	case KindNull:
		return true
	case KindBool:
		return s.Bool == o.Bool
	case KindNumber:
		return s.Num == o.Num
	case KindString:
		return s.Str == o.Str
	case KindDate:
		return s.Date == o.Date
	}
	return false
}

// Any unwraps the scalar into its natural Go value.
func (s Scalar) Any() any {
	switch s.Kind {
	case KindBool:
		return s.Bool
	case KindNumber:
		return s.Num
	case KindString:
		return s.Str
	case KindDate:
		return s.Date
	default:
		return nil
	}
}

// MarshalJSON encodes the scalar as its natural JSON value. Dates encode as
// epoch milliseconds.
func (s Scalar) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(s.Bool)
	case KindNumber:
		if math.IsNaN(s.Num) || math.IsInf(s.Num, 0) {
			return nil, eris.Errorf("model: non-finite number %v not representable", s.Num)
		}
		return json.Marshal(s.Num)
	case KindString:
		return json.Marshal(s.Str)
	case KindDate:
		return []byte(strconv.FormatInt(s.Date, 10)), nil
	}
	return nil, eris.Errorf("model: unknown scalar kind %d", s.Kind)
}

// UnmarshalJSON decodes a JSON value into a Scalar. Numbers decode as
// KindNumber; epoch-date recovery is left to coercion.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return eris.Wrap(err, "model: decode scalar")
	}
	*s = FromAny(v)
	return nil
}
