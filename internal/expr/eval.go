package expr

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/arunsoman/match-magic/internal/coerce"
	"github.com/arunsoman/match-magic/internal/model"
)

const dayMillis = 86_400_000

// Lookup resolves a field reference during evaluation. Physical references
// read the row; virtual references read previously planned fields.
type Lookup func(ref model.FieldRef) (model.Scalar, error)

// RowLookup builds a Lookup over an enriched row. Virtual fields that were
// planned earlier are already present as named columns, so both reference
// kinds resolve the same way.
func RowLookup(row model.Row) Lookup {
	return func(ref model.FieldRef) (model.Scalar, error) {
		v, ok := row.Get(ref.Name)
		if !ok {
			return model.Scalar{}, eris.Wrapf(ErrMissingField, "%s", ref.Name)
		}
		return v, nil
	}
}

// Evaluate folds a virtual-field formula left to right: the accumulator
// starts at the first field value and each operation pairs with the next
// field. Unary operations consume only the accumulator and ignore their
// pairing slot.
func Evaluate(vf model.VirtualField, lookup Lookup) (model.Scalar, error) {
	if len(vf.Fields) == 0 {
		return model.Scalar{}, eris.Wrapf(ErrMissingField, "virtual field %s has no fields", vf.Name)
	}

	accum, err := lookup(vf.Fields[0])
	if err != nil {
		return model.Scalar{}, err
	}

	for i, op := range vf.Operations {
		next, err := lookup(vf.Fields[i+1])
		if err != nil {
			return model.Scalar{}, err
		}
		accum, err = apply(op, accum, next)
		if err != nil {
			return model.Scalar{}, err
		}
	}

	return finalize(vf, accum)
}

func apply(op model.FieldOp, left, right model.Scalar) (model.Scalar, error) {
	switch op {
	case model.OpAdd:
		return arith(left, right, func(a, b float64) float64 { return a + b })
	case model.OpSubtract:
		return arith(left, right, func(a, b float64) float64 { return a - b })
	case model.OpMultiply:
		return arith(left, right, func(a, b float64) float64 { return a * b })
	case model.OpDivide:
		d := coerce.ToNumber(right)
		if d == 0 {
			return model.Scalar{}, eris.Wrap(ErrDivisionByZero, "divide")
		}
		return arith(left, right, func(a, b float64) float64 { return a / b })
	case model.OpAbs:
		return model.Number(math.Abs(coerce.ToNumber(left))), nil
	case model.OpNegate:
		return model.Number(-coerce.ToNumber(left)), nil
	case model.OpConcat:
		return model.String(coerce.ToString(left) + coerce.ToString(right)), nil
	case model.OpDateDiff:
		return dateDiff(left, right)
	case model.OpConditional:
		return model.Scalar{}, eris.Wrap(ErrUnsupported, "conditional operation is reserved")
	default:
		return model.Scalar{}, eris.Wrapf(ErrUnsupported, "operation %q", op)
	}
}

func arith(left, right model.Scalar, f func(a, b float64) float64) (model.Scalar, error) {
	result := f(coerce.ToNumber(left), coerce.ToNumber(right))
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return model.Scalar{}, eris.Wrap(ErrNonFinite, "arithmetic")
	}
	return model.Number(result), nil
}

// dateDiff returns the whole-day difference (left - right), floored toward
// negative infinity.
func dateDiff(left, right model.Scalar) (model.Scalar, error) {
	l, err := coerce.ToDate(left)
	if err != nil {
		return model.Scalar{}, eris.Wrap(ErrBadDate, "date_diff left operand")
	}
	r, err := coerce.ToDate(right)
	if err != nil {
		return model.Scalar{}, eris.Wrap(ErrBadDate, "date_diff right operand")
	}
	days := math.Floor(float64(l-r) / float64(dayMillis))
	return model.Number(days), nil
}

// finalize casts the folded value to the field's declared type. Dates that
// cannot parse report BadDate; other casts go through the standard coercions.
func finalize(vf model.VirtualField, v model.Scalar) (model.Scalar, error) {
	switch vf.Type {
	case model.TypeNumber:
		return model.Number(coerce.ToNumber(v)), nil
	case model.TypeString:
		return model.String(coerce.ToString(v)), nil
	case model.TypeDate:
		ms, err := coerce.ToDate(v)
		if err != nil {
			return model.Scalar{}, eris.Wrapf(ErrBadDate, "virtual field %s", vf.Name)
		}
		return model.Date(ms), nil
	case model.TypeBoolean:
		return model.Bool(Truthy(v)), nil
	default:
		return v, nil
	}
}

// Truthy reports the boolean interpretation of a scalar: false for null,
// zero, the empty string, and false itself.
func Truthy(v model.Scalar) bool {
	switch v.Kind {
	case model.KindNull:
		return false
	case model.KindBool:
		return v.Bool
	case model.KindNumber:
		return v.Num != 0
	case model.KindString:
		return v.Str != ""
	case model.KindDate:
		return true
	}
	return false
}
