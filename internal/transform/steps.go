package transform

import (
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/arunsoman/match-magic/internal/coerce"
	"github.com/arunsoman/match-magic/internal/expr"
	"github.com/arunsoman/match-magic/internal/model"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	specialChars  = regexp.MustCompile(`[^A-Za-z0-9\s]`)
	nonDigits     = regexp.MustCompile(`[^0-9]`)
)

// ExecuteStep applies one transformation step to a cell value. On error the
// caller propagates the original input; see Run.
func (e *Engine) ExecuteStep(value model.Scalar, step model.TransformStep) (model.Scalar, error) {
	p := params(step.Params)

	switch step.Kind {
	case model.StepCleanString:
		return cleanString(value, p.boolean("trim", true), p.boolean("normalizeSpaces", true)), nil

	case model.StepTrim:
		return stringOp(value, strings.TrimSpace), nil

	case model.StepLowercase:
		return stringOp(value, strings.ToLower), nil

	case model.StepUppercase:
		return stringOp(value, strings.ToUpper), nil

	case model.StepRemoveSpecialChars:
		repl := p.str("replacement", "")
		return stringOp(value, func(s string) string {
			return specialChars.ReplaceAllString(s, repl)
		}), nil

	case model.StepCastToDate:
		return e.castToDate(value, p)

	case model.StepCastToNumber:
		return model.Number(coerce.ToNumber(value)), nil

	case model.StepCastToString:
		return model.String(coerce.ToString(value)), nil

	case model.StepConvertTimezone:
		return e.convertTimezone(value, p)

	case model.StepFormatDate:
		ms, err := coerce.ToDate(value)
		if err != nil {
			return model.Scalar{}, eris.Wrap(err, "format_date")
		}
		return model.String(coerce.FormatDate(ms, p.str("outputFormat", ""))), nil

	case model.StepCurrencyConversion:
		return e.currencyConversion(value, p)

	case model.StepRoundNumber:
		return roundNumber(value, p)

	case model.StepReplaceText:
		return replaceText(value, p)

	case model.StepExtractSubstring:
		return extractSubstring(value, p), nil

	case model.StepStandardizeFormat:
		return standardizeFormat(value, p)

	case model.StepConditional:
		return e.conditional(value, p)

	case model.StepAbsoluteValue:
		n := coerce.ToNumber(value)
		if n < 0 {
			n = -n
		}
		return model.Number(n), nil

	case model.StepNegateNumber:
		return model.Number(-coerce.ToNumber(value)), nil

	case model.StepScaleNumber:
		return model.Number(coerce.ToNumber(value) * p.number("factor", 1)), nil

	case model.StepFillNull:
		return e.fillNull(value, p), nil

	case model.StepFlagMissing:
		return flagMissing(value, p), nil

	case model.StepExcludeIfNull:
		return excludeIfNull(value, p)

	default:
		return model.Scalar{}, eris.Errorf("transform: unknown step kind %q", step.Kind)
	}
}

// stringOp applies a pure string function. Null passes through: missing
// values are the business of fill_null and flag_missing.
func stringOp(value model.Scalar, f func(string) string) model.Scalar {
	if value.IsNull() {
		return value
	}
	return model.String(f(coerce.ToString(value)))
}

func cleanString(value model.Scalar, trim, normalizeSpaces bool) model.Scalar {
	return stringOp(value, func(s string) string {
		if normalizeSpaces {
			s = whitespaceRun.ReplaceAllString(s, " ")
		}
		if trim {
			s = strings.TrimSpace(s)
		}
		return s
	})
}

func (e *Engine) castToDate(value model.Scalar, p params) (model.Scalar, error) {
	strict := p.boolean("strictParsing", false)
	format := p.str("inputFormat", "auto")

	if value.Kind == model.KindDate {
		return value, nil
	}
	if format != "" && format != "auto" && value.Kind == model.KindString {
		ms, ok := coerce.ParseNamedFormat(value.Str, format, strict)
		if !ok {
			return model.Scalar{}, eris.Wrapf(coerce.ErrBadDate, "cast_to_date: %q does not match %s", value.Str, format)
		}
		return model.Date(ms), nil
	}

	if strict && value.Kind == model.KindString {
		ms, ok := coerce.ParseDateStrict(value.Str)
		if !ok {
			return model.Scalar{}, eris.Wrapf(coerce.ErrBadDate, "cast_to_date: %q fails strict parsing", value.Str)
		}
		return model.Date(ms), nil
	}

	ms, err := coerce.ToDate(value)
	if err != nil {
		return model.Scalar{}, eris.Wrap(err, "cast_to_date")
	}
	return model.Date(ms), nil
}

// convertTimezone validates both zones and, by default, preserves the
// absolute instant. With the wall-clock knob the civil time read in the
// source zone is rebuilt in the destination zone.
func (e *Engine) convertTimezone(value model.Scalar, p params) (model.Scalar, error) {
	ms, err := coerce.ToDate(value)
	if err != nil {
		return model.Scalar{}, eris.Wrap(err, "convert_timezone")
	}

	from, err := e.loadZone(p.str("fromTimezone", "UTC"))
	if err != nil {
		return model.Scalar{}, eris.Wrapf(ErrUnsupported, "timezone %q", p.str("fromTimezone", "UTC"))
	}
	to, err := e.loadZone(p.str("toTimezone", "UTC"))
	if err != nil {
		return model.Scalar{}, eris.Wrapf(ErrUnsupported, "timezone %q", p.str("toTimezone", "UTC"))
	}

	if !e.wallClockShift {
		return model.Date(ms), nil
	}

	t := time.UnixMilli(ms).In(from)
	shifted := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), to)
	return model.Date(shifted.UnixMilli()), nil
}

func (e *Engine) currencyConversion(value model.Scalar, p params) (model.Scalar, error) {
	from := p.str("fromCurrency", "")
	to := p.str("toCurrency", "")
	if strings.EqualFold(from, to) {
		return value, nil
	}

	var rate float64
	if p.has("exchangeRate") {
		rate = p.number("exchangeRate", 0)
	} else if r, ok := e.rates.Rate(from, to); ok {
		rate = r
	} else {
		return model.Scalar{}, eris.Errorf("transform: no exchange rate for %s/%s", from, to)
	}
	if rate <= 0 {
		return model.Scalar{}, eris.Errorf("transform: invalid exchange rate %v for %s/%s", rate, from, to)
	}

	converted := decimal.NewFromFloat(coerce.ToNumber(value)).Mul(decimal.NewFromFloat(rate))
	return model.Number(converted.InexactFloat64()), nil
}

func roundNumber(value model.Scalar, p params) (model.Scalar, error) {
	places := int32(p.number("decimalPlaces", 2))
	d := decimal.NewFromFloat(coerce.ToNumber(value))

	switch mode := p.str("roundingMode", "round"); mode {
	case "round":
		d = d.Round(places)
	case "ceil":
		d = d.RoundCeil(places)
	case "floor":
		d = d.RoundFloor(places)
	default:
		return model.Scalar{}, eris.Errorf("transform: unknown rounding mode %q", mode)
	}
	return model.Number(d.InexactFloat64()), nil
}

func replaceText(value model.Scalar, p params) (model.Scalar, error) {
	search := p.str("searchText", "")
	replace := p.str("replaceWith", "")
	useRegex := p.boolean("useRegex", false)
	caseSensitive := p.boolean("caseSensitive", true)

	if value.IsNull() || search == "" {
		return value, nil
	}

	pattern := search
	if !useRegex {
		pattern = regexp.QuoteMeta(search)
	}
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return model.Scalar{}, eris.Wrapf(err, "transform: bad replace pattern %q", search)
	}
	return model.String(re.ReplaceAllString(coerce.ToString(value), replace)), nil
}

func extractSubstring(value model.Scalar, p params) model.Scalar {
	if value.IsNull() {
		return value
	}
	runes := []rune(coerce.ToString(value))
	start := int(p.number("startPosition", 0))
	if start < 0 {
		start = 0
	}
	if start >= len(runes) {
		return model.String("")
	}
	end := len(runes)
	if p.has("length") {
		if n := int(p.number("length", 0)); start+n < end {
			end = start + n
		}
	}
	return model.String(string(runes[start:end]))
}

var titleCaser = cases.Title(language.Und)

func standardizeFormat(value model.Scalar, p params) (model.Scalar, error) {
	formatType := p.str("formatType", "")
	if value.IsNull() {
		return value, nil
	}
	s := coerce.ToString(value)

	switch formatType {
	case "phone":
		digits := nonDigits.ReplaceAllString(s, "")
		if len(digits) == 11 && digits[0] == '1' {
			digits = digits[1:]
		}
		if len(digits) != 10 {
			return model.String(s), nil
		}
		return model.String("(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:]), nil
	case "email":
		return model.String(strings.ToLower(strings.TrimSpace(s))), nil
	case "title":
		return model.String(titleCaser.String(strings.ToLower(s))), nil
	case "sentence":
		runes := []rune(strings.ToLower(s))
		if len(runes) > 0 {
			runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
		}
		return model.String(string(runes)), nil
	default:
		return model.Scalar{}, eris.Errorf("transform: unknown format type %q", formatType)
	}
}

func (e *Engine) conditional(value model.Scalar, p params) (model.Scalar, error) {
	cond, err := expr.ParseCondition(p.str("condition", ""))
	if err != nil {
		return model.Scalar{}, eris.Wrap(err, "transform: conditional")
	}
	ok, err := cond.Eval(value)
	if err != nil {
		return model.Scalar{}, eris.Wrap(err, "transform: conditional")
	}

	var chosen model.Scalar
	if ok {
		chosen = p.scalar("trueValue")
	} else {
		chosen = p.scalar("falseValue")
	}
	return castTo(chosen, model.DataType(p.str("dataType", "string")))
}

func castTo(v model.Scalar, typ model.DataType) (model.Scalar, error) {
	switch typ {
	case model.TypeNumber:
		return model.Number(coerce.ToNumber(v)), nil
	case model.TypeDate:
		ms, err := coerce.ToDate(v)
		if err != nil {
			return model.Scalar{}, eris.Wrap(err, "transform: cast branch to date")
		}
		return model.Date(ms), nil
	case model.TypeBoolean:
		return model.Bool(expr.Truthy(v)), nil
	default:
		return model.String(coerce.ToString(v)), nil
	}
}

func (e *Engine) fillNull(value model.Scalar, p params) model.Scalar {
	treatEmpty := p.boolean("treatEmptyAsNull", true)
	treatZero := p.boolean("treatZeroAsNull", false)

	missing := value.IsNull() ||
		(treatEmpty && value.Kind == model.KindString && strings.TrimSpace(value.Str) == "") ||
		(treatZero && value.Kind == model.KindNumber && value.Num == 0)
	if !missing {
		return value
	}

	fill := p.scalar("fillValue")
	if fill.Kind == model.KindString {
		now := e.now().UTC()
		switch fill.Str {
		case "current_date":
			midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
			return model.DateTime(midnight)
		case "current_datetime", "current_timestamp":
			return model.DateTime(now)
		}
	}
	return fill
}

func flagMissing(value model.Scalar, p params) model.Scalar {
	if !value.IsMissing() {
		return value
	}
	flag := p.str("flagValue", "MISSING")
	switch p.str("flagPosition", "replace") {
	case "prefix":
		return model.String(flag + coerce.ToString(value))
	case "suffix":
		return model.String(coerce.ToString(value) + flag)
	default:
		return model.String(flag)
	}
}

// excludeIfNull drops the owning row when the value is missing. When a
// numeric threshold is configured, values at or below it in absolute terms
// are excluded too.
func excludeIfNull(value model.Scalar, p params) (model.Scalar, error) {
	treatEmpty := p.boolean("treatEmptyAsNull", true)

	missing := value.IsNull() ||
		(treatEmpty && value.Kind == model.KindString && strings.TrimSpace(value.Str) == "")
	if missing {
		return model.Scalar{}, eris.Wrap(ErrExcludeRow, "exclude_if_null: value missing")
	}

	if p.has("threshold") && value.Kind == model.KindNumber {
		threshold := p.number("threshold", 0)
		abs := value.Num
		if abs < 0 {
			abs = -abs
		}
		if abs <= threshold {
			return model.Scalar{}, eris.Wrapf(ErrExcludeRow, "exclude_if_null: |%v| <= %v", value.Num, threshold)
		}
	}
	return value, nil
}
