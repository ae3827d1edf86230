package transform

import (
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arunsoman/match-magic/internal/model"
	"github.com/arunsoman/match-magic/internal/rates"
)

func step(kind model.StepKind, params map[string]any) model.TransformStep {
	return model.TransformStep{ID: "s1", Kind: kind, Params: params}
}

func exec(t *testing.T, e *Engine, value model.Scalar, kind model.StepKind, params map[string]any) model.Scalar {
	t.Helper()
	got, err := e.ExecuteStep(value, step(kind, params))
	require.NoError(t, err)
	return got
}

func TestCleanString(t *testing.T) {
	e := NewEngine()
	got := exec(t, e, model.String("  hello   big\t world  "), model.StepCleanString, nil)
	assert.Equal(t, model.String("hello big world"), got)

	// clean_string is idempotent.
	assert.Equal(t, got, exec(t, e, got, model.StepCleanString, nil))
}

func TestCasingAndTrim(t *testing.T) {
	e := NewEngine()
	assert.Equal(t, model.String("abc"), exec(t, e, model.String("ABC"), model.StepLowercase, nil))
	assert.Equal(t, model.String("ABC"), exec(t, e, model.String("abc"), model.StepUppercase, nil))
	assert.Equal(t, model.String("x"), exec(t, e, model.String("  x  "), model.StepTrim, nil))

	// Null passes through string operations untouched.
	assert.Equal(t, model.Null(), exec(t, e, model.Null(), model.StepLowercase, nil))
}

func TestRemoveSpecialChars(t *testing.T) {
	e := NewEngine()
	got := exec(t, e, model.String("a-b_c!1 2"), model.StepRemoveSpecialChars, nil)
	assert.Equal(t, model.String("abc1 2"), got)

	got = exec(t, e, model.String("a-b"), model.StepRemoveSpecialChars, map[string]any{"replacement": "_"})
	assert.Equal(t, model.String("a_b"), got)
}

func TestCastToDate(t *testing.T) {
	e := NewEngine()
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC).UnixMilli()

	got := exec(t, e, model.String("15-01-2024"), model.StepCastToDate, nil)
	assert.Equal(t, model.Date(want), got)

	// Named input format.
	got = exec(t, e, model.String("01/15/2024"), model.StepCastToDate, map[string]any{"inputFormat": "MM/DD/YYYY"})
	assert.Equal(t, model.Date(want), got)

	_, err := e.ExecuteStep(model.String("30-02-2024"), step(model.StepCastToDate, map[string]any{"strictParsing": true}))
	assert.Error(t, err)
}

func TestCastToNumberAndString(t *testing.T) {
	e := NewEngine()
	assert.Equal(t, model.Number(1500), exec(t, e, model.String("$1,500.00"), model.StepCastToNumber, nil))
	assert.Equal(t, model.String("42"), exec(t, e, model.Number(42), model.StepCastToString, nil))
}

func TestConvertTimezone_PreservesInstant(t *testing.T) {
	e := NewEngine()
	ms := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC).UnixMilli()

	got := exec(t, e, model.Date(ms), model.StepConvertTimezone, map[string]any{
		"fromTimezone": "UTC", "toTimezone": "UTC",
	})
	assert.Equal(t, model.Date(ms), got)
}

func TestConvertTimezone_UnknownZone(t *testing.T) {
	e := NewEngine(WithZoneLoader(func(name string) (*time.Location, error) {
		if name == "UTC" {
			return time.UTC, nil
		}
		return nil, eris.Errorf("unknown zone %s", name)
	}))
	_, err := e.ExecuteStep(model.Date(0), step(model.StepConvertTimezone, map[string]any{
		"fromTimezone": "Mars/Olympus", "toTimezone": "UTC",
	}))
	assert.True(t, eris.Is(err, ErrUnsupported))
}

func TestFormatDate(t *testing.T) {
	e := NewEngine()
	ms := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC).UnixMilli()
	got := exec(t, e, model.Date(ms), model.StepFormatDate, map[string]any{"outputFormat": "DD/MM/YYYY"})
	assert.Equal(t, model.String("15/01/2024"), got)
}

func TestCurrencyConversion(t *testing.T) {
	e := NewEngine(WithRates(rates.Table{rates.Key("USD", "EUR"): 0.5}))

	got := exec(t, e, model.Number(100), model.StepCurrencyConversion, map[string]any{
		"fromCurrency": "USD", "toCurrency": "EUR",
	})
	assert.Equal(t, model.Number(50), got)

	// Explicit rate wins over the table.
	got = exec(t, e, model.Number(100), model.StepCurrencyConversion, map[string]any{
		"fromCurrency": "USD", "toCurrency": "EUR", "exchangeRate": 2.0,
	})
	assert.Equal(t, model.Number(200), got)

	// Same currency is a no-op.
	got = exec(t, e, model.Number(100), model.StepCurrencyConversion, map[string]any{
		"fromCurrency": "USD", "toCurrency": "usd",
	})
	assert.Equal(t, model.Number(100), got)

	// Missing rate is an error.
	_, err := e.ExecuteStep(model.Number(100), step(model.StepCurrencyConversion, map[string]any{
		"fromCurrency": "USD", "toCurrency": "JPY",
	}))
	assert.Error(t, err)
}

func TestRoundNumber(t *testing.T) {
	e := NewEngine()

	tests := []struct {
		in     float64
		params map[string]any
		want   float64
	}{
		{2.345, map[string]any{"decimalPlaces": 2.0}, 2.35},
		{-2.345, map[string]any{"decimalPlaces": 2.0}, -2.35}, // half away from zero
		{2.5, map[string]any{"decimalPlaces": 0.0}, 3},
		{-2.5, map[string]any{"decimalPlaces": 0.0}, -3},
		{2.341, map[string]any{"decimalPlaces": 2.0, "roundingMode": "ceil"}, 2.35},
		{2.349, map[string]any{"decimalPlaces": 2.0, "roundingMode": "floor"}, 2.34},
	}
	for _, tt := range tests {
		got := exec(t, e, model.Number(tt.in), model.StepRoundNumber, tt.params)
		assert.Equal(t, model.Number(tt.want), got, "round %v with %v", tt.in, tt.params)
	}
}

func TestRoundNumber_Idempotent(t *testing.T) {
	e := NewEngine()
	p := map[string]any{"decimalPlaces": 2.0}
	once := exec(t, e, model.Number(19.995), model.StepRoundNumber, p)
	assert.Equal(t, once, exec(t, e, once, model.StepRoundNumber, p))
}

func TestReplaceText(t *testing.T) {
	e := NewEngine()

	got := exec(t, e, model.String("a.b.c"), model.StepReplaceText, map[string]any{
		"searchText": ".", "replaceWith": "-",
	})
	assert.Equal(t, model.String("a-b-c"), got)

	got = exec(t, e, model.String("Hello hello"), model.StepReplaceText, map[string]any{
		"searchText": "hello", "replaceWith": "x", "caseSensitive": false,
	})
	assert.Equal(t, model.String("x x"), got)

	got = exec(t, e, model.String("ab12cd"), model.StepReplaceText, map[string]any{
		"searchText": "[0-9]+", "replaceWith": "#", "useRegex": true,
	})
	assert.Equal(t, model.String("ab#cd"), got)
}

func TestExtractSubstring(t *testing.T) {
	e := NewEngine()

	got := exec(t, e, model.String("abcdef"), model.StepExtractSubstring, map[string]any{
		"startPosition": 1.0, "length": 3.0,
	})
	assert.Equal(t, model.String("bcd"), got)

	// Clamps at string end.
	got = exec(t, e, model.String("ab"), model.StepExtractSubstring, map[string]any{
		"startPosition": 1.0, "length": 10.0,
	})
	assert.Equal(t, model.String("b"), got)

	got = exec(t, e, model.String("ab"), model.StepExtractSubstring, map[string]any{
		"startPosition": 5.0,
	})
	assert.Equal(t, model.String(""), got)
}

func TestStandardizeFormat(t *testing.T) {
	e := NewEngine()

	got := exec(t, e, model.String("555-123-4567"), model.StepStandardizeFormat, map[string]any{"formatType": "phone"})
	assert.Equal(t, model.String("(555) 123-4567"), got)

	// Non-10-digit numbers pass through.
	got = exec(t, e, model.String("12345"), model.StepStandardizeFormat, map[string]any{"formatType": "phone"})
	assert.Equal(t, model.String("12345"), got)

	got = exec(t, e, model.String("  Bob@Example.COM "), model.StepStandardizeFormat, map[string]any{"formatType": "email"})
	assert.Equal(t, model.String("bob@example.com"), got)

	got = exec(t, e, model.String("the QUICK brown fox"), model.StepStandardizeFormat, map[string]any{"formatType": "title"})
	assert.Equal(t, model.String("The Quick Brown Fox"), got)

	got = exec(t, e, model.String("HELLO WORLD"), model.StepStandardizeFormat, map[string]any{"formatType": "sentence"})
	assert.Equal(t, model.String("Hello world"), got)
}

func TestConditionalStep(t *testing.T) {
	e := NewEngine()

	got := exec(t, e, model.Number(150), model.StepConditional, map[string]any{
		"condition": "value > 100", "trueValue": "high", "falseValue": "low",
	})
	assert.Equal(t, model.String("high"), got)

	got = exec(t, e, model.Number(50), model.StepConditional, map[string]any{
		"condition": "value > 100", "trueValue": "high", "falseValue": "low",
	})
	assert.Equal(t, model.String("low"), got)

	got = exec(t, e, model.Number(5), model.StepConditional, map[string]any{
		"condition": "value > 0", "trueValue": "1", "falseValue": "0", "dataType": "number",
	})
	assert.Equal(t, model.Number(1), got)
}

func TestNumericSteps(t *testing.T) {
	e := NewEngine()
	assert.Equal(t, model.Number(5), exec(t, e, model.Number(-5), model.StepAbsoluteValue, nil))
	assert.Equal(t, model.Number(-5), exec(t, e, model.Number(5), model.StepNegateNumber, nil))
	assert.Equal(t, model.Number(250), exec(t, e, model.Number(100), model.StepScaleNumber, map[string]any{"factor": 2.5}))
}

func TestFillNull(t *testing.T) {
	now := time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC)
	e := NewEngine(WithClock(func() time.Time { return now }))

	got := exec(t, e, model.Null(), model.StepFillNull, map[string]any{"fillValue": "n/a"})
	assert.Equal(t, model.String("n/a"), got)

	got = exec(t, e, model.String(""), model.StepFillNull, map[string]any{"fillValue": "n/a"})
	assert.Equal(t, model.String("n/a"), got)

	// Zero only when asked.
	got = exec(t, e, model.Number(0), model.StepFillNull, map[string]any{"fillValue": "zero"})
	assert.Equal(t, model.Number(0), got)
	got = exec(t, e, model.Number(0), model.StepFillNull, map[string]any{"fillValue": "zero", "treatZeroAsNull": true})
	assert.Equal(t, model.String("zero"), got)

	// Clock sentinels.
	got = exec(t, e, model.Null(), model.StepFillNull, map[string]any{"fillValue": "current_datetime"})
	assert.Equal(t, model.DateTime(now), got)

	got = exec(t, e, model.Null(), model.StepFillNull, map[string]any{"fillValue": "current_date"})
	assert.Equal(t, model.DateTime(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)), got)

	// Non-missing passes through.
	got = exec(t, e, model.String("x"), model.StepFillNull, map[string]any{"fillValue": "n/a"})
	assert.Equal(t, model.String("x"), got)
}

func TestFlagMissing(t *testing.T) {
	e := NewEngine()

	got := exec(t, e, model.Null(), model.StepFlagMissing, map[string]any{"flagValue": "MISSING"})
	assert.Equal(t, model.String("MISSING"), got)

	got = exec(t, e, model.String(""), model.StepFlagMissing, map[string]any{"flagValue": "??", "flagPosition": "prefix"})
	assert.Equal(t, model.String("??"), got)

	got = exec(t, e, model.String("keep"), model.StepFlagMissing, map[string]any{"flagValue": "MISSING"})
	assert.Equal(t, model.String("keep"), got)
}

func TestExcludeIfNull(t *testing.T) {
	e := NewEngine()

	_, err := e.ExecuteStep(model.Null(), step(model.StepExcludeIfNull, nil))
	assert.True(t, eris.Is(err, ErrExcludeRow))

	_, err = e.ExecuteStep(model.String(""), step(model.StepExcludeIfNull, nil))
	assert.True(t, eris.Is(err, ErrExcludeRow))

	got, err := e.ExecuteStep(model.String("x"), step(model.StepExcludeIfNull, nil))
	require.NoError(t, err)
	assert.Equal(t, model.String("x"), got)

	// Threshold excludes small amounts when configured.
	_, err = e.ExecuteStep(model.Number(0.001), step(model.StepExcludeIfNull, map[string]any{"threshold": 0.01}))
	assert.True(t, eris.Is(err, ErrExcludeRow))
}
