package transform

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/arunsoman/match-magic/internal/expr"
	"github.com/arunsoman/match-magic/internal/model"
)

type paramType int

const (
	paramString paramType = iota
	paramNumber
	paramBool
	paramAny
)

type paramSpec struct {
	name     string
	typ      paramType
	required bool
	enum     []string
}

// stepSchemas declares each step kind's parameters. Unknown parameters are
// tolerated; missing required ones and enum violations reject the pipeline.
var stepSchemas = map[model.StepKind][]paramSpec{
	model.StepCleanString: {
		{name: "trim", typ: paramBool},
		{name: "normalizeSpaces", typ: paramBool},
	},
	model.StepTrim:      {},
	model.StepLowercase: {},
	model.StepUppercase: {},
	model.StepRemoveSpecialChars: {
		{name: "keepAlphanumeric", typ: paramBool},
		{name: "replacement", typ: paramString},
	},
	model.StepCastToDate: {
		{name: "inputFormat", typ: paramString},
		{name: "strictParsing", typ: paramBool},
	},
	model.StepCastToNumber: {
		{name: "removeCommas", typ: paramBool},
		{name: "removeCurrency", typ: paramBool},
	},
	model.StepCastToString: {},
	model.StepConvertTimezone: {
		{name: "fromTimezone", typ: paramString, required: true},
		{name: "toTimezone", typ: paramString, required: true},
	},
	model.StepFormatDate: {
		{name: "outputFormat", typ: paramString, required: true},
	},
	model.StepCurrencyConversion: {
		{name: "fromCurrency", typ: paramString, required: true},
		{name: "toCurrency", typ: paramString, required: true},
		{name: "exchangeRate", typ: paramNumber},
	},
	model.StepRoundNumber: {
		{name: "decimalPlaces", typ: paramNumber, required: true},
		{name: "roundingMode", typ: paramString, enum: []string{"round", "ceil", "floor"}},
	},
	model.StepReplaceText: {
		{name: "searchText", typ: paramString, required: true},
		{name: "replaceWith", typ: paramString},
		{name: "useRegex", typ: paramBool},
		{name: "caseSensitive", typ: paramBool},
	},
	model.StepExtractSubstring: {
		{name: "startPosition", typ: paramNumber, required: true},
		{name: "length", typ: paramNumber},
	},
	model.StepStandardizeFormat: {
		{name: "formatType", typ: paramString, required: true, enum: []string{"phone", "email", "title", "sentence"}},
	},
	model.StepConditional: {
		{name: "condition", typ: paramString, required: true},
		{name: "trueValue", typ: paramAny, required: true},
		{name: "falseValue", typ: paramAny, required: true},
		{name: "dataType", typ: paramString, enum: []string{"string", "number", "date", "boolean"}},
	},
	model.StepAbsoluteValue: {},
	model.StepNegateNumber:  {},
	model.StepScaleNumber: {
		{name: "factor", typ: paramNumber, required: true},
	},
	model.StepFillNull: {
		{name: "fillValue", typ: paramAny, required: true},
		{name: "treatEmptyAsNull", typ: paramBool},
		{name: "treatZeroAsNull", typ: paramBool},
	},
	model.StepFlagMissing: {
		{name: "flagValue", typ: paramString, required: true},
		{name: "flagPosition", typ: paramString, enum: []string{"prefix", "suffix", "replace"}},
	},
	model.StepExcludeIfNull: {
		{name: "threshold", typ: paramNumber},
		{name: "treatEmptyAsNull", typ: paramBool},
	},
}

// ValidateStep checks a single step against its schema.
func ValidateStep(step model.TransformStep) error {
	specs, known := stepSchemas[step.Kind]
	if !known {
		return eris.Errorf("transform: unknown step kind %q", step.Kind)
	}
	p := params(step.Params)

	for _, spec := range specs {
		if !p.has(spec.name) {
			if spec.required {
				return eris.Errorf("transform: step %s (%s) missing required parameter %q", step.ID, step.Kind, spec.name)
			}
			continue
		}
		if err := checkType(step, spec, p[spec.name]); err != nil {
			return err
		}
		if len(spec.enum) > 0 {
			v := p.str(spec.name, "")
			found := false
			for _, allowed := range spec.enum {
				if v == allowed {
					found = true
					break
				}
			}
			if !found {
				return eris.Errorf("transform: step %s (%s) parameter %q: %q not in %v", step.ID, step.Kind, spec.name, v, spec.enum)
			}
		}
	}

	// Conditions must parse eagerly so bad expressions reject the batch
	// instead of failing per cell.
	if step.Kind == model.StepConditional {
		if _, err := expr.ParseCondition(p.str("condition", "")); err != nil {
			return eris.Wrapf(err, "transform: step %s", step.ID)
		}
	}
	return nil
}

func checkType(step model.TransformStep, spec paramSpec, v any) error {
	ok := true
	switch spec.typ {
	case paramString:
		_, ok = v.(string)
	case paramBool:
		_, ok = v.(bool)
	case paramNumber:
		switch v.(type) {
		case float64, int, int64:
		default:
			ok = false
		}
	case paramAny:
	}
	if !ok {
		return eris.Errorf("transform: step %s (%s) parameter %q has wrong type", step.ID, step.Kind, spec.name)
	}
	return nil
}

// ValidatePipeline checks every step plus the cross-step ordering rule:
// cast_to_date must precede convert_timezone.
func ValidatePipeline(pl model.Pipeline) error {
	if pl.ColumnID == "" {
		return eris.Errorf("transform: pipeline %s has no column", pl.ID)
	}

	ordered := append([]model.TransformStep(nil), pl.Steps...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	castIdx, tzIdx := -1, -1
	for i, step := range ordered {
		if err := ValidateStep(step); err != nil {
			return err
		}
		switch step.Kind {
		case model.StepCastToDate:
			if castIdx == -1 {
				castIdx = i
			}
		case model.StepConvertTimezone:
			tzIdx = i
		}
	}
	if castIdx >= 0 && tzIdx >= 0 && tzIdx < castIdx {
		return eris.Errorf("transform: pipeline %s: cast_to_date must precede convert_timezone", pl.ID)
	}
	return nil
}
