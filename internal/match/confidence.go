package match

import (
	"math"

	"github.com/arunsoman/match-magic/internal/coerce"
	"github.com/arunsoman/match-magic/internal/model"
)

// MappingValues resolves the comparable pair for one mapping. Formula
// mappings synthesize amounts: credit minus debit collapses to a signed
// amount, and the inverse splits a signed amount across debit and credit.
func MappingValues(m model.ColumnMapping, source, target model.Row) (model.Scalar, model.Scalar) {
	if m.Match == model.MatchFormula && m.Formula != nil {
		switch m.Formula.Kind {
		case model.FormulaDebitCreditToAmount:
			debit, _ := source.Get(m.Formula.DebitColumn)
			credit, _ := source.Get(m.Formula.CreditColumn)
			sv := model.Number(coerce.ToNumber(credit) - coerce.ToNumber(debit))
			tv, _ := target.Get(m.Target)
			return sv, promote(tv)
		case model.FormulaAmountToDebitCredit:
			amount, _ := source.Get(m.Formula.AmountColumn)
			tDebit, _ := target.Get(m.Formula.TargetDebit)
			tCredit, _ := target.Get(m.Formula.TargetCredit)
			tv := model.Number(coerce.ToNumber(tCredit) - coerce.ToNumber(tDebit))
			return promote(amount), tv
		case model.FormulaCustom:
			// Custom formulas are materialized as virtual fields; the
			// expression names the computed column to read.
			sv, _ := source.Get(m.Formula.Expression)
			tv, _ := target.Get(m.Target)
			return promote(sv), promote(tv)
		}
	}

	sv := m.SourceValue(source, coerce.ToString)
	tv, _ := target.Get(m.Target)
	return promote(sv), promote(tv)
}

// promote lifts numeric strings to numbers and date-like strings to dates so
// that "1500.00" and 1500, or "2024-01-15 09:03:00" and "15-01-2024 09:07",
// compare under the numeric and date rules rather than textually.
func promote(v model.Scalar) model.Scalar {
	if v.Kind != model.KindString {
		return v
	}
	if n, ok := coerce.ParseNumber(v.Str); ok {
		return model.Number(n)
	}
	if coerce.LooksLikeDate(v.Str) {
		if ms, ok := coerce.ParseDate(v.Str); ok {
			return model.Date(ms)
		}
	}
	return v
}

// mappingTolerance picks the mapping override when present.
func mappingTolerance(m model.ColumnMapping, cfg model.ReconcileConfig) float64 {
	if m.Tolerance != nil {
		return *m.Tolerance
	}
	return cfg.Tolerance
}

// Confidence scores a source/target pair over the mapping set: the weighted
// average of per-field scores, in [0, 1]. A field inside tolerance scores a
// full 1; a numeric near-miss earns partial credit by closeness, so a
// one-cent difference still surfaces as a high-confidence discrepancy pair
// instead of two unmatched rows.
func Confidence(source, target model.Row, mappings []model.ColumnMapping, cfg model.ReconcileConfig) float64 {
	// The exact strategy scores fields all-or-nothing so its results stay
	// interchangeable with the strict two-pointer walk.
	graded := cfg.MatchStrategy != model.StrategyExact

	var total, matched float64
	for _, m := range mappings {
		w := Weight(m.Target)
		total += w

		sv, tv := MappingValues(m, source, target)
		matched += w * fieldScore(sv, tv, mappingTolerance(m, cfg), cfg.ToleranceUnit, graded)
	}
	if total == 0 {
		return 0
	}
	score := matched / total
	return math.Min(1, math.Max(0, score))
}

func fieldScore(sv, tv model.Scalar, tolerance float64, unit model.ToleranceUnit, graded bool) float64 {
	if ValuesMatch(sv, tv, tolerance, unit) {
		return 1
	}
	if graded && sv.Kind == model.KindNumber && tv.Kind == model.KindNumber {
		scale := math.Max(math.Max(math.Abs(sv.Num), math.Abs(tv.Num)), 1)
		closeness := 1 - math.Abs(sv.Num-tv.Num)/scale
		if closeness > 0 {
			return closeness
		}
	}
	return 0
}

// Discrepancies lists the mapped pairs that fail the unit-aware comparison,
// as human-readable strings.
func Discrepancies(source, target model.Row, mappings []model.ColumnMapping, cfg model.ReconcileConfig) []string {
	var out []string
	for _, m := range mappings {
		sv, tv := MappingValues(m, source, target)
		if !ValuesMatch(sv, tv, mappingTolerance(m, cfg), cfg.ToleranceUnit) {
			out = append(out, m.Target+": "+coerce.ToString(sv)+" ≠ "+coerce.ToString(tv))
		}
	}
	return out
}
