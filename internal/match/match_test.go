package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/arunsoman/match-magic/internal/model"
)

func TestValuesMatch_Exact(t *testing.T) {
	assert.True(t, ValuesMatch(model.Number(1500), model.Number(1500), 0, model.UnitExact))
	assert.False(t, ValuesMatch(model.Number(1500), model.Number(1501), 0, model.UnitExact))
	assert.True(t, ValuesMatch(model.String("abc"), model.String("abc"), 0, model.UnitExact))
}

func TestValuesMatch_AmountTolerance(t *testing.T) {
	// Half-interval windows: ±0.005 around each value overlaps across a
	// one-cent gap.
	assert.True(t, ValuesMatch(model.Number(2200.00), model.Number(2199.99), 0.005, model.UnitAmount))
	assert.False(t, ValuesMatch(model.Number(2200.00), model.Number(2199.99), 0, model.UnitExact))
	assert.True(t, ValuesMatch(model.Number(100), model.Number(100.02), 0.01, model.UnitAmount))
	assert.False(t, ValuesMatch(model.Number(100), model.Number(100.03), 0.01, model.UnitAmount))
}

func TestValuesMatch_PercentageTolerance(t *testing.T) {
	assert.True(t, ValuesMatch(model.Number(100), model.Number(101), 1, model.UnitPercentage))
	assert.False(t, ValuesMatch(model.Number(100), model.Number(102), 1, model.UnitPercentage))

	// Percentage against zero: only exact zero matches.
	assert.True(t, ValuesMatch(model.Number(0), model.Number(0), 5, model.UnitPercentage))
	assert.False(t, ValuesMatch(model.Number(0), model.Number(0.0001), 5, model.UnitPercentage))
}

func TestValuesMatch_DateTolerance(t *testing.T) {
	base := time.Date(2024, 1, 15, 9, 3, 0, 0, time.UTC)
	a := model.DateTime(base)
	b := model.DateTime(base.Add(4 * time.Minute))

	assert.True(t, ValuesMatch(a, b, 5, model.UnitMinutes))
	assert.False(t, ValuesMatch(a, b, 3, model.UnitMinutes))
	assert.True(t, ValuesMatch(a, b, 1, model.UnitHours))
	assert.True(t, ValuesMatch(a, b, 1, model.UnitDays))
	assert.False(t, ValuesMatch(a, b, 0, model.UnitExact))
}

func TestValuesMatch_StringFallback(t *testing.T) {
	assert.True(t, ValuesMatch(model.String("  Acme Corp "), model.String("acme corp"), 0, model.UnitExact))
	assert.True(t, ValuesMatch(model.Bool(true), model.String("TRUE"), 0, model.UnitExact))
	assert.False(t, ValuesMatch(model.String("acme"), model.String("emca"), 0, model.UnitExact))
}

func TestWeight(t *testing.T) {
	assert.Equal(t, 3.0, Weight("transaction_id"))
	assert.Equal(t, 3.0, Weight("Reference"))
	assert.Equal(t, 3.0, Weight("Amount"))
	assert.Equal(t, 3.0, Weight("net_value"))
	assert.Equal(t, 2.0, Weight("posting_date"))
	assert.Equal(t, 2.0, Weight("description"))
	assert.Equal(t, 1.0, Weight("branch"))
}

func cfgWith(tol float64, unit model.ToleranceUnit) model.ReconcileConfig {
	cfg := model.ReconcileConfig{Tolerance: tol, ToleranceUnit: unit}
	cfg.Normalize()
	return cfg
}

func TestConfidence_FullMatch(t *testing.T) {
	mappings := []model.ColumnMapping{
		{ID: "m1", Source: []string{"Amount"}, Target: "Value", Match: model.MatchExact},
	}
	src := model.Row{"Amount": model.Number(1500)}
	tgt := model.Row{"Value": model.Number(1500)}
	assert.Equal(t, 1.0, Confidence(src, tgt, mappings, cfgWith(0, model.UnitExact)))
}

func TestConfidence_Weighted(t *testing.T) {
	mappings := []model.ColumnMapping{
		{ID: "m1", Source: []string{"Amt"}, Target: "Amount", Match: model.MatchExact}, // weight 3
		{ID: "m2", Source: []string{"Br"}, Target: "Branch", Match: model.MatchExact},  // weight 1
	}
	src := model.Row{"Amt": model.Number(100), "Br": model.String("north")}
	tgt := model.Row{"Amount": model.Number(100), "Branch": model.String("south")}

	// 3/(3+1) = 0.75
	assert.InDelta(t, 0.75, Confidence(src, tgt, mappings, cfgWith(0, model.UnitExact)), 0.001)
}

func TestConfidence_NumericStringPromotion(t *testing.T) {
	mappings := []model.ColumnMapping{
		{ID: "m1", Source: []string{"Amount"}, Target: "Value", Match: model.MatchExact},
	}
	src := model.Row{"Amount": model.String("1500.00")}
	tgt := model.Row{"Value": model.Number(1500)}
	assert.Equal(t, 1.0, Confidence(src, tgt, mappings, cfgWith(0, model.UnitExact)))
}

func TestConfidence_MultiColumnSelector(t *testing.T) {
	mappings := []model.ColumnMapping{
		{ID: "m1", Source: []string{"First", "Last"}, Target: "FullName", Match: model.MatchFuzzy},
	}
	src := model.Row{"First": model.String("Jane"), "Last": model.String("Doe")}
	tgt := model.Row{"FullName": model.String("jane doe")}
	assert.Equal(t, 1.0, Confidence(src, tgt, mappings, cfgWith(0, model.UnitExact)))
}

func TestConfidence_PerMappingToleranceOverride(t *testing.T) {
	tol := 0.05
	mappings := []model.ColumnMapping{
		{ID: "m1", Source: []string{"Amount"}, Target: "Value", Match: model.MatchExact, Tolerance: &tol},
	}
	src := model.Row{"Amount": model.Number(100.00)}
	tgt := model.Row{"Value": model.Number(100.04)}
	assert.Equal(t, 1.0, Confidence(src, tgt, mappings, cfgWith(0, model.UnitAmount)))
}

func TestMappingValues_DebitCreditToAmount(t *testing.T) {
	m := model.ColumnMapping{
		ID: "m1", Target: "Amount", Match: model.MatchFormula,
		Formula: &model.Formula{
			Kind:         model.FormulaDebitCreditToAmount,
			DebitColumn:  "Dr",
			CreditColumn: "Cr",
		},
	}
	src := model.Row{"Dr": model.Number(100), "Cr": model.Number(0)}
	tgt := model.Row{"Amount": model.Number(-100)}

	sv, tv := MappingValues(m, src, tgt)
	assert.Equal(t, model.Number(-100), sv)
	assert.Equal(t, model.Number(-100), tv)
	assert.Equal(t, 1.0, Confidence(src, tgt, []model.ColumnMapping{m}, cfgWith(0, model.UnitExact)))
}

func TestMappingValues_AmountToDebitCredit(t *testing.T) {
	m := model.ColumnMapping{
		ID: "m1", Target: "ignored", Match: model.MatchFormula,
		Formula: &model.Formula{
			Kind:         model.FormulaAmountToDebitCredit,
			AmountColumn: "Amount",
			TargetDebit:  "Dr",
			TargetCredit: "Cr",
		},
	}
	src := model.Row{"Amount": model.Number(250)}
	tgt := model.Row{"Dr": model.Number(0), "Cr": model.Number(250)}

	sv, tv := MappingValues(m, src, tgt)
	assert.Equal(t, model.Number(250), sv)
	assert.Equal(t, model.Number(250), tv)
}

func TestDiscrepancies(t *testing.T) {
	mappings := []model.ColumnMapping{
		{ID: "m1", Source: []string{"Amount"}, Target: "Value", Match: model.MatchExact},
	}
	src := model.Row{"Amount": model.Number(2200.00)}
	tgt := model.Row{"Value": model.Number(2199.99)}

	d := Discrepancies(src, tgt, mappings, cfgWith(0, model.UnitExact))
	assert.Equal(t, []string{"Value: 2200 ≠ 2199.99"}, d)

	d = Discrepancies(src, tgt, mappings, cfgWith(0.005, model.UnitAmount))
	assert.Empty(t, d)
}
