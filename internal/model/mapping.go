package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// MatchKind selects how a mapped column pair is compared.
type MatchKind string

const (
	MatchExact   MatchKind = "exact"
	MatchFuzzy   MatchKind = "fuzzy"
	MatchFormula MatchKind = "formula"
)

// FormulaKind identifies the mapping-level formula applied before comparison.
type FormulaKind string

const (
	FormulaDebitCreditToAmount FormulaKind = "debit_credit_to_amount"
	FormulaAmountToDebitCredit FormulaKind = "amount_to_debit_credit"
	FormulaCustom              FormulaKind = "custom"
)

// Formula describes a mapping-level column synthesis. For
// debit_credit_to_amount the source debit/credit columns collapse into one
// amount (credit - debit). For amount_to_debit_credit a signed amount splits:
// positive flows to credit, negative to debit as absolute value, zero to both.
type Formula struct {
	Kind         FormulaKind `json:"kind" yaml:"kind"`
	DebitColumn  string      `json:"debitColumn,omitempty" yaml:"debitColumn,omitempty"`
	CreditColumn string      `json:"creditColumn,omitempty" yaml:"creditColumn,omitempty"`
	AmountColumn string      `json:"amountColumn,omitempty" yaml:"amountColumn,omitempty"`
	TargetDebit  string      `json:"targetDebit,omitempty" yaml:"targetDebit,omitempty"`
	TargetCredit string      `json:"targetCredit,omitempty" yaml:"targetCredit,omitempty"`
	Expression   string      `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// ColumnMapping pairs a source selector with a target column. A multi-column
// source selector is concatenated with single spaces before comparison.
type ColumnMapping struct {
	ID        string    `json:"id" yaml:"id"`
	Source    []string  `json:"source" yaml:"source"`
	Target    string    `json:"target" yaml:"target"`
	Match     MatchKind `json:"match" yaml:"match"`
	Tolerance *float64  `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
	Formula   *Formula  `json:"formula,omitempty" yaml:"formula,omitempty"`
}

// Validate checks the mapping invariants.
func (m ColumnMapping) Validate() error {
	if m.Target == "" {
		return eris.Errorf("mapping %s: target column is required", m.ID)
	}
	switch m.Match {
	case MatchExact, MatchFuzzy:
		if len(m.Source) == 0 {
			return eris.Errorf("mapping %s: source selector is required", m.ID)
		}
		for _, s := range m.Source {
			if s == "" {
				return eris.Errorf("mapping %s: empty source column name", m.ID)
			}
		}
	case MatchFormula:
		if m.Formula == nil {
			return eris.Errorf("mapping %s: formula mapping requires a formula descriptor", m.ID)
		}
		if err := m.Formula.validate(m.ID); err != nil {
			return err
		}
	default:
		return eris.Errorf("mapping %s: unknown match kind %q", m.ID, m.Match)
	}
	if m.Tolerance != nil && *m.Tolerance < 0 {
		return eris.Errorf("mapping %s: tolerance must be non-negative", m.ID)
	}
	return nil
}

func (f Formula) validate(mappingID string) error {
	switch f.Kind {
	case FormulaDebitCreditToAmount:
		if f.DebitColumn == "" || f.CreditColumn == "" {
			return eris.Errorf("mapping %s: debit_credit_to_amount requires debit and credit columns", mappingID)
		}
	case FormulaAmountToDebitCredit:
		if f.AmountColumn == "" || f.TargetDebit == "" || f.TargetCredit == "" {
			return eris.Errorf("mapping %s: amount_to_debit_credit requires amount, targetDebit and targetCredit", mappingID)
		}
	case FormulaCustom:
		if strings.TrimSpace(f.Expression) == "" {
			return eris.Errorf("mapping %s: custom formula requires an expression", mappingID)
		}
	default:
		return eris.Errorf("mapping %s: unknown formula kind %q", mappingID, f.Kind)
	}
	return nil
}

// SourceValue resolves the mapping's source selector against a row. Multiple
// columns concatenate with single spaces through their string forms.
func (m ColumnMapping) SourceValue(row Row, toString func(Scalar) string) Scalar {
	if len(m.Source) == 1 {
		v, _ := row.Get(m.Source[0])
		return v
	}
	parts := make([]string, 0, len(m.Source))
	for _, col := range m.Source {
		v, _ := row.Get(col)
		parts = append(parts, toString(v))
	}
	return String(strings.Join(parts, " "))
}
