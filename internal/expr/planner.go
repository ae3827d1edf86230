package expr

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/arunsoman/match-magic/internal/model"
)

// FieldError notes a virtual field that failed to evaluate for a row.
type FieldError struct {
	Field string
	Err   error
}

// Planner evaluates a side's virtual fields in dependency order.
type Planner struct {
	ordered []model.VirtualField
	cyclic  map[string]bool
}

// NewPlanner topologically sorts the given virtual fields. Fields caught in a
// dependency cycle are placed last and marked: they evaluate to a defined
// MissingField error so the row survives.
func NewPlanner(fields []model.VirtualField) (*Planner, error) {
	for _, vf := range fields {
		if err := vf.Validate(); err != nil {
			return nil, err
		}
	}

	byName := make(map[string]model.VirtualField, len(fields))
	for _, vf := range fields {
		if _, dup := byName[vf.Name]; dup {
			return nil, eris.Errorf("planner: duplicate virtual field %q", vf.Name)
		}
		byName[vf.Name] = vf
	}

	placed := make(map[string]bool, len(fields))
	ordered := make([]model.VirtualField, 0, len(fields))
	remaining := append([]model.VirtualField(nil), fields...)

	// Repeatedly extract fields whose virtual dependencies are placed. A pass
	// with no progress means the rest form (or depend on) a cycle.
	for len(remaining) > 0 {
		progress := false
		next := remaining[:0]
		for _, vf := range remaining {
			ready := true
			for _, dep := range vf.VirtualDeps() {
				if _, known := byName[dep]; known && !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				ordered = append(ordered, vf)
				placed[vf.Name] = true
				progress = true
			} else {
				next = append(next, vf)
			}
		}
		remaining = next
		if !progress {
			break
		}
	}

	cyclic := make(map[string]bool, len(remaining))
	for _, vf := range remaining {
		cyclic[vf.Name] = true
		ordered = append(ordered, vf)
	}
	if len(cyclic) > 0 {
		names := make([]string, 0, len(cyclic))
		for n := range cyclic {
			names = append(names, n)
		}
		zap.L().Warn("planner: virtual field cycle detected", zap.Strings("fields", names))
	}

	return &Planner{ordered: ordered, cyclic: cyclic}, nil
}

// HasCycle reports whether any field was caught in a dependency cycle.
func (p *Planner) HasCycle() bool { return len(p.cyclic) > 0 }

// Order returns the evaluation order.
func (p *Planner) Order() []model.VirtualField { return p.ordered }

// EvaluateRow computes every virtual field for one row, injecting successful
// results as named columns available to subsequent fields. Failed fields
// produce a null column and an error note; the row always survives.
func (p *Planner) EvaluateRow(row model.Row) (model.Row, []FieldError) {
	enriched := row.Clone()
	var errs []FieldError

	for _, vf := range p.ordered {
		if p.cyclic[vf.Name] {
			enriched[vf.Name] = model.Null()
			errs = append(errs, FieldError{
				Field: vf.Name,
				Err:   eris.Wrapf(ErrMissingField, "virtual field %s is part of a dependency cycle", vf.Name),
			})
			continue
		}
		v, err := Evaluate(vf, RowLookup(enriched))
		if err != nil {
			enriched[vf.Name] = model.Null()
			errs = append(errs, FieldError{Field: vf.Name, Err: err})
			continue
		}
		enriched[vf.Name] = v
	}
	return enriched, errs
}
