package model

import "github.com/rotisserie/eris"

// Side scopes configuration to one input dataset.
type Side string

const (
	SideSource Side = "source"
	SideTarget Side = "target"
)

// DataType tags a virtual field's declared result type.
type DataType string

const (
	TypeNumber  DataType = "number"
	TypeString  DataType = "string"
	TypeDate    DataType = "date"
	TypeBoolean DataType = "boolean"
)

// FieldRef names an operand of a virtual-field formula. Virtual refs resolve
// against other virtual fields on the same side; physical refs read the row.
type FieldRef struct {
	Name    string `json:"name" yaml:"name"`
	Virtual bool   `json:"virtual,omitempty" yaml:"virtual,omitempty"`
}

// FieldOp is one step of a virtual-field operation tape.
type FieldOp string

const (
	OpAdd         FieldOp = "add"
	OpSubtract    FieldOp = "subtract"
	OpMultiply    FieldOp = "multiply"
	OpDivide      FieldOp = "divide"
	OpAbs         FieldOp = "abs"
	OpNegate      FieldOp = "negate"
	OpConcat      FieldOp = "concat"
	OpDateDiff    FieldOp = "date_diff"
	OpConditional FieldOp = "conditional"
)

var knownFieldOps = map[FieldOp]bool{
	OpAdd: true, OpSubtract: true, OpMultiply: true, OpDivide: true,
	OpAbs: true, OpNegate: true, OpConcat: true, OpDateDiff: true,
	OpConditional: true,
}

// VirtualField is a named computed column scoped to one side. The operation
// tape folds left over the referenced fields: one fewer operation than fields,
// a single field with no operations is the identity.
type VirtualField struct {
	Name       string     `json:"name" yaml:"name"`
	Side       Side       `json:"side" yaml:"side"`
	Type       DataType   `json:"type" yaml:"type"`
	Fields     []FieldRef `json:"fields" yaml:"fields"`
	Operations []FieldOp  `json:"operations,omitempty" yaml:"operations,omitempty"`
}

// Validate checks the arity invariant and operation names.
func (vf VirtualField) Validate() error {
	if vf.Name == "" {
		return eris.New("virtual field: name is required")
	}
	if len(vf.Fields) == 0 {
		return eris.Errorf("virtual field %s: at least one field reference is required", vf.Name)
	}
	want := len(vf.Fields) - 1
	if want < 0 {
		want = 0
	}
	if len(vf.Operations) != want {
		return eris.Errorf("virtual field %s: %d fields require %d operations, got %d",
			vf.Name, len(vf.Fields), want, len(vf.Operations))
	}
	for _, op := range vf.Operations {
		if !knownFieldOps[op] {
			return eris.Errorf("virtual field %s: unknown operation %q", vf.Name, op)
		}
	}
	switch vf.Type {
	case TypeNumber, TypeString, TypeDate, TypeBoolean:
	default:
		return eris.Errorf("virtual field %s: unknown data type %q", vf.Name, vf.Type)
	}
	return nil
}

// VirtualDeps returns the names of virtual fields this field depends on.
func (vf VirtualField) VirtualDeps() []string {
	var deps []string
	for _, ref := range vf.Fields {
		if ref.Virtual {
			deps = append(deps, ref.Name)
		}
	}
	return deps
}
