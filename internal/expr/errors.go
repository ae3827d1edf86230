// Package expr evaluates virtual-field formulas and the conditional
// mini-language used by transformation steps.
package expr

import "github.com/rotisserie/eris"

// Evaluation error kinds. Callers classify with eris.Is.
var (
	ErrMissingField   = eris.New("expr: missing field")
	ErrTypeError      = eris.New("expr: type error")
	ErrDivisionByZero = eris.New("expr: division by zero")
	ErrNonFinite      = eris.New("expr: non-finite result")
	ErrBadDate        = eris.New("expr: bad date")
	ErrUnsupported    = eris.New("expr: unsupported operation")
)
