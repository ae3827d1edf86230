package transform

import (
	"strconv"

	"github.com/arunsoman/match-magic/internal/model"
)

// params wraps a step's parameter bag with typed, defaulting accessors.
type params map[string]any

func (p params) str(key, def string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return def
}

func (p params) boolean(key string, def bool) bool {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, err := strconv.ParseBool(x)
		if err != nil {
			return def
		}
		return b
	}
	return def
}

func (p params) number(key string, def float64) float64 {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		n, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return def
		}
		return n
	}
	return def
}

func (p params) has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}

// scalar reads a parameter as a literal Scalar.
func (p params) scalar(key string) model.Scalar {
	v, ok := p[key]
	if !ok {
		return model.Null()
	}
	return model.FromAny(v)
}
