package glue

import (
	"strconv"
	"strings"

	"go.starlark.net/starlark"
)

// Converter turns a raw regexp capture into a typed Starlark value,
// reporting whether it applies.
type Converter func(capture string) (starlark.Value, bool)

// TypeRegistry converts pattern-matched capture strings into the typed
// arguments a step body receives. Converters are tried in registration
// order; the first that applies wins, with plain string as the fallback.
type TypeRegistry struct {
	converters []Converter
}

// NewTypeRegistry creates a registry with the built-in int and float
// conversions.
func NewTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{}
	r.Register(convertInt)
	r.Register(convertFloat)
	return r
}

// Register appends a converter. Later registrations are consulted after
// earlier ones.
func (r *TypeRegistry) Register(c Converter) {
	r.converters = append(r.converters, c)
}

// Convert maps each capture through the first applicable converter,
// defaulting to a Starlark string.
func (r *TypeRegistry) Convert(captures []string) []starlark.Value {
	out := make([]starlark.Value, len(captures))
	for i, c := range captures {
		out[i] = r.convert(c)
	}
	return out
}

func (r *TypeRegistry) convert(capture string) starlark.Value {
	for _, c := range r.converters {
		if v, ok := c(capture); ok {
			return v
		}
	}
	return starlark.String(capture)
}

func convertInt(capture string) (starlark.Value, bool) {
	n, err := strconv.ParseInt(capture, 10, 64)
	if err != nil {
		return nil, false
	}
	return starlark.MakeInt64(n), true
}

func convertFloat(capture string) (starlark.Value, bool) {
	if !strings.ContainsAny(capture, ".eE") {
		return nil, false
	}
	f, err := strconv.ParseFloat(capture, 64)
	if err != nil {
		return nil, false
	}
	return starlark.Float(f), true
}
