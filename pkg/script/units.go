package script

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"
)

// Unit is a precompiled glue unit. Registering a Unit with a UnitRegistry
// is the explicit capability marker that the unit is runnable glue; there
// is no runtime duck-typing. Units are compiled ahead of loading, so a
// compile failure surfaces before any glue path is scanned.
type Unit struct {
	name string
	prog *starlark.Program
}

// CompileUnit compiles src into a unit. name is the unit's identity and the
// filename reported in registration locations and stack traces, so it
// should carry the Starlark source suffix (for example "support/http.star").
func CompileUnit(name string, src []byte) (*Unit, error) {
	_, prog, err := starlark.SourceProgram(name, src, func(string) bool {
		// Name resolution is deferred to Init, against the shared context
		// of the run that executes the unit.
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("compile unit %s: %w", name, err)
	}
	return &Unit{name: name, prog: prog}, nil
}

// Name returns the unit's identity.
func (u *Unit) Name() string { return u.name }

// UnitRegistry is the compiled-unit discovery collaborator: it answers
// which precompiled units live under a glue path's package key.
type UnitRegistry struct {
	units map[string][]*Unit
}

// NewUnitRegistry creates an empty registry.
func NewUnitRegistry() *UnitRegistry {
	return &UnitRegistry{units: make(map[string][]*Unit)}
}

// Register binds a unit to a package key. The same unit may be registered
// under several keys; run-once tracking by unit name keeps it from
// executing twice.
func (r *UnitRegistry) Register(pkg string, u *Unit) {
	r.units[pkg] = append(r.units[pkg], u)
}

// Descendants returns the units registered under pkg, in registration
// order.
func (r *UnitRegistry) Descendants(pkg string) []*Unit {
	defs := r.units[pkg]
	out := make([]*Unit, len(defs))
	copy(out, defs)
	return out
}

// PackageKey derives the package key a glue path maps to: the
// slash-cleaned path with separators replaced by dots, scheme stripped.
// "classpath:features/steps" and "features/steps" share the key
// "features.steps".
func PackageKey(gluePath string) string {
	p := strings.TrimPrefix(gluePath, ClasspathScheme)
	p = strings.Trim(strings.ReplaceAll(p, "\\", "/"), "/")
	return strings.ReplaceAll(p, "/", ".")
}
