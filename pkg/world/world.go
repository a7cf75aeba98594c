// Package world holds the mutable per-scenario state shared by step and
// hook bodies. A World is built fresh from the registered factories at
// scenario start, owned exclusively by one backend for that scenario, and
// discarded at scenario end. Nothing survives across scenarios.
package world

import (
	"fmt"

	"go.starlark.net/starlark"
)

// Factory produces one world member. Factories are script closures wrapped
// by the backend; they take no arguments and run once per scenario.
type Factory func() (starlark.Value, error)

// Registry accumulates world factories during glue loading. Registration
// order is preserved and duplicates are allowed; the order determines both
// member construction order and member-name resolution order.
type Registry struct {
	factories []Factory
}

// NewRegistry creates an empty factory registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a factory for later invocation.
func (r *Registry) Register(f Factory) {
	r.factories = append(r.factories, f)
}

// Len returns the number of registered factories.
func (r *Registry) Len() int { return len(r.factories) }

// Build invokes every registered factory in registration order and collects
// the produced objects into a fresh World. A factory failure aborts the
// build and propagates, leaving no partially usable World.
func (r *Registry) Build() (*World, error) {
	w := &World{}
	for i, f := range r.factories {
		obj, err := f()
		if err != nil {
			return nil, fmt.Errorf("world factory %d: %w", i, err)
		}
		w.members = append(w.members, obj)
	}
	return w, nil
}

// World is the ordered collection of objects constituting one scenario's
// shared state. Member-name resolution scans members in registration order;
// the first member exposing the requested name wins.
type World struct {
	members []starlark.Value
}

// Members returns the member objects in registration order.
func (w *World) Members() []starlark.Value {
	out := make([]starlark.Value, len(w.members))
	copy(out, w.members)
	return out
}

// Lookup resolves name against the world members, first match wins. Dict
// members expose their string keys; other members expose their Starlark
// attributes. The boolean reports whether any member exposed the name.
func (w *World) Lookup(name string) (starlark.Value, bool, error) {
	key := starlark.String(name)
	for _, m := range w.members {
		if d, ok := m.(*starlark.Dict); ok {
			v, found, err := d.Get(key)
			if err != nil {
				return nil, false, err
			}
			if found {
				return v, true, nil
			}
			continue
		}
		if ha, ok := m.(starlark.HasAttrs); ok {
			v, err := ha.Attr(name)
			if err != nil {
				// A member that recognizes the name but fails to produce
				// it surfaces the failure rather than falling through.
				if _, missing := err.(starlark.NoSuchAttrError); !missing {
					return nil, false, err
				}
				continue
			}
			if v != nil {
				return v, true, nil
			}
		}
	}
	return nil, false, nil
}

// Set assigns name on the first member that exposes it: an existing dict
// key or a settable attribute. When no member exposes the name, the first
// dict member (if any) adopts it as a new key, so scripts can grow state
// from a plain dict world.
func (w *World) Set(name string, v starlark.Value) error {
	key := starlark.String(name)
	var firstDict *starlark.Dict
	for _, m := range w.members {
		if d, ok := m.(*starlark.Dict); ok {
			if firstDict == nil {
				firstDict = d
			}
			_, found, err := d.Get(key)
			if err != nil {
				return err
			}
			if found {
				return d.SetKey(key, v)
			}
			continue
		}
		if hs, ok := m.(starlark.HasSetField); ok {
			if hasAttrName(m, name) {
				return hs.SetField(name, v)
			}
		}
	}
	if firstDict != nil {
		return firstDict.SetKey(key, v)
	}
	return fmt.Errorf("no world object exposes %q", name)
}

// AttrNames returns the union of the members' exposed names, in member
// order, for introspection and error messages.
func (w *World) AttrNames() []string {
	seen := make(map[string]bool)
	var names []string
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for _, m := range w.members {
		if d, ok := m.(*starlark.Dict); ok {
			for _, item := range d.Items() {
				if s, ok := item[0].(starlark.String); ok {
					add(string(s))
				}
			}
			continue
		}
		if ha, ok := m.(starlark.HasAttrs); ok {
			for _, n := range ha.AttrNames() {
				add(n)
			}
		}
	}
	return names
}

func hasAttrName(v starlark.Value, name string) bool {
	ha, ok := v.(starlark.HasAttrs)
	if !ok {
		return false
	}
	for _, n := range ha.AttrNames() {
		if n == name {
			return true
		}
	}
	return false
}
