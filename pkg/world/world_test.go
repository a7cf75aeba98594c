package world

import (
	"errors"
	"testing"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

func dictFactory(pairs map[string]starlark.Value) Factory {
	return func() (starlark.Value, error) {
		d := starlark.NewDict(len(pairs))
		for k, v := range pairs {
			if err := d.SetKey(starlark.String(k), v); err != nil {
				return nil, err
			}
		}
		return d, nil
	}
}

func TestBuildPreservesFactoryOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"first", "second", "third"} {
		name := name
		r.Register(func() (starlark.Value, error) {
			return starlark.String(name), nil
		})
	}

	w, err := r.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	members := w.Members()
	if len(members) != 3 {
		t.Fatalf("got %d members, want 3", len(members))
	}
	for i, want := range []string{"first", "second", "third"} {
		if members[i] != starlark.String(want) {
			t.Errorf("member %d = %v, want %q", i, members[i], want)
		}
	}
}

func TestBuildFactoryErrorAborts(t *testing.T) {
	boom := errors.New("factory exploded")
	r := NewRegistry()
	r.Register(func() (starlark.Value, error) { return starlark.None, nil })
	r.Register(func() (starlark.Value, error) { return nil, boom })

	if _, err := r.Build(); !errors.Is(err, boom) {
		t.Fatalf("Build error = %v, want wrapped %v", err, boom)
	}
}

func TestLookupFirstMatchWins(t *testing.T) {
	r := NewRegistry()
	r.Register(dictFactory(map[string]starlark.Value{"count": starlark.MakeInt(1)}))
	r.Register(dictFactory(map[string]starlark.Value{
		"count": starlark.MakeInt(99),
		"name":  starlark.String("second"),
	}))

	w, err := r.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	v, ok, err := w.Lookup("count")
	if err != nil || !ok {
		t.Fatalf("Lookup(count) = %v, %v, %v", v, ok, err)
	}
	if n, _ := v.(starlark.Int).Int64(); n != 1 {
		t.Errorf("Lookup(count) = %v, want 1 (first member wins)", v)
	}

	v, ok, _ = w.Lookup("name")
	if !ok || v != starlark.String("second") {
		t.Errorf("Lookup(name) = %v, %v, want second member's value", v, ok)
	}

	if _, ok, _ := w.Lookup("missing"); ok {
		t.Error("Lookup(missing) reported a match")
	}
}

func TestLookupStructMember(t *testing.T) {
	r := NewRegistry()
	r.Register(func() (starlark.Value, error) {
		return starlarkstruct.FromStringDict(starlark.String("api"), starlark.StringDict{
			"base_url": starlark.String("http://localhost"),
		}), nil
	})

	w, err := r.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	v, ok, err := w.Lookup("base_url")
	if err != nil || !ok || v != starlark.String("http://localhost") {
		t.Fatalf("Lookup(base_url) = %v, %v, %v", v, ok, err)
	}
}

func TestSetTargetsOwningMember(t *testing.T) {
	r := NewRegistry()
	r.Register(dictFactory(map[string]starlark.Value{"a": starlark.MakeInt(0)}))
	r.Register(dictFactory(map[string]starlark.Value{"b": starlark.MakeInt(0)}))

	w, err := r.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Existing key on the second member updates in place there.
	if err := w.Set("b", starlark.MakeInt(5)); err != nil {
		t.Fatalf("Set(b): %v", err)
	}
	v, ok, _ := w.Lookup("b")
	if !ok || v != starlark.MakeInt(5) {
		t.Errorf("after Set, Lookup(b) = %v, %v", v, ok)
	}

	// Unknown names land on the first dict member.
	if err := w.Set("fresh", starlark.String("x")); err != nil {
		t.Fatalf("Set(fresh): %v", err)
	}
	first := w.Members()[0].(*starlark.Dict)
	if _, found, _ := first.Get(starlark.String("fresh")); !found {
		t.Error("new name was not adopted by the first dict member")
	}
}

func TestSetWithoutDictMemberFails(t *testing.T) {
	r := NewRegistry()
	r.Register(func() (starlark.Value, error) { return starlark.String("opaque"), nil })
	w, err := r.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := w.Set("x", starlark.None); err == nil {
		t.Fatal("expected error assigning into a world with no settable member")
	}
}

func TestScenarioIsolation(t *testing.T) {
	r := NewRegistry()
	r.Register(dictFactory(map[string]starlark.Value{"count": starlark.MakeInt(0)}))

	w1, err := r.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := w1.Set("count", starlark.MakeInt(42)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// A rebuilt world starts from the factories, not from the previous
	// scenario's mutations.
	w2, err := r.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	v, ok, _ := w2.Lookup("count")
	if !ok || v != starlark.MakeInt(0) {
		t.Errorf("fresh world Lookup(count) = %v, want 0", v)
	}
}

func TestAttrNamesUnion(t *testing.T) {
	r := NewRegistry()
	r.Register(dictFactory(map[string]starlark.Value{"a": starlark.None}))
	r.Register(dictFactory(map[string]starlark.Value{"a": starlark.None, "b": starlark.None}))

	w, err := r.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	names := w.AttrNames()
	seen := make(map[string]int)
	for _, n := range names {
		seen[n]++
	}
	if seen["a"] != 1 || seen["b"] != 1 {
		t.Errorf("AttrNames() = %v, want a and b exactly once", names)
	}
}
