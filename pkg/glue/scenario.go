package glue

import (
	"github.com/google/uuid"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// Scenario is the per-scenario context the host runner threads through hook
// execution. It carries identity and the tag set used for hook matching.
type Scenario struct {
	id   uuid.UUID
	name string
	tags []string
}

// NewScenario creates a scenario context with a fresh identity.
func NewScenario(name string, tags ...string) *Scenario {
	return &Scenario{id: uuid.New(), name: name, tags: tags}
}

// ID returns the scenario's unique identifier.
func (s *Scenario) ID() string { return s.id.String() }

// Name returns the scenario name as reported by the host runner.
func (s *Scenario) Name() string { return s.name }

// Tags returns the scenario's tag set.
func (s *Scenario) Tags() []string {
	out := make([]string, len(s.tags))
	copy(out, s.tags)
	return out
}

// Value renders the scenario as a read-only Starlark struct with id, name
// and tags attributes, the shape hook bodies receive as their argument.
func (s *Scenario) Value() starlark.Value {
	tags := make([]starlark.Value, len(s.tags))
	for i, t := range s.tags {
		tags[i] = starlark.String(t)
	}
	tagList := starlark.NewList(tags)
	tagList.Freeze()

	return starlarkstruct.FromStringDict(starlark.String("scenario"), starlark.StringDict{
		"id":   starlark.String(s.id.String()),
		"name": starlark.String(s.name),
		"tags": tagList,
	})
}
