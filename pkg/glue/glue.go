// Package glue holds the registry model for step definitions and lifecycle
// hooks discovered from Starlark glue scripts. Definitions are immutable
// after creation and are handed to the host runner's glue sink; the host
// decides matching ambiguity, this package only guarantees shape and
// ordering semantics.
package glue

import (
	"fmt"

	"go.starlark.net/starlark"
)

// HookKind identifies the lifecycle point a hook is bound to.
type HookKind string

const (
	// BeforeScenario hooks run before each scenario that matches their tags.
	BeforeScenario HookKind = "before"
	// AfterScenario hooks run after each scenario that matches their tags.
	AfterScenario HookKind = "after"
	// BeforeStep hooks run before each step of a matching scenario.
	BeforeStep HookKind = "before_step"
	// AfterStep hooks run after each step of a matching scenario.
	AfterStep HookKind = "after_step"
)

// Location is the source position a definition was registered from,
// captured from the innermost Starlark frame of the registering call stack.
type Location struct {
	File string
	Line int32
}

// String renders the location in the host runner's file:line convention.
func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Invoker executes a glue body with the current scenario's world bound as
// the body's delegate. Implemented by the backend; definitions hold one so
// execution always flows through the dispatcher (timeout, unwrapping,
// world binding).
type Invoker interface {
	Invoke(body starlark.Callable, timeoutMillis int64, args ...starlark.Value) error
}

// Registry is the host runner's glue sink. Each add method accepts a fully
// built definition; definitions are never mutated after registration, and
// re-registration under the same pattern or predicate produces independent
// entries.
type Registry interface {
	AddStepDefinition(def *StepDefinition)
	AddBeforeHook(def *HookDefinition)
	AddAfterHook(def *HookDefinition)
	AddBeforeStepHook(def *HookDefinition)
	AddAfterStepHook(def *HookDefinition)
}
