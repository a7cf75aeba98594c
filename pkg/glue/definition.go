package glue

import (
	"fmt"
	"regexp"

	"go.starlark.net/starlark"
)

// StepDefinition binds a step pattern to a Starlark body. Immutable after
// creation.
type StepDefinition struct {
	pattern       string
	re            *regexp.Regexp
	timeoutMillis int64
	body          starlark.Callable
	loc           Location
	types         *TypeRegistry
	invoker       Invoker
}

// NewStepDefinition compiles pattern and builds an immutable definition.
// A pattern that does not compile is a load-time failure.
func NewStepDefinition(pattern string, timeoutMillis int64, body starlark.Callable, loc Location, types *TypeRegistry, invoker Invoker) (*StepDefinition, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("step pattern %q: %w", pattern, err)
	}
	return &StepDefinition{
		pattern:       pattern,
		re:            re,
		timeoutMillis: timeoutMillis,
		body:          body,
		loc:           loc,
		types:         types,
		invoker:       invoker,
	}, nil
}

// Pattern returns the regexp source the definition was registered with.
func (d *StepDefinition) Pattern() string { return d.pattern }

// Location returns the registration source position as file:line.
func (d *StepDefinition) Location() string { return d.loc.String() }

// TimeoutMillis returns the execution deadline; zero or less means none.
func (d *StepDefinition) TimeoutMillis() int64 { return d.timeoutMillis }

// Match reports whether text matches the step pattern, returning the raw
// capture groups on success.
func (d *StepDefinition) Match(text string) ([]string, bool) {
	m := d.re.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	return m[1:], true
}

// Execute invokes the body with the pattern-matched arguments, converted
// through the definition's type registry. Steps receive matched arguments
// only; the scenario context is reserved for hooks.
func (d *StepDefinition) Execute(captures ...string) error {
	return d.invoker.Invoke(d.body, d.timeoutMillis, d.types.Convert(captures)...)
}

// HookDefinition binds a scenario or step lifecycle point to a Starlark
// body, gated by a tag predicate and an ordering key. Immutable after
// creation.
type HookDefinition struct {
	kind          HookKind
	predicate     TagPredicate
	timeoutMillis int64
	order         int
	body          starlark.Callable
	loc           Location
	invoker       Invoker
}

// NewHookDefinition builds an immutable hook definition. A nil predicate
// matches every scenario.
func NewHookDefinition(kind HookKind, predicate TagPredicate, timeoutMillis int64, order int, body starlark.Callable, loc Location, invoker Invoker) *HookDefinition {
	return &HookDefinition{
		kind:          kind,
		predicate:     predicate,
		timeoutMillis: timeoutMillis,
		order:         order,
		body:          body,
		loc:           loc,
		invoker:       invoker,
	}
}

// Kind returns the lifecycle point this hook is bound to.
func (d *HookDefinition) Kind() HookKind { return d.kind }

// Location returns the registration source position as file:line.
func (d *HookDefinition) Location() string { return d.loc.String() }

// TimeoutMillis returns the execution deadline; zero or less means none.
func (d *HookDefinition) TimeoutMillis() int64 { return d.timeoutMillis }

// Order returns the ordering key; lower values execute first among hooks
// matching a scenario.
func (d *HookDefinition) Order() int { return d.order }

// Matches reports whether the hook applies to a scenario with the given
// tag set. An absent predicate matches unconditionally.
func (d *HookDefinition) Matches(tags []string) bool {
	if d.predicate == nil {
		return true
	}
	return d.predicate.Matches(tags)
}

// ScenarioScoped reports whether the hook is recreated per scenario. Hooks
// registered through this backend are suite-lifetime objects.
func (d *HookDefinition) ScenarioScoped() bool { return false }

// Execute invokes the body with the scenario context as its one argument.
func (d *HookDefinition) Execute(sc *Scenario) error {
	return d.invoker.Invoke(d.body, d.timeoutMillis, sc.Value())
}
