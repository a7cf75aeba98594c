package glue

import "sort"

// Table is an in-memory Registry. The host runner normally supplies its own
// sink; Table backs the CLI and tests, and is the reference for the
// matching and ordering contract: hooks matching a tag set are returned in
// ascending order, ties preserving registration order.
type Table struct {
	steps []*StepDefinition
	hooks map[HookKind][]*HookDefinition
}

// NewTable creates an empty glue table.
func NewTable() *Table {
	return &Table{hooks: make(map[HookKind][]*HookDefinition)}
}

// AddStepDefinition records a step definition.
func (t *Table) AddStepDefinition(def *StepDefinition) {
	t.steps = append(t.steps, def)
}

// AddBeforeHook records a before-scenario hook.
func (t *Table) AddBeforeHook(def *HookDefinition) { t.addHook(BeforeScenario, def) }

// AddAfterHook records an after-scenario hook.
func (t *Table) AddAfterHook(def *HookDefinition) { t.addHook(AfterScenario, def) }

// AddBeforeStepHook records a before-step hook.
func (t *Table) AddBeforeStepHook(def *HookDefinition) { t.addHook(BeforeStep, def) }

// AddAfterStepHook records an after-step hook.
func (t *Table) AddAfterStepHook(def *HookDefinition) { t.addHook(AfterStep, def) }

func (t *Table) addHook(kind HookKind, def *HookDefinition) {
	t.hooks[kind] = append(t.hooks[kind], def)
}

// Steps returns every registered step definition in registration order.
func (t *Table) Steps() []*StepDefinition {
	out := make([]*StepDefinition, len(t.steps))
	copy(out, t.steps)
	return out
}

// Hooks returns every registered hook of the given kind in registration
// order, regardless of tags.
func (t *Table) Hooks(kind HookKind) []*HookDefinition {
	defs := t.hooks[kind]
	out := make([]*HookDefinition, len(defs))
	copy(out, defs)
	return out
}

// MatchingHooks returns the hooks of the given kind whose predicate matches
// tags, sorted ascending by order; hooks with equal order keep their
// registration order.
func (t *Table) MatchingHooks(kind HookKind, tags []string) []*HookDefinition {
	var out []*HookDefinition
	for _, def := range t.hooks[kind] {
		if def.Matches(tags) {
			out = append(out, def)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order() < out[j].Order()
	})
	return out
}

// MatchStep returns the first step definition matching text along with its
// captured arguments. Ambiguity resolution belongs to the host runner;
// first-registered-wins is good enough for the CLI and tests.
func (t *Table) MatchStep(text string) (*StepDefinition, []string, bool) {
	for _, def := range t.steps {
		if captures, ok := def.Match(text); ok {
			return def, captures, true
		}
	}
	return nil, nil, false
}
