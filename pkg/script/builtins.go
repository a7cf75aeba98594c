package script

import (
	"errors"
	"fmt"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/starglue/starglue/pkg/glue"
)

// ErrNoScriptLocation reports a registration reached from a call stack with
// no Starlark source frame. That is a misuse of the adapter API by the
// embedding program, not a user data error.
var ErrNoScriptLocation = errors.New("no .star frame on the registering call stack")

// builtins assembles the predeclared environment glue scripts see.
func builtins(reg Registrar, ws WorldSource) starlark.StringDict {
	env := starlark.StringDict{
		"struct":         starlark.NewBuiltin("struct", starlarkstruct.Make),
		"world":          &worldProxy{source: ws},
		"register_world": starlark.NewBuiltin("register_world", registerWorldBuiltin(reg)),
	}

	// given/when/then are aliases: the Gherkin keyword carries no meaning
	// at registration time.
	step := starlark.NewBuiltin("step", stepBuiltin(reg))
	for _, alias := range []string{"step", "given", "when", "then"} {
		env[alias] = step
	}

	hooks := map[string]glue.HookKind{
		"before":      glue.BeforeScenario,
		"after":       glue.AfterScenario,
		"before_step": glue.BeforeStep,
		"after_step":  glue.AfterStep,
	}
	for name, kind := range hooks {
		env[name] = starlark.NewBuiltin(name, hookBuiltin(reg, kind))
	}

	return env
}

func stepBuiltin(reg Registrar) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var (
			pattern string
			body    starlark.Value
			timeout int64
		)
		if err := starlark.UnpackArgs(b.Name(), args, kwargs,
			"pattern", &pattern, "body", &body, "timeout?", &timeout); err != nil {
			return nil, err
		}

		callable, ok := body.(starlark.Callable)
		if !ok {
			return nil, fmt.Errorf("%s: body must be callable, got %s", b.Name(), body.Type())
		}

		loc, err := scriptLocation(thread)
		if err != nil {
			return nil, err
		}
		if err := reg.RegisterStep(pattern, timeout, loc, callable); err != nil {
			return nil, err
		}
		return starlark.None, nil
	}
}

func hookBuiltin(reg Registrar, kind glue.HookKind) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var (
			body    starlark.Value
			tags    string
			order   int
			timeout int64
		)
		if err := starlark.UnpackArgs(b.Name(), args, kwargs,
			"body", &body, "tags?", &tags, "order?", &order, "timeout?", &timeout); err != nil {
			return nil, err
		}

		callable, ok := body.(starlark.Callable)
		if !ok {
			return nil, fmt.Errorf("%s: body must be callable, got %s", b.Name(), body.Type())
		}

		loc, err := scriptLocation(thread)
		if err != nil {
			return nil, err
		}
		if err := reg.RegisterHook(kind, tags, order, timeout, loc, callable); err != nil {
			return nil, err
		}
		return starlark.None, nil
	}
}

func registerWorldBuiltin(reg Registrar) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var body starlark.Value
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "factory", &body); err != nil {
			return nil, err
		}
		callable, ok := body.(starlark.Callable)
		if !ok {
			return nil, fmt.Errorf("%s: factory must be callable, got %s", b.Name(), body.Type())
		}
		reg.RegisterWorldFactory(callable)
		return starlark.None, nil
	}
}

// scriptLocation walks the call stack innermost-first and returns the
// position of the first frame whose source file is a Starlark script. The
// adapter's own Go frames never carry the suffix, so the reported location
// is always the user's registration site.
func scriptLocation(thread *starlark.Thread) (glue.Location, error) {
	stack := thread.CallStack()
	for i := len(stack) - 1; i >= 0; i-- {
		pos := stack[i].Pos
		if strings.HasSuffix(pos.Filename(), SourceSuffix) {
			return glue.Location{File: pos.Filename(), Line: pos.Line}, nil
		}
	}
	return glue.Location{}, ErrNoScriptLocation
}

// worldProxy is the predeclared world value. Attribute access resolves
// against the world pinned to the running invocation, member order
// first-match; outside an invocation, or from a worker abandoned at its
// deadline, any access fails.
type worldProxy struct {
	source WorldSource
}

func (p *worldProxy) String() string        { return "<world>" }
func (p *worldProxy) Type() string          { return "world" }
func (p *worldProxy) Freeze()               {} // confined to one backend goroutine
func (p *worldProxy) Truth() starlark.Bool  { return starlark.True }
func (p *worldProxy) Hash() (uint32, error) { return 0, errors.New("unhashable type: world") }

// Attr resolves name against the invocation's world, first member wins.
func (p *worldProxy) Attr(name string) (starlark.Value, error) {
	w, err := p.source.InvocationWorld()
	if err != nil {
		return nil, err
	}
	v, ok, err := w.Lookup(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, starlark.NoSuchAttrError(fmt.Sprintf("world has no member %q", name))
	}
	return v, nil
}

// AttrNames lists the union of the invocation world's member names.
func (p *worldProxy) AttrNames() []string {
	w, err := p.source.InvocationWorld()
	if err != nil {
		return nil
	}
	return w.AttrNames()
}

// SetField assigns name on the first world member exposing it.
func (p *worldProxy) SetField(name string, v starlark.Value) error {
	w, err := p.source.InvocationWorld()
	if err != nil {
		return err
	}
	return w.Set(name, v)
}
