package script

import (
	"fmt"

	"github.com/rs/zerolog"
	"go.starlark.net/starlark"

	"github.com/starglue/starglue/pkg/glue"
	"github.com/starglue/starglue/pkg/world"
)

// Registrar receives the definitions glue scripts declare. The backend
// implements it; passing it in explicitly is what replaces the original
// design's ambient thread-local registry lookup.
type Registrar interface {
	RegisterStep(pattern string, timeoutMillis int64, loc glue.Location, body starlark.Callable) error
	RegisterHook(kind glue.HookKind, tagExpr string, order int, timeoutMillis int64, loc glue.Location, body starlark.Callable) error
	RegisterWorldFactory(body starlark.Callable)
}

// WorldSource yields the world pinned to the invocation in flight.
// Resolution through the source rather than a captured value is what lets
// the predeclared world proxy track the scenario lifecycle; the source in
// turn keeps a worker that overran its deadline away from any later
// scenario's world.
type WorldSource interface {
	InvocationWorld() (*world.World, error)
}

// Engine executes Starlark glue units against one shared mutable global
// context. Not safe for concurrent use; one engine belongs to one backend.
type Engine struct {
	predeclared starlark.StringDict
	shared      starlark.StringDict
	executed    map[string]bool
	logger      zerolog.Logger
}

// NewEngine creates an engine whose registration builtins forward to reg
// and whose world proxy resolves through ws.
func NewEngine(reg Registrar, ws WorldSource, logger zerolog.Logger) *Engine {
	return &Engine{
		predeclared: builtins(reg, ws),
		shared:      make(starlark.StringDict),
		executed:    make(map[string]bool),
		logger:      logger.With().Str("component", "script-engine").Logger(),
	}
}

// NewThread creates a thread whose print output lands in the engine's
// logger.
func (e *Engine) NewThread(name string) *starlark.Thread {
	return &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			e.logger.Info().Str("unit", name).Msg(msg)
		},
	}
}

// ExecSource executes one glue source, identified by its canonical path.
// A source already executed in this run is skipped, so two glue paths
// resolving to the same resource run its top level exactly once.
func (e *Engine) ExecSource(path string, src []byte) error {
	if e.executed[path] {
		e.logger.Debug().Str("unit", path).Msg("Glue unit already executed, skipping")
		return nil
	}

	thread := e.NewThread(path)
	globals, err := starlark.ExecFile(thread, path, src, e.env())
	if err != nil {
		return fmt.Errorf("execute %s: %w", path, err)
	}

	e.executed[path] = true
	e.merge(globals)
	return nil
}

// RunUnit executes a precompiled unit, with the same run-once guarantee
// keyed by the unit's name.
func (e *Engine) RunUnit(u *Unit) error {
	if e.executed[u.Name()] {
		e.logger.Debug().Str("unit", u.Name()).Msg("Glue unit already executed, skipping")
		return nil
	}

	thread := e.NewThread(u.Name())
	globals, err := u.prog.Init(thread, e.env())
	if err != nil {
		return fmt.Errorf("execute %s: %w", u.Name(), err)
	}

	e.executed[u.Name()] = true
	e.merge(globals)
	return nil
}

// Executed reports whether the unit with the given identity has run.
func (e *Engine) Executed(id string) bool { return e.executed[id] }

// env is the environment the next unit executes against: the builtins
// overlaid with everything earlier units exported.
func (e *Engine) env() starlark.StringDict {
	env := make(starlark.StringDict, len(e.predeclared)+len(e.shared))
	for k, v := range e.predeclared {
		env[k] = v
	}
	for k, v := range e.shared {
		env[k] = v
	}
	return env
}

func (e *Engine) merge(globals starlark.StringDict) {
	for k, v := range globals {
		e.shared[k] = v
	}
}
