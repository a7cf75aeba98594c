// Package backend wires glue loading, world lifecycle and body invocation
// into the adapter a BDD host runner drives. One Backend serves one runner
// goroutine; a host running scenarios in parallel creates one backend per
// worker, which is what replaces the original design's thread-local
// singleton. Registration data is written only during LoadGlue and is
// read-only afterwards. World state still needs a lock: a worker abandoned
// at its deadline can outlive the scenario that started it, so lifecycle
// state is mutex-guarded and each invocation pins the world it started
// with.
package backend

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.starlark.net/starlark"

	"github.com/starglue/starglue/pkg/glue"
	"github.com/starglue/starglue/pkg/script"
	"github.com/starglue/starglue/pkg/telemetry"
	"github.com/starglue/starglue/pkg/timeout"
	"github.com/starglue/starglue/pkg/world"
)

type state int

const (
	stateUninitialized state = iota
	stateGlueLoaded
	stateWorldBuilt
	stateWorldDisposed
)

// Options configures a Backend. Glue is the host runner's sink and is
// required; everything else has a working default.
type Options struct {
	// Glue receives the definitions discovered during LoadGlue.
	Glue glue.Registry

	// Resources resolves glue paths. Defaults to a MultiLoader with no
	// classpath mounts.
	Resources script.ResourceLoader

	// Units holds precompiled glue. Optional.
	Units *script.UnitRegistry

	// Types converts step captures to typed arguments. Defaults to the
	// built-in registry.
	Types *glue.TypeRegistry

	// DefaultTimeoutMillis applies to definitions registered without an
	// explicit timeout. Zero or less means unbounded.
	DefaultTimeoutMillis int64

	Logger  zerolog.Logger
	Metrics *telemetry.Metrics
	Tracer  trace.Tracer
}

// Backend is the adapter instance. Its lifecycle is
// LoadGlue once, then BuildWorld/DisposeWorld once per scenario, with
// Invoke valid only while a world exists.
type Backend struct {
	glue           glue.Registry
	types          *glue.TypeRegistry
	defaultTimeout int64

	engine *script.Engine
	loader *script.Loader
	worlds *world.Registry

	// mu guards cur, st and bound against a worker that keeps running
	// after its deadline while the runner goroutine moves on.
	mu    sync.Mutex
	cur   *world.World
	st    state
	bound *world.World // world pinned to the in-flight invocation

	logger  zerolog.Logger
	metrics *telemetry.Metrics
	tracer  trace.Tracer
}

// New creates a backend around the host runner's glue sink.
func New(opts Options) *Backend {
	if opts.Resources == nil {
		opts.Resources = script.NewMultiLoader()
	}
	if opts.Types == nil {
		opts.Types = glue.NewTypeRegistry()
	}

	b := &Backend{
		glue:           opts.Glue,
		types:          opts.Types,
		defaultTimeout: opts.DefaultTimeoutMillis,
		worlds:         world.NewRegistry(),
		logger:         opts.Logger.With().Str("component", "backend").Logger(),
		metrics:        opts.Metrics,
		tracer:         opts.Tracer,
	}
	b.engine = script.NewEngine(b, b, opts.Logger)
	b.loader = script.NewLoader(b.engine, opts.Resources, opts.Units, opts.Logger)
	return b
}

// LoadGlue discovers and executes every glue unit under gluePaths, exactly
// once per backend. The scripts register definitions back through this
// backend into the glue sink. Any failure is wrapped in a *LoadError and is
// fatal to the run.
func (b *Backend) LoadGlue(ctx context.Context, gluePaths []string) error {
	b.mu.Lock()
	if b.st != stateUninitialized {
		b.mu.Unlock()
		return ErrGlueAlreadyLoaded
	}
	b.mu.Unlock()

	start := time.Now()
	if err := b.loader.LoadGlue(ctx, gluePaths); err != nil {
		return &LoadError{Err: err}
	}
	b.mu.Lock()
	b.st = stateGlueLoaded
	b.mu.Unlock()
	b.metrics.RecordGlueLoad(len(gluePaths), time.Since(start).Seconds())

	b.logger.Info().
		Int("paths", len(gluePaths)).
		Int("world_factories", b.worlds.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("Glue loaded")
	return nil
}

// BuildWorld constructs a fresh world from the registered factories. Called
// by the host once at scenario start; a factory failure aborts scenario
// setup and propagates.
func (b *Backend) BuildWorld() error {
	b.mu.Lock()
	switch b.st {
	case stateUninitialized:
		b.mu.Unlock()
		return ErrGlueNotLoaded
	case stateWorldBuilt:
		b.mu.Unlock()
		return ErrWorldExists
	}
	b.mu.Unlock()

	// Factories run script code; the lock is not held across them.
	w, err := b.worlds.Build()
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.cur = w
	b.st = stateWorldBuilt
	b.mu.Unlock()
	return nil
}

// DisposeWorld discards the current world at scenario end. Objects in the
// world get no explicit cleanup; they simply become unreachable.
func (b *Backend) DisposeWorld() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.st != stateWorldBuilt {
		return ErrNoWorld
	}
	b.cur = nil
	b.st = stateWorldDisposed
	return nil
}

// CurrentWorld returns the scenario's world for the host's own use. Valid
// only between BuildWorld and DisposeWorld.
func (b *Backend) CurrentWorld() (*world.World, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.st != stateWorldBuilt || b.cur == nil {
		return nil, ErrNoWorld
	}
	return b.cur, nil
}

// InvocationWorld returns the world pinned by the invocation in flight.
// Glue bodies resolve their world delegate through here, never through the
// live scenario state: a worker abandoned at its deadline finds its binding
// cleared and fails with ErrNoWorld instead of reaching whatever world a
// later scenario has built.
func (b *Backend) InvocationWorld() (*world.World, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bound == nil {
		return nil, ErrNoWorld
	}
	return b.bound, nil
}

// Invoke executes a glue body with the current world reachable as its
// delegate, under the configured deadline. An engine-wrapped failure is
// unwrapped so the host reports what the user's code actually raised; a
// deadline expiry yields a *timeout.Error instead of the body's eventual
// result, the worker's world binding is revoked, and its late result is
// discarded.
func (b *Backend) Invoke(body starlark.Callable, timeoutMillis int64, args ...starlark.Value) error {
	b.mu.Lock()
	if b.st != stateWorldBuilt {
		b.mu.Unlock()
		return ErrNoWorld
	}
	b.bound = b.cur
	b.mu.Unlock()

	var span trace.Span
	if b.tracer != nil {
		_, span = b.tracer.Start(context.Background(), "glue.invoke",
			trace.WithAttributes(attribute.String("glue.body", body.Name())))
		defer span.End()
	}

	// A fresh thread per call keeps an abandoned worker's interpreter
	// state away from later invocations.
	thread := b.engine.NewThread("invoke:" + body.Name())

	start := time.Now()
	err := timeout.Run(timeoutMillis, func() error {
		_, callErr := starlark.Call(thread, body, starlark.Tuple(args), nil)
		return unwrapEvalError(callErr)
	}, func() {
		// Revoke the abandoned worker's world binding before cancelling;
		// anything it still does after the deadline must not see a world.
		b.mu.Lock()
		b.bound = nil
		b.mu.Unlock()
		thread.Cancel("deadline elapsed")
	})
	b.mu.Lock()
	b.bound = nil
	b.mu.Unlock()

	b.metrics.RecordInvocation(invocationResult(err), time.Since(start).Seconds())
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// RegisterStep builds a step definition and forwards it to the glue sink.
// Called by the step builtins while glue scripts execute.
func (b *Backend) RegisterStep(pattern string, timeoutMillis int64, loc glue.Location, body starlark.Callable) error {
	def, err := glue.NewStepDefinition(pattern, b.effectiveTimeout(timeoutMillis), body, loc, b.types, b)
	if err != nil {
		return err
	}
	b.glue.AddStepDefinition(def)
	b.metrics.RecordDefinition("step")
	b.logger.Debug().Str("pattern", pattern).Str("location", loc.String()).Msg("Step definition registered")
	return nil
}

// RegisterHook builds a hook definition and forwards it to the glue sink
// for its lifecycle point.
func (b *Backend) RegisterHook(kind glue.HookKind, tagExpr string, order int, timeoutMillis int64, loc glue.Location, body starlark.Callable) error {
	pred, err := glue.ParseTagExpression(tagExpr)
	if err != nil {
		return err
	}
	def := glue.NewHookDefinition(kind, pred, b.effectiveTimeout(timeoutMillis), order, body, loc, b)

	switch kind {
	case glue.BeforeScenario:
		b.glue.AddBeforeHook(def)
	case glue.AfterScenario:
		b.glue.AddAfterHook(def)
	case glue.BeforeStep:
		b.glue.AddBeforeStepHook(def)
	case glue.AfterStep:
		b.glue.AddAfterStepHook(def)
	}
	b.metrics.RecordDefinition(string(kind))
	b.logger.Debug().Str("kind", string(kind)).Str("location", loc.String()).Int("order", order).Msg("Hook registered")
	return nil
}

// RegisterWorldFactory records a world factory for per-scenario
// construction. Factories run in registration order; duplicates are
// allowed.
func (b *Backend) RegisterWorldFactory(body starlark.Callable) {
	b.worlds.Register(func() (starlark.Value, error) {
		thread := b.engine.NewThread("world-factory:" + body.Name())
		v, err := starlark.Call(thread, body, nil, nil)
		if err != nil {
			return nil, unwrapEvalError(err)
		}
		return v, nil
	})
	b.metrics.RecordDefinition("world")
}

func (b *Backend) effectiveTimeout(timeoutMillis int64) int64 {
	if timeoutMillis == 0 {
		return b.defaultTimeout
	}
	return timeoutMillis
}

// unwrapEvalError strips the engine's invocation wrapper. A Go-side failure
// crossing the interpreter arrives wrapped in *starlark.EvalError; the host
// must see the original cause. Script-level failures (fail(), type errors)
// have no wrapped cause and pass through with their backtrace intact, as do
// all non-engine failures.
func unwrapEvalError(err error) error {
	if ee, ok := err.(*starlark.EvalError); ok {
		if cause := ee.Unwrap(); cause != nil {
			return cause
		}
	}
	return err
}

func invocationResult(err error) string {
	switch err.(type) {
	case nil:
		return "ok"
	case *timeout.Error:
		return "timeout"
	default:
		return "error"
	}
}
