package script

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"
	"go.starlark.net/starlark"

	"github.com/starglue/starglue/pkg/glue"
	"github.com/starglue/starglue/pkg/world"
)

// fakeRegistrar records registrations without a backend.
type fakeRegistrar struct {
	steps     []string
	hooks     []glue.HookKind
	factories int
	locs      []glue.Location
}

func (f *fakeRegistrar) RegisterStep(pattern string, timeoutMillis int64, loc glue.Location, body starlark.Callable) error {
	f.steps = append(f.steps, pattern)
	f.locs = append(f.locs, loc)
	return nil
}

func (f *fakeRegistrar) RegisterHook(kind glue.HookKind, tagExpr string, order int, timeoutMillis int64, loc glue.Location, body starlark.Callable) error {
	f.hooks = append(f.hooks, kind)
	f.locs = append(f.locs, loc)
	return nil
}

func (f *fakeRegistrar) RegisterWorldFactory(body starlark.Callable) {
	f.factories++
}

type noWorld struct{}

func (noWorld) InvocationWorld() (*world.World, error) {
	return nil, errors.New("no scenario in progress")
}

func newTestLoader(resources ResourceLoader, units *UnitRegistry) (*Loader, *fakeRegistrar) {
	reg := &fakeRegistrar{}
	engine := NewEngine(reg, noWorld{}, zerolog.Nop())
	return NewLoader(engine, resources, units, zerolog.Nop()), reg
}

func writeFile(t *testing.T, dir, name, src string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
}

const trivialStep = `
def f():
    pass

step("^x$", f)
`

func TestLoadGlueFromFilesystem(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.star", trivialStep)
	writeFile(t, dir, "nested/two.star", `
def g():
    pass

when("^y$", g)
before(g, tags="@t")
register_world(lambda: {})
`)
	writeFile(t, dir, "ignored.txt", "not glue")

	loader, reg := newTestLoader(NewMultiLoader(), nil)
	if err := loader.LoadGlue(context.Background(), []string{dir}); err != nil {
		t.Fatalf("LoadGlue: %v", err)
	}

	if len(reg.steps) != 2 {
		t.Errorf("steps = %v, want 2 registrations", reg.steps)
	}
	if len(reg.hooks) != 1 || reg.hooks[0] != glue.BeforeScenario {
		t.Errorf("hooks = %v", reg.hooks)
	}
	if reg.factories != 1 {
		t.Errorf("factories = %d, want 1", reg.factories)
	}
}

func TestLoadGlueClasspathFallback(t *testing.T) {
	mount := fstest.MapFS{
		"embedded/steps/s.star": &fstest.MapFile{Data: []byte(trivialStep)},
	}
	loader, reg := newTestLoader(NewMultiLoader(mount), nil)

	// Plain path unresolvable on the OS filesystem; second tier finds it.
	if err := loader.LoadGlue(context.Background(), []string{"embedded/steps"}); err != nil {
		t.Fatalf("LoadGlue: %v", err)
	}
	if len(reg.steps) != 1 {
		t.Errorf("steps = %v, want 1", reg.steps)
	}
}

func TestLoadGlueBothTiersFail(t *testing.T) {
	loader, _ := newTestLoader(NewMultiLoader(), nil)
	err := loader.LoadGlue(context.Background(), []string{"missing/path"})
	if !errors.Is(err, ErrUnresolvable) {
		t.Fatalf("LoadGlue = %v, want ErrUnresolvable", err)
	}
}

func TestLoadGlueRunsCompiledUnits(t *testing.T) {
	units := NewUnitRegistry()
	u, err := CompileUnit("support/http.star", []byte(trivialStep))
	if err != nil {
		t.Fatalf("CompileUnit: %v", err)
	}
	units.Register("features.steps", u)
	// A second glue path reaching the same unit must not rerun it.
	units.Register("features.api", u)

	dir := t.TempDir()
	writeFile(t, dir, "features/steps/.keep.star", "")
	writeFile(t, dir, "features/api/.keep.star", "")

	loader, reg := newTestLoader(NewMultiLoader(os.DirFS(dir)), nil)
	loader.units = units

	paths := []string{"classpath:features/steps", "classpath:features/api"}
	if err := loader.LoadGlue(context.Background(), paths); err != nil {
		t.Fatalf("LoadGlue: %v", err)
	}
	if len(reg.steps) != 1 {
		t.Errorf("compiled unit ran %d times, want exactly once", len(reg.steps))
	}
}

func TestCompileUnitSyntaxError(t *testing.T) {
	if _, err := CompileUnit("bad.star", []byte("def f(:\n")); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestEngineSharedContext(t *testing.T) {
	reg := &fakeRegistrar{}
	e := NewEngine(reg, noWorld{}, zerolog.Nop())

	if err := e.ExecSource("lib.star", []byte("GREETING = 'hello'\n")); err != nil {
		t.Fatalf("ExecSource lib: %v", err)
	}
	// The later unit sees the earlier unit's global.
	if err := e.ExecSource("use.star", []byte(`
def f():
    pass

step("^" + GREETING + "$", f)
`)); err != nil {
		t.Fatalf("ExecSource use: %v", err)
	}
	if len(reg.steps) != 1 || reg.steps[0] != "^hello$" {
		t.Errorf("steps = %v, want pattern built from shared global", reg.steps)
	}
}

func TestEngineExecOnce(t *testing.T) {
	reg := &fakeRegistrar{}
	e := NewEngine(reg, noWorld{}, zerolog.Nop())

	src := []byte(trivialStep)
	if err := e.ExecSource("same.star", src); err != nil {
		t.Fatal(err)
	}
	if err := e.ExecSource("same.star", src); err != nil {
		t.Fatal(err)
	}
	if len(reg.steps) != 1 {
		t.Errorf("unit executed %d times, want once", len(reg.steps))
	}
	if !e.Executed("same.star") {
		t.Error("Executed(same.star) = false")
	}
}

func TestRegistrationFromHelperFunction(t *testing.T) {
	reg := &fakeRegistrar{}
	e := NewEngine(reg, noWorld{}, zerolog.Nop())

	// Registration goes through a helper; the captured location is still a
	// .star frame, the innermost one.
	err := e.ExecSource("helpers.star", []byte(`
def define(pattern):
    def f():
        pass
    step(pattern, f)

define("^via helper$")
`))
	if err != nil {
		t.Fatalf("ExecSource: %v", err)
	}
	if len(reg.locs) != 1 {
		t.Fatalf("got %d locations", len(reg.locs))
	}
	if reg.locs[0].File != "helpers.star" || reg.locs[0].Line != 5 {
		t.Errorf("location = %v, want helpers.star:5 (the step call site)", reg.locs[0])
	}
}

func TestRegistrationOutsideScriptFrameFails(t *testing.T) {
	reg := &fakeRegistrar{}
	e := NewEngine(reg, noWorld{}, zerolog.Nop())

	// A unit whose filename lacks the script suffix has no .star frame on
	// the registering stack: an adapter misuse, not a user data error.
	err := e.ExecSource("generated.txt", []byte(trivialStep))
	if !errors.Is(err, ErrNoScriptLocation) {
		t.Fatalf("ExecSource = %v, want ErrNoScriptLocation", err)
	}
}
