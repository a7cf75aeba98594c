package backend

import (
	"errors"
	"fmt"
)

// ErrNoWorld reports a world-dependent operation outside the scenario
// window: the backend is not between BuildWorld and DisposeWorld.
var ErrNoWorld = errors.New("no scenario in progress")

// ErrGlueAlreadyLoaded reports a second LoadGlue on the same backend.
var ErrGlueAlreadyLoaded = errors.New("glue already loaded")

// ErrGlueNotLoaded reports a scenario operation before LoadGlue.
var ErrGlueNotLoaded = errors.New("glue not loaded")

// ErrWorldExists reports BuildWorld while the previous scenario's world
// has not been disposed.
var ErrWorldExists = errors.New("world already built for current scenario")

// LoadError is the adapter-level failure wrapping whatever broke a glue
// load: resource I/O, compilation, or a unit's top-level execution. A load
// failure is fatal to the run; there is no partial-load recovery.
type LoadError struct {
	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("load glue: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error { return e.Err }
