// Package timeout bounds the wall-clock time of a glue body invocation.
//
// A step or hook body is the only place where user code runs, so it is the
// only place that may block past its caller's expectation. Run executes the
// body on a worker goroutine and enforces a deadline; on expiry the worker is
// abandoned and its eventual result is discarded.
package timeout

import (
	"fmt"
	"time"
)

// Error reports that a body did not return before its deadline elapsed.
// It is a distinct failure kind from whatever the body itself may raise.
type Error struct {
	// Timeout is the configured deadline that elapsed.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("timed out after %v", e.Timeout)
}

// Run executes fn, enforcing a wall-clock deadline of millis milliseconds.
// A millis value of zero or less means no deadline: fn runs inline on the
// calling goroutine and its result is returned directly.
//
// With a deadline, fn runs on a worker goroutine. If the deadline elapses
// first, the optional cancel hook is called (best-effort: there is no
// guarantee the body stops promptly), a *Error is returned, and any result
// the abandoned worker later produces is dropped into a buffered channel
// that is never read, so it cannot be mistaken for the result of a later
// invocation.
func Run(millis int64, fn func() error, cancel func()) error {
	if millis <= 0 {
		return fn()
	}

	deadline := time.Duration(millis) * time.Millisecond

	// Buffered so the abandoned worker never blocks on send.
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		if cancel != nil {
			cancel()
		}
		return &Error{Timeout: deadline}
	}
}
