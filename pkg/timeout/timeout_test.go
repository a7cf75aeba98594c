package timeout

import (
	"errors"
	"testing"
	"time"
)

func TestRunNoDeadline(t *testing.T) {
	tests := []struct {
		name   string
		millis int64
	}{
		{"zero means no deadline", 0},
		{"negative means no deadline", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ran := false
			err := Run(tt.millis, func() error {
				ran = true
				return nil
			}, nil)
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			if !ran {
				t.Error("body did not run")
			}
		})
	}
}

func TestRunReturnsBodyError(t *testing.T) {
	want := errors.New("body failed")
	err := Run(500, func() error { return want }, nil)
	if !errors.Is(err, want) {
		t.Errorf("Run returned %v, want %v", err, want)
	}
}

func TestRunDeadlineElapses(t *testing.T) {
	start := time.Now()
	canceled := false

	err := Run(50, func() error {
		time.Sleep(2 * time.Second)
		return errors.New("late result, must be discarded")
	}, func() { canceled = true })

	elapsed := time.Since(start)

	var te *Error
	if !errors.As(err, &te) {
		t.Fatalf("Run returned %v, want *timeout.Error", err)
	}
	if te.Timeout != 50*time.Millisecond {
		t.Errorf("Error.Timeout = %v, want 50ms", te.Timeout)
	}
	if !canceled {
		t.Error("cancel hook was not called")
	}
	// The caller must get control back near the deadline, not when the
	// abandoned body eventually finishes.
	if elapsed > time.Second {
		t.Errorf("Run blocked for %v past its deadline", elapsed)
	}
}

func TestRunBodyFinishesFirst(t *testing.T) {
	err := Run(5000, func() error {
		time.Sleep(5 * time.Millisecond)
		return nil
	}, func() { t.Error("cancel hook called though body finished in time") })
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}
