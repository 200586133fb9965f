package dispatch

import (
	"context"
	"time"
)

// Simulator is the injectable stand-in for real travel and service time.
// Production uses a timer-backed simulator; tests can substitute an instant
// one so suites run at full speed.
type Simulator interface {
	// Sleep blocks for d or until ctx is cancelled, in which case it
	// returns the context's error.
	Sleep(ctx context.Context, d time.Duration) error
}

// timerSimulator sleeps on a real timer, honoring cancellation.
type timerSimulator struct{}

// NewTimerSimulator returns the production Simulator backed by time.Timer.
func NewTimerSimulator() Simulator {
	return timerSimulator{}
}

func (timerSimulator) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// instantSimulator completes every delay immediately.
type instantSimulator struct{}

// NewInstantSimulator returns a Simulator whose delays complete immediately.
// Intended for tests and dry runs.
func NewInstantSimulator() Simulator {
	return instantSimulator{}
}

func (instantSimulator) Sleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
