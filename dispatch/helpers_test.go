package dispatch_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nuberhq/nuber/dispatch"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not reached within %v: %s", timeout, msg)
}

// gateSim blocks every simulated delay until the test feeds it a token,
// so tests control exactly when pickup and transport phases complete.
type gateSim struct {
	tokens chan struct{}
}

func newGateSim() *gateSim {
	return &gateSim{tokens: make(chan struct{}, 1024)}
}

// allow lets n blocked (or future) Sleep calls proceed.
func (s *gateSim) allow(n int) {
	for range n {
		s.tokens <- struct{}{}
	}
}

func (s *gateSim) Sleep(ctx context.Context, _ time.Duration) error {
	select {
	case <-s.tokens:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// concurrencySim counts how many Sleep calls overlap, so tests can assert
// admission caps and worker exclusivity.
type concurrencySim struct {
	mu      sync.Mutex
	current int
	peak    int
}

func (s *concurrencySim) Sleep(ctx context.Context, _ time.Duration) error {
	s.mu.Lock()
	s.current++
	if s.current > s.peak {
		s.peak = s.current
	}
	s.mu.Unlock()

	time.Sleep(time.Millisecond)

	s.mu.Lock()
	s.current--
	s.mu.Unlock()
	return ctx.Err()
}

func (s *concurrencySim) Peak() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

// newTestDispatcher builds a dispatcher with fast acquisition settings and
// the given simulator.
func newTestDispatcher(t *testing.T, regions map[string]int, sim dispatch.Simulator, extra ...dispatch.Option) *dispatch.Dispatcher {
	t.Helper()
	opts := append([]dispatch.Option{
		dispatch.WithAcquireTimeout(50 * time.Millisecond),
		dispatch.WithAcquireAttempts(3),
		dispatch.WithGracePeriod(2 * time.Second),
		dispatch.WithSimulator(sim),
	}, extra...)

	d, err := dispatch.NewDispatcher(regions, opts...)
	if err != nil {
		t.Fatalf("failed to build dispatcher: %v", err)
	}
	return d
}

func addWorkers(d *dispatch.Dispatcher, n int) {
	for i := range n {
		d.AddWorker(dispatch.NewWorker(workerName(i), 0))
	}
}

func workerName(i int) string {
	return "worker-" + string(rune('a'+i%26))
}
