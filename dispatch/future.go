package dispatch

import (
	"context"
	"sync"
	"time"
)

// Future is the async handle returned by Submit. It resolves exactly once,
// to the job's JobResult, when the job reaches a terminal state. All
// accessors are safe for concurrent use and repeated calls return the same
// result.
type Future struct {
	done    chan struct{}
	resolve sync.Once
	result  JobResult
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// complete resolves the future. Later calls are no-ops.
func (f *Future) complete(res JobResult) {
	f.resolve.Do(func() {
		f.result = res
		close(f.done)
	})
}

// Get blocks until the job reaches a terminal state and returns its result.
func (f *Future) Get() JobResult {
	<-f.done
	return f.result
}

// GetWithContext waits for the result until ctx is cancelled.
// On cancellation it returns a zero JobResult and the context's error;
// the job itself keeps running.
func (f *Future) GetWithContext(ctx context.Context) (JobResult, error) {
	select {
	case <-f.done:
		return f.result, nil
	case <-ctx.Done():
		return JobResult{}, ctx.Err()
	}
}

// GetWithTimeout waits for the result for at most d.
func (f *Future) GetWithTimeout(d time.Duration) (JobResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return f.GetWithContext(ctx)
}

// IsReady reports whether the result is already available without blocking.
func (f *Future) IsReady() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
