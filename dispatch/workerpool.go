package dispatch

import (
	"context"
	"time"
)

// WorkerPool is the thread-safe store of idle workers shared by every
// region. A worker is owned either by the pool or by exactly one job. The
// pool makes no ordering promise about which idle worker an Acquire call
// receives.
//
// The idle set is a buffered channel sized to the roster capacity, which
// gives the two guarantees the pool needs for free: a release while one or
// more acquirers block wakes at least one of them, and a release beyond
// roster capacity cannot succeed.
type WorkerPool struct {
	idle   chan *Worker
	events EventLog
}

// NewWorkerPool creates a pool with room for capacity workers. The pool
// starts empty; seed it with Release (or Dispatcher.AddWorker).
func NewWorkerPool(capacity int, events EventLog) *WorkerPool {
	if capacity <= 0 {
		capacity = 1
	}
	if events == nil {
		events = nopEvents{}
	}
	return &WorkerPool{
		idle:   make(chan *Worker, capacity),
		events: events,
	}
}

// Release returns a worker to the idle set and reports whether it was
// accepted. A release beyond roster capacity is a no-op that is reported
// through the event sink, never fatal.
func (p *WorkerPool) Release(w *Worker) bool {
	if w == nil {
		return false
	}

	select {
	case p.idle <- w:
		metricWorkersIdle.Set(float64(len(p.idle)))
		return true
	default:
		eventf(p.events, nil, "worker pool is full; unable to add worker %s", w.Name)
		return false
	}
}

// Acquire removes and returns one idle worker, waiting up to timeout for
// one to be released. A nil worker with a nil error means the timeout
// elapsed; a non-nil error means ctx was cancelled while waiting.
func (p *WorkerPool) Acquire(ctx context.Context, timeout time.Duration) (*Worker, error) {
	// Fast path: a worker is already idle.
	select {
	case w := <-p.idle:
		metricWorkersIdle.Set(float64(len(p.idle)))
		return w, nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case w := <-p.idle:
		metricWorkersIdle.Set(float64(len(p.idle)))
		return w, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Idle returns the number of workers currently idle in the pool.
func (p *WorkerPool) Idle() int {
	return len(p.idle)
}

// Size returns the roster capacity of the pool.
func (p *WorkerPool) Size() int {
	return cap(p.idle)
}
