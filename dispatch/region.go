package dispatch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Region is one independently operating partition. It owns an admission
// capacity, a FIFO pending queue, and the promotion logic that moves queued
// jobs into flight as slots and workers allow. Regions share nothing with
// each other except the dispatcher's worker pool.
type Region struct {
	name     string
	capacity int
	dispatch *Dispatcher

	// mu guards pending, inFlight and shuttingDown as one consistency
	// group. Promotion runs under mu and is re-invoked from both Submit
	// and jobDone, so a job completing concurrently with a submission
	// can never leave a promotable job stuck.
	mu           sync.Mutex
	pending      []*Job
	inFlight     int
	shuttingDown bool

	awaitingWorker atomic.Int64

	// jobs tracks every job admitted by Submit until its terminal
	// transition; Shutdown drains against it.
	jobs sync.WaitGroup

	drainOnce sync.Once
	drainErr  error
}

func newRegion(d *Dispatcher, name string, capacity int) *Region {
	return &Region{
		name:     name,
		capacity: capacity,
		dispatch: d,
	}
}

// Name returns the region's unique name.
func (r *Region) Name() string { return r.name }

// Capacity returns the region's admission cap.
func (r *Region) Capacity() int { return r.capacity }

// Submit creates a job for req, appends it to the pending queue and
// attempts promotion. It returns the job's async result handle, or
// ErrRegionShutdown without creating a job if the region has been told to
// shut down.
func (r *Region) Submit(req *Request) (*Future, error) {
	r.mu.Lock()
	if r.shuttingDown {
		r.mu.Unlock()
		return nil, fmt.Errorf("region %s: %w", r.name, ErrRegionShutdown)
	}

	j := newJob(r, req)
	r.pending = append(r.pending, j)
	r.jobs.Add(1)
	metricPending.WithLabelValues(r.name).Set(float64(len(r.pending)))
	r.mu.Unlock()

	metricJobsCreated.WithLabelValues(r.name).Inc()
	eventf(r.dispatch.events, j, "creating job for %s", req)

	r.promote()
	return j.future, nil
}

// promote moves pending jobs into flight while a slot is free, launching
// each on its own goroutine. Callers must not hold mu.
func (r *Region) promote() {
	r.mu.Lock()
	for r.inFlight < r.capacity && len(r.pending) > 0 {
		j := r.pending[0]
		r.pending = r.pending[1:]
		r.inFlight++
		j.promoted.Store(true)

		go j.run(r.dispatch.ctx)
	}
	metricPending.WithLabelValues(r.name).Set(float64(len(r.pending)))
	metricInFlight.WithLabelValues(r.name).Set(float64(r.inFlight))
	r.mu.Unlock()
}

// jobDone releases the admission slot held by a terminal job and re-runs
// promotion so a freed slot is reused immediately.
func (r *Region) jobDone(j *Job) {
	r.mu.Lock()
	if j.promoted.Load() {
		r.inFlight--
	}
	metricInFlight.WithLabelValues(r.name).Set(float64(r.inFlight))
	r.mu.Unlock()

	r.jobs.Done()
	r.promote()
}

// InFlight returns the number of jobs currently holding an admission slot.
func (r *Region) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight
}

// Pending returns the number of jobs queued behind the admission cap.
func (r *Region) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// AwaitingWorker returns the number of in-flight jobs blocked on worker
// acquisition.
func (r *Region) AwaitingWorker() int {
	return int(r.awaitingWorker.Load())
}

// Shutdown irreversibly stops admission and waits, up to the region's grace
// period or ctx's cancellation, for all queued and in-flight jobs to reach
// a terminal state. Jobs still waiting in the pending queue when the grace
// period elapses are failed with ErrShutdownTimeout; jobs already executing
// are left to finish in the background and release their workers on their
// own terminal path. Calling Shutdown again observes the same drain.
func (r *Region) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.shuttingDown = true
	r.mu.Unlock()

	r.drainOnce.Do(func() {
		eventf(r.dispatch.events, nil, "region %s is shutting down", r.name)
		r.drainErr = r.drain(ctx)
	})
	return r.drainErr
}

func (r *Region) drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.jobs.Wait()
		close(done)
	}()

	timer := time.NewTimer(r.dispatch.gracePeriod)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}

	// Grace period elapsed (or the caller gave up): abandon whatever is
	// still queued. Abandoned jobs hold no worker, so failing them here
	// leaks nothing and resolves their futures.
	r.mu.Lock()
	abandoned := r.pending
	r.pending = nil
	metricPending.WithLabelValues(r.name).Set(0)
	r.mu.Unlock()

	for _, j := range abandoned {
		j.finish(ErrShutdownTimeout)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return fmt.Errorf("region %s: %w", r.name, ErrShutdownTimeout)
}
