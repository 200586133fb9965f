package dispatch

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"
)

// State is a job's position in its lifecycle state machine.
type State int32

const (
	// StateCreated is the initial state, before the job is admitted.
	StateCreated State = iota
	// StateAwaitingWorker means the job holds an admission slot and is
	// trying to acquire a worker from the shared pool.
	StateAwaitingWorker
	// StateAssigned means a worker has been checked out for the job.
	StateAssigned
	// StateInProgress means pickup is done and transport is underway.
	StateInProgress
	// StateCompleted is the successful terminal state.
	StateCompleted
	// StateFailed is the unsuccessful terminal state.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateAwaitingWorker:
		return "AWAITING_WORKER"
	case StateAssigned:
		return "ASSIGNED"
	case StateInProgress:
		return "IN_PROGRESS"
	case StateCompleted:
		return "COMPLETED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Terminal reports whether s is COMPLETED or FAILED.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Job is one tracked unit of requested work: a request bound to a region,
// with a globally unique id and a lifecycle that ends in exactly one
// terminal transition. Once assigned, the worker reference is immutable
// until that transition, and the worker is released exactly once.
type Job struct {
	id        int64
	region    *Region
	request   *Request
	createdAt time.Time

	state    atomic.Int32
	worker   atomic.Pointer[Worker]
	promoted atomic.Bool

	future   *Future
	terminal sync.Once
}

func newJob(r *Region, req *Request) *Job {
	j := &Job{
		id:        r.dispatch.nextJobID(),
		region:    r,
		request:   req,
		createdAt: time.Now(),
		future:    newFuture(),
	}
	j.state.Store(int32(StateCreated))
	return j
}

// ID returns the job's globally unique, monotonically increasing id.
func (j *Job) ID() int64 { return j.id }

// State returns the job's current lifecycle state.
func (j *Job) State() State { return State(j.state.Load()) }

// Worker returns the assigned worker, or nil before assignment.
func (j *Job) Worker() *Worker { return j.worker.Load() }

// Request returns the request the job was created for.
func (j *Job) Request() *Request { return j.request }

// Result returns the job's async result handle.
func (j *Job) Result() *Future { return j.future }

// String renders the job as id:worker:request, with "null" placeholders
// before a worker is assigned.
func (j *Job) String() string {
	return fmt.Sprintf("%d:%s:%s", j.id, j.worker.Load(), j.request)
}

func (j *Job) setState(s State) {
	j.state.Store(int32(s))
}

// run drives the job from admission to its terminal transition. It executes
// on its own goroutine, launched by the owning region's promotion loop.
func (j *Job) run(ctx context.Context) {
	d := j.region.dispatch

	w, err := j.acquireWorker(ctx)
	switch {
	case err != nil:
		eventf(d.events, j, "interrupted while awaiting a worker")
		j.finish(fmt.Errorf("%w: %v", ErrJobInterrupted, err))
		return
	case w == nil:
		eventf(d.events, j, "no worker available, job failed")
		j.finish(ErrNoWorkerAvailable)
		return
	}

	j.worker.Store(w)
	j.setState(StateAssigned)
	eventf(d.events, j, "starting, on way to %s", j.request)

	// Pickup strictly precedes transport. The pickup delay is drawn
	// uniformly from [0, worker.MaxPickupDelay].
	if err := d.simulator.Sleep(ctx, pickupDelay(w)); err != nil {
		eventf(d.events, j, "interrupted during pickup")
		j.finish(fmt.Errorf("%w: %v", ErrJobInterrupted, err))
		return
	}

	j.setState(StateInProgress)
	eventf(d.events, j, "collected %s, on way to destination", j.request)

	if err := d.simulator.Sleep(ctx, j.request.Duration); err != nil {
		eventf(d.events, j, "interrupted during transport")
		j.finish(fmt.Errorf("%w: %v", ErrJobInterrupted, err))
		return
	}

	j.finish(nil)
}

// acquireWorker attempts WorkerPool.Acquire with the configured per-attempt
// timeout, up to the configured attempt bound. It returns (nil, nil) when
// all attempts are exhausted and a non-nil error only on cancellation.
func (j *Job) acquireWorker(ctx context.Context) (*Worker, error) {
	d := j.region.dispatch

	j.setState(StateAwaitingWorker)
	j.region.awaitingWorker.Add(1)
	defer j.region.awaitingWorker.Add(-1)

	strategy := d.newBackoff()
	for attempt := range d.acquireAttempts {
		if attempt > 0 && strategy != nil {
			if err := d.simulator.Sleep(ctx, strategy.NextDelay(attempt-1)); err != nil {
				return nil, err
			}
		}

		w, err := d.pool.Acquire(ctx, d.acquireTimeout)
		if err != nil {
			return nil, err
		}
		if w != nil {
			return w, nil
		}
		eventf(d.events, j, "no worker available within %v (attempt %d/%d)",
			d.acquireTimeout, attempt+1, d.acquireAttempts)
	}

	return nil, nil
}

// finish performs the terminal transition exactly once: set the terminal
// state, emit the lifecycle event, release the worker if any, resolve the
// future, and hand the admission slot back to the region. Every exit path
// of run funnels through here, so every checkout has a matching release and
// every in-flight increment a matching decrement.
func (j *Job) finish(cause error) {
	j.terminal.Do(func() {
		d := j.region.dispatch
		w := j.worker.Load()

		res := JobResult{
			JobID:   j.id,
			Request: j.request,
			Worker:  w,
			Err:     cause,
		}

		if cause == nil {
			j.setState(StateCompleted)
			res.Elapsed = time.Since(j.createdAt)
			eventf(d.events, j, "at destination, worker is now free")
			metricJobsCompleted.WithLabelValues(j.region.name).Inc()
		} else {
			j.setState(StateFailed)
			if w != nil {
				// The job did real work before failing; keep the
				// measured duration. Unassigned failures report zero.
				res.Elapsed = time.Since(j.createdAt)
			}
			eventf(d.events, j, "job failed: %v", cause)
			metricJobsFailed.WithLabelValues(j.region.name, failReason(cause)).Inc()
		}

		if w != nil {
			d.pool.Release(w)
		}

		j.future.complete(res)
		j.region.jobDone(j)
	})
}

func pickupDelay(w *Worker) time.Duration {
	if w.MaxPickupDelay <= 0 {
		return 0
	}
	return rand.N(w.MaxPickupDelay + 1)
}
