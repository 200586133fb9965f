package dispatch

import (
	"fmt"
	"time"
)

// JobResult is the immutable terminal outcome of a job, produced exactly
// once per job and delivered through its Future.
//
// A failed job still produces a JobResult: Err is non-nil, Worker is nil
// unless the job had already been assigned one, and Elapsed is zero when no
// work was ever started.
type JobResult struct {
	// JobID is the globally unique id of the job.
	JobID int64

	// Request is the request the job was created for. Nil only in the
	// zero JobResult.
	Request *Request

	// Worker is the worker that serviced the job, or nil if the job
	// failed before assignment.
	Worker *Worker

	// Elapsed is the duration from job creation to the terminal
	// transition. Zero for jobs that failed without being assigned.
	Elapsed time.Duration

	// Err is nil for completed jobs. For failed jobs it reports why:
	// ErrNoWorkerAvailable, ErrJobInterrupted or ErrShutdownTimeout.
	Err error
}

// Failed reports whether the job terminated in the FAILED state.
func (r JobResult) Failed() bool {
	return r.Err != nil
}

func (r JobResult) String() string {
	return fmt.Sprintf("JobResult[jobID=%d:%s:%s]", r.JobID, r.Worker, r.Request)
}
