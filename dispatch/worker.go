package dispatch

import (
	"time"

	"github.com/google/uuid"
)

// Worker is a roster member that services one job at a time. A worker is
// owned either by the WorkerPool (idle) or by exactly one job (checked out),
// never both. Workers are created once at bootstrap and cycle between the
// two states for the life of the process.
type Worker struct {
	// ID uniquely identifies the worker across the roster.
	ID uuid.UUID

	// Name is the human-readable roster name.
	Name string

	// MaxPickupDelay bounds the simulated travel time to a request's
	// origin. The actual pickup delay for a job is drawn uniformly from
	// [0, MaxPickupDelay].
	MaxPickupDelay time.Duration
}

// NewWorker creates a roster worker with a fresh id.
func NewWorker(name string, maxPickupDelay time.Duration) *Worker {
	return &Worker{
		ID:             uuid.New(),
		Name:           name,
		MaxPickupDelay: maxPickupDelay,
	}
}

func (w *Worker) String() string {
	if w == nil {
		return "null"
	}
	return "W-" + w.Name
}

// Request is one unit of demand: an identity plus the declared service
// duration (the simulated transport time once a worker has picked it up).
// Immutable after creation.
type Request struct {
	// Name identifies the requester.
	Name string

	// Duration is the declared service duration.
	Duration time.Duration
}

// NewRequest creates an immutable request with the given declared duration.
func NewRequest(name string, duration time.Duration) *Request {
	return &Request{Name: name, Duration: duration}
}

func (r *Request) String() string {
	if r == nil {
		return "null"
	}
	return "R-" + r.Name
}
