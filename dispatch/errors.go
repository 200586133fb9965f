package dispatch

import "errors"

var (
	// ErrRegionNotFound is returned by Dispatcher.Submit for a region
	// name that was not part of the construction map.
	ErrRegionNotFound = errors.New("unknown region")

	// ErrDispatchShutdown is returned by Dispatcher.Submit once the
	// dispatcher-wide shutdown flag is set.
	ErrDispatchShutdown = errors.New("dispatch is shutting down")

	// ErrRegionShutdown is returned by Region.Submit once that region's
	// shutdown flag is set.
	ErrRegionShutdown = errors.New("region is shutting down")

	// ErrNoWorkerAvailable marks a JobResult whose job exhausted all
	// worker-acquisition attempts.
	ErrNoWorkerAvailable = errors.New("no worker available after all acquisition attempts")

	// ErrJobInterrupted marks a JobResult whose job was interrupted by
	// context cancellation during a blocking phase.
	ErrJobInterrupted = errors.New("job interrupted")

	// ErrShutdownTimeout is returned by Shutdown when the grace period
	// elapses before all jobs reach a terminal state, and marks the
	// JobResult of any job abandoned in a pending queue.
	ErrShutdownTimeout = errors.New("error in shutting down: timeout reached")
)
