package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nuberhq/nuber/internal/backoff"
)

// Dispatcher is the top-level coordinator. It owns the fixed name→Region
// registry, the shared WorkerPool and the global job id counter, and it
// aggregates per-region counters into eventually-consistent totals.
type Dispatcher struct {
	regions map[string]*Region
	pool    *WorkerPool
	events  EventLog

	simulator       Simulator
	acquireTimeout  time.Duration
	acquireAttempts int
	gracePeriod     time.Duration
	backoffFactory  func() backoff.Strategy

	ctx          context.Context
	jobIDs       atomic.Int64
	shuttingDown atomic.Bool
}

// NewDispatcher builds a dispatcher from a fixed map of region names to
// admission capacities. The map is copied; regions can never be added or
// removed afterwards. The worker roster starts empty, see AddWorker.
func NewDispatcher(regionCapacity map[string]int, opts ...Option) (*Dispatcher, error) {
	if len(regionCapacity) == 0 {
		return nil, errors.New("dispatch: at least one region is required")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	d := &Dispatcher{
		regions:         make(map[string]*Region, len(regionCapacity)),
		events:          cfg.events,
		simulator:       cfg.simulator,
		acquireTimeout:  cfg.acquireTimeout,
		acquireAttempts: cfg.acquireAttempts,
		gracePeriod:     cfg.gracePeriod,
		backoffFactory:  cfg.newBackoff,
		ctx:             cfg.baseCtx,
	}
	d.pool = NewWorkerPool(cfg.rosterCapacity, cfg.events)

	eventf(d.events, nil, "creating dispatch")
	for name, capacity := range regionCapacity {
		if capacity <= 0 {
			return nil, fmt.Errorf("dispatch: region %s: capacity must be positive, got %d", name, capacity)
		}
		d.regions[name] = newRegion(d, name, capacity)
		eventf(d.events, nil, "creating region for %s", name)
	}
	eventf(d.events, nil, "done creating %d regions", len(d.regions))

	return d, nil
}

// AddWorker adds a worker to the shared idle pool and reports whether it
// was accepted. Safe to call from multiple goroutines. Additions beyond the
// roster capacity are rejected and reported, never fatal.
func (d *Dispatcher) AddWorker(w *Worker) bool {
	return d.pool.Release(w)
}

// Submit books a request into the named region and returns the async
// handle for its result. It fails synchronously with ErrDispatchShutdown
// once Shutdown has been called, ErrRegionNotFound for an unregistered
// name, or ErrRegionShutdown if the region itself is already draining. No
// job is created on any of those paths.
func (d *Dispatcher) Submit(req *Request, regionName string) (*Future, error) {
	if d.shuttingDown.Load() {
		eventf(d.events, nil, "rejecting request %s: dispatch is shutting down", req)
		return nil, ErrDispatchShutdown
	}

	region, ok := d.regions[regionName]
	if !ok {
		eventf(d.events, nil, "region %s not found for request %s", regionName, req)
		return nil, fmt.Errorf("%w: %s", ErrRegionNotFound, regionName)
	}

	return region.Submit(req)
}

// Region returns the named region, or nil if it is not registered.
func (d *Dispatcher) Region(name string) *Region {
	return d.regions[name]
}

// Pool returns the shared worker pool.
func (d *Dispatcher) Pool() *WorkerPool {
	return d.pool
}

// InFlight sums the in-flight counts of all regions. The total is an
// eventually-consistent snapshot, not an atomic point-in-time view.
func (d *Dispatcher) InFlight() int {
	total := 0
	for _, r := range d.regions {
		total += r.InFlight()
	}
	return total
}

// Pending sums the pending-queue lengths of all regions.
func (d *Dispatcher) Pending() int {
	total := 0
	for _, r := range d.regions {
		total += r.Pending()
	}
	return total
}

// AwaitingWorker sums, across regions, the jobs currently blocked on worker
// acquisition.
func (d *Dispatcher) AwaitingWorker() int {
	total := 0
	for _, r := range d.regions {
		total += r.AwaitingWorker()
	}
	return total
}

// Shutdown sets the global shutdown flag, then shuts every region down
// concurrently, each bounded by its own grace period. It returns the first
// region drain error, if any. Regions are independent, so the shutdown
// order is unspecified.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.shuttingDown.Store(true)

	var g errgroup.Group
	for _, region := range d.regions {
		g.Go(func() error {
			return region.Shutdown(ctx)
		})
	}

	err := g.Wait()
	eventf(d.events, nil, "dispatch shutdown complete")
	return err
}

// nextJobID issues the next globally unique job id. Ids start at 1 and are
// strictly increasing in issuance order, across all regions and submitters.
func (d *Dispatcher) nextJobID() int64 {
	return d.jobIDs.Add(1)
}

// newBackoff returns a fresh per-job backoff strategy, or nil when retries
// are immediate.
func (d *Dispatcher) newBackoff() backoff.Strategy {
	if d.backoffFactory == nil {
		return nil
	}
	return d.backoffFactory()
}
