package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/nuberhq/nuber/dispatch"
)

func TestNewDispatcher_Validation(t *testing.T) {
	t.Run("no regions", func(t *testing.T) {
		if _, err := dispatch.NewDispatcher(nil); err == nil {
			t.Error("expected error for empty region map")
		}
	})

	t.Run("non-positive capacity", func(t *testing.T) {
		if _, err := dispatch.NewDispatcher(map[string]int{"north": 0}); err == nil {
			t.Error("expected error for zero capacity")
		}
	})
}

// Scenario: a submit with an unregistered region name returns a rejection
// and never creates a job.
func TestDispatcher_UnknownRegion(t *testing.T) {
	d := newTestDispatcher(t, map[string]int{"north": 1}, dispatch.NewInstantSimulator())
	addWorkers(d, 1)

	f, err := d.Submit(dispatch.NewRequest("p1", time.Second), "atlantis")
	if !errors.Is(err, dispatch.ErrRegionNotFound) {
		t.Errorf("expected ErrRegionNotFound, got %v", err)
	}
	if f != nil {
		t.Error("expected no future for a rejected submit")
	}
	if got := d.Pending() + d.InFlight(); got != 0 {
		t.Errorf("rejected submit created work: pending+inflight=%d", got)
	}
}

func TestDispatcher_SubmitAfterShutdownRejected(t *testing.T) {
	d := newTestDispatcher(t, map[string]int{"north": 1}, dispatch.NewInstantSimulator())
	addWorkers(d, 1)

	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	_, err := d.Submit(dispatch.NewRequest("late", time.Second), "north")
	if !errors.Is(err, dispatch.ErrDispatchShutdown) {
		t.Errorf("expected ErrDispatchShutdown, got %v", err)
	}
}

// Scenario: capacity 2, zero workers. Acquisition retries exhaust, the job
// fails with a nil worker and zero elapsed duration, and the in-flight
// counter returns to zero.
func TestDispatcher_NoWorkersFailsJob(t *testing.T) {
	d, err := dispatch.NewDispatcher(map[string]int{"north": 2},
		dispatch.WithSimulator(dispatch.NewInstantSimulator()),
		dispatch.WithAcquireTimeout(20*time.Millisecond),
		dispatch.WithAcquireAttempts(5),
	)
	if err != nil {
		t.Fatalf("failed to build dispatcher: %v", err)
	}

	start := time.Now()
	f, err := d.Submit(dispatch.NewRequest("p1", time.Second), "north")
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	waitFor(t, time.Second, func() bool { return d.AwaitingWorker() == 1 }, "job not counted as awaiting a worker")

	res, err := f.GetWithTimeout(5 * time.Second)
	if err != nil {
		t.Fatalf("job never resolved: %v", err)
	}
	if !res.Failed() || !errors.Is(res.Err, dispatch.ErrNoWorkerAvailable) {
		t.Errorf("expected ErrNoWorkerAvailable, got %v", res.Err)
	}
	if res.Worker != nil {
		t.Errorf("failed job has a worker: %v", res.Worker)
	}
	if res.Elapsed != 0 {
		t.Errorf("failed job reports non-zero elapsed %v", res.Elapsed)
	}
	// Five attempts of 20ms each, give or take scheduling.
	if waited := time.Since(start); waited < 100*time.Millisecond {
		t.Errorf("job failed after %v, before exhausting its attempts", waited)
	}

	waitFor(t, time.Second, func() bool { return d.InFlight() == 0 }, "in-flight counter did not return to 0")
}

// Job ids issued under concurrent submitters are pairwise distinct and, per
// submitter, strictly increasing in issuance order.
func TestDispatcher_JobIDsMonotonic(t *testing.T) {
	d := newTestDispatcher(t, map[string]int{"north": 4, "south": 4}, dispatch.NewInstantSimulator())
	addWorkers(d, 8)

	const submitters = 8
	const perSubmitter = 25

	var mu sync.Mutex
	var all []int64

	var wg sync.WaitGroup
	for s := range submitters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			region := "north"
			if s%2 == 1 {
				region = "south"
			}

			var prev int64
			for i := range perSubmitter {
				f, err := d.Submit(dispatch.NewRequest(fmt.Sprintf("p%d-%d", s, i), time.Millisecond), region)
				if err != nil {
					t.Errorf("submit failed: %v", err)
					return
				}
				res := f.Get()
				if res.JobID <= prev {
					t.Errorf("submitter %d: ids not increasing: %d after %d", s, res.JobID, prev)
				}
				prev = res.JobID

				mu.Lock()
				all = append(all, res.JobID)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	for i := 1; i < len(all); i++ {
		if all[i] == all[i-1] {
			t.Fatalf("duplicate job id %d", all[i])
		}
	}
	if len(all) != submitters*perSubmitter {
		t.Errorf("expected %d ids, got %d", submitters*perSubmitter, len(all))
	}
}

// With a single worker shared by two generous regions, no two jobs may ever
// execute simultaneously: the worker can only be referenced by one job at a
// time.
func TestDispatcher_WorkerNeverShared(t *testing.T) {
	sim := &concurrencySim{}
	d := newTestDispatcher(t, map[string]int{"north": 5, "south": 5}, sim,
		dispatch.WithAcquireTimeout(500*time.Millisecond),
		dispatch.WithAcquireAttempts(10),
	)
	addWorkers(d, 1)

	var futures []*dispatch.Future
	for i := range 12 {
		region := "north"
		if i%2 == 1 {
			region = "south"
		}
		f, err := d.Submit(dispatch.NewRequest(fmt.Sprintf("p%d", i), time.Second), region)
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}
		futures = append(futures, f)
	}

	for i, f := range futures {
		res, err := f.GetWithTimeout(10 * time.Second)
		if err != nil {
			t.Fatalf("job %d never resolved: %v", i, err)
		}
		if res.Failed() {
			t.Errorf("job %d failed: %v", i, res.Err)
		}
	}

	if peak := sim.Peak(); peak > 1 {
		t.Errorf("single worker executed %d jobs simultaneously", peak)
	}
	if idle := d.Pool().Idle(); idle != 1 {
		t.Errorf("expected the worker back in the pool, idle=%d", idle)
	}
}

func TestDispatcher_AggregateCounters(t *testing.T) {
	sim := newGateSim()
	d := newTestDispatcher(t, map[string]int{"north": 1, "south": 1}, sim)
	addWorkers(d, 2)

	var futures []*dispatch.Future
	for _, region := range []string{"north", "north", "south"} {
		f, err := d.Submit(dispatch.NewRequest("p", time.Second), region)
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}
		futures = append(futures, f)
	}

	// One in flight per region, one queued behind north's cap.
	waitFor(t, time.Second, func() bool { return d.InFlight() == 2 }, "expected 2 jobs in flight")
	if got := d.Pending(); got != 1 {
		t.Errorf("expected 1 pending job, got %d", got)
	}

	sim.allow(6)
	for _, f := range futures {
		if res := f.Get(); res.Failed() {
			t.Errorf("job failed: %v", res.Err)
		}
	}

	waitFor(t, time.Second, func() bool { return d.InFlight() == 0 && d.Pending() == 0 }, "counters did not drain")
}

// Cancelling the base context interrupts blocking phases; the job fails but
// its worker is still released.
func TestDispatcher_InterruptedJobReleasesWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sim := newGateSim()
	d := newTestDispatcher(t, map[string]int{"north": 1}, sim,
		dispatch.WithBaseContext(ctx))
	addWorkers(d, 1)

	f, err := d.Submit(dispatch.NewRequest("p1", time.Second), "north")
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	// Job is assigned and blocked inside pickup.
	waitFor(t, time.Second, func() bool { return d.Pool().Idle() == 0 }, "job never acquired the worker")
	cancel()

	res, err := f.GetWithTimeout(2 * time.Second)
	if err != nil {
		t.Fatalf("interrupted job never resolved: %v", err)
	}
	if !errors.Is(res.Err, dispatch.ErrJobInterrupted) {
		t.Errorf("expected ErrJobInterrupted, got %v", res.Err)
	}
	if res.Worker == nil {
		t.Error("interrupted job should report its assigned worker")
	}

	waitFor(t, time.Second, func() bool { return d.Pool().Idle() == 1 }, "interrupted job leaked its worker")
}

func TestDispatcher_ShutdownDrainsAllRegions(t *testing.T) {
	d := newTestDispatcher(t, map[string]int{"north": 2, "south": 2}, dispatch.NewInstantSimulator())
	addWorkers(d, 4)

	var futures []*dispatch.Future
	for i := range 20 {
		region := "north"
		if i%2 == 1 {
			region = "south"
		}
		f, err := d.Submit(dispatch.NewRequest(fmt.Sprintf("p%d", i), time.Millisecond), region)
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}
		futures = append(futures, f)
	}

	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	for i, f := range futures {
		if !f.IsReady() {
			t.Errorf("job %d unresolved after drain completed", i)
			continue
		}
		if res := f.Get(); res.Failed() {
			t.Errorf("job %d failed: %v", i, res.Err)
		}
	}

	if idle := d.Pool().Idle(); idle != 4 {
		t.Errorf("expected all workers idle after drain, got %d", idle)
	}
}
