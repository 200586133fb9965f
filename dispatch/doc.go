// Package dispatch provides an in-process ride-dispatch engine that routes
// incoming requests to a shared pool of mobile workers across independent
// regions.
//
// The primary type is Dispatcher, built from a fixed map of region names to
// admission capacities. Each Region enforces a bounded number of
// simultaneously in-flight jobs, queues excess demand in FIFO order, and
// promotes pending jobs as slots free up. All regions draw workers from one
// shared WorkerPool; a job that cannot obtain a worker within its bounded
// retry budget fails with a failure-flavored JobResult rather than an error.
//
// # Basic Usage
//
//	d, err := dispatch.NewDispatcher(map[string]int{"north": 5, "south": 3})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for i := range 10 {
//	    d.AddWorker(dispatch.NewWorker(fmt.Sprintf("worker-%d", i), 400*time.Millisecond))
//	}
//
//	future, err := d.Submit(dispatch.NewRequest("alice", 2*time.Second), "north")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result := future.Get()
//	fmt.Println(result)
//
//	_ = d.Shutdown(context.Background())
//
// # Concurrency model
//
// Submit may be called from many goroutines. Every job admitted into a
// region runs on its own goroutine; a region's pending queue, in-flight
// counter and shutdown flag form one consistency group guarded by a single
// mutex, so a job completing concurrently with a submission never leaves a
// promotable job stuck. Job ids come from one atomic counter and are
// strictly increasing across all regions.
//
// # Shutdown
//
// Shutdown stops admission immediately and waits, per region, up to a grace
// period for queued and in-flight jobs to finish. Jobs still waiting in a
// pending queue when the grace period elapses are failed with
// ErrShutdownTimeout; jobs already executing keep running in the background
// and release their worker on their own terminal transition, so no worker is
// ever leaked.
//
// # Observability
//
// Lifecycle events (created, assigned, completed, failed) flow through an
// optional EventLog sink; sinks backed by log/slog and by colored console
// output are bundled. Prometheus counters and gauges are registered for job
// outcomes, queue depths and idle workers. Neither affects control flow.
package dispatch
