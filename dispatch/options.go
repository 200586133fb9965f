package dispatch

import (
	"context"
	"time"

	"github.com/nuberhq/nuber/internal/backoff"
)

const (
	// DefaultAcquireTimeout is the per-attempt timeout for worker
	// acquisition.
	DefaultAcquireTimeout = 5000 * time.Millisecond

	// DefaultAcquireAttempts is the acquisition attempt bound; when all
	// attempts are exhausted the job fails.
	DefaultAcquireAttempts = 3

	// DefaultGracePeriod bounds how long a region's Shutdown waits for
	// queued and in-flight jobs.
	DefaultGracePeriod = 30 * time.Second

	// DefaultRosterCapacity is the maximum number of workers the shared
	// pool can hold idle at once.
	DefaultRosterCapacity = 999
)

// Option is a functional option for configuring a Dispatcher.
type Option func(*dispatcherConfig)

type dispatcherConfig struct {
	acquireTimeout  time.Duration
	acquireAttempts int
	gracePeriod     time.Duration
	rosterCapacity  int
	simulator       Simulator
	events          EventLog
	newBackoff      func() backoff.Strategy
	baseCtx         context.Context
}

func defaultConfig() *dispatcherConfig {
	return &dispatcherConfig{
		acquireTimeout:  DefaultAcquireTimeout,
		acquireAttempts: DefaultAcquireAttempts,
		gracePeriod:     DefaultGracePeriod,
		rosterCapacity:  DefaultRosterCapacity,
		simulator:       NewTimerSimulator(),
		events:          nopEvents{},
		baseCtx:         context.Background(),
	}
}

// WithAcquireTimeout sets the timeout for a single worker-acquisition
// attempt. Non-positive values are ignored.
func WithAcquireTimeout(d time.Duration) Option {
	return func(cfg *dispatcherConfig) {
		if d > 0 {
			cfg.acquireTimeout = d
		}
	}
}

// WithAcquireAttempts sets how many acquisition attempts a job makes before
// failing. Values below 1 are ignored.
func WithAcquireAttempts(n int) Option {
	return func(cfg *dispatcherConfig) {
		if n >= 1 {
			cfg.acquireAttempts = n
		}
	}
}

// WithAcquireBackoff inserts a jittered, exponentially growing delay
// between acquisition attempts. By default attempts are retried
// immediately.
func WithAcquireBackoff(initialDelay, maxDelay time.Duration) Option {
	return func(cfg *dispatcherConfig) {
		if initialDelay <= 0 {
			return
		}
		cfg.newBackoff = func() backoff.Strategy {
			return backoff.NewJittered(initialDelay, maxDelay, 0.2)
		}
	}
}

// WithGracePeriod sets how long each region's Shutdown waits for queued and
// in-flight jobs before abandoning what is still pending.
func WithGracePeriod(d time.Duration) Option {
	return func(cfg *dispatcherConfig) {
		if d > 0 {
			cfg.gracePeriod = d
		}
	}
}

// WithRosterCapacity bounds the shared worker pool. Additions beyond the
// bound are rejected and reported.
func WithRosterCapacity(n int) Option {
	return func(cfg *dispatcherConfig) {
		if n > 0 {
			cfg.rosterCapacity = n
		}
	}
}

// WithSimulator substitutes the work simulation used for pickup and
// transport delays. Tests typically inject NewInstantSimulator().
func WithSimulator(s Simulator) Option {
	return func(cfg *dispatcherConfig) {
		if s != nil {
			cfg.simulator = s
		}
	}
}

// WithEventLog routes lifecycle events to the given sink.
func WithEventLog(sink EventLog) Option {
	return func(cfg *dispatcherConfig) {
		if sink != nil {
			cfg.events = sink
		}
	}
}

// WithEventLogging enables or disables console event logging. It is the
// boolean switch the dispatcher is historically constructed with; for a
// custom sink use WithEventLog.
func WithEventLogging(enabled bool) Option {
	return func(cfg *dispatcherConfig) {
		if enabled {
			cfg.events = NewConsoleEvents()
		} else {
			cfg.events = nopEvents{}
		}
	}
}

// WithBaseContext sets the context every job runs under. Cancelling it
// interrupts blocking phases of in-flight jobs, failing them while still
// releasing their workers. Defaults to context.Background().
func WithBaseContext(ctx context.Context) Option {
	return func(cfg *dispatcherConfig) {
		if ctx != nil {
			cfg.baseCtx = ctx
		}
	}
}
