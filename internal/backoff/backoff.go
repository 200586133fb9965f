// Package backoff provides the delay strategies used between
// worker-acquisition attempts.
package backoff

import (
	"math/rand"
	"sync"
	"time"
)

const (
	maxShiftAttempts = 63 // Prevent overflow in delay calculation
)

// Strategy defines how the delay before the next acquisition attempt is
// calculated.
type Strategy interface {
	// NextDelay calculates the delay before the next attempt.
	// attemptNumber is 0-indexed (0 = first retry after the initial
	// failure).
	NextDelay(attemptNumber int) time.Duration

	// Reset resets any internal state. Call it when reusing a strategy
	// for a new job.
	Reset()
}

// fixed waits the same delay between every attempt.
type fixed struct {
	delay time.Duration
}

// NewFixed creates a strategy with a constant delay between attempts.
func NewFixed(delay time.Duration) Strategy {
	return &fixed{delay: delay}
}

func (f *fixed) NextDelay(attemptNumber int) time.Duration {
	if attemptNumber < 0 {
		return 0
	}
	return f.delay
}

func (f *fixed) Reset() {}

// jittered implements exponential backoff with random jitter to prevent
// synchronized retry spikes when many jobs contend for the same roster.
// Delay formula: exponentialDelay * (1 ± jitterFactor).
type jittered struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	jitterFactor float64 // 0.0 to 1.0 (e.g. 0.2 = ±20% jitter)
	rng          *rand.Rand
	mu           sync.Mutex // Protect RNG access for thread-safety
}

// NewJittered creates a jittered exponential backoff strategy.
// jitterFactor is clamped to [0, 1].
func NewJittered(initialDelay, maxDelay time.Duration, jitterFactor float64) Strategy {
	return &jittered{
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
		jitterFactor: clamp(jitterFactor, 0, 1),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- crypto rand not needed for backoff jitter
	}
}

func (j *jittered) NextDelay(attemptNumber int) time.Duration {
	if attemptNumber < 0 {
		return 0
	}

	baseDelay := calcExponentialDelay(attemptNumber, j.initialDelay, j.maxDelay)

	j.mu.Lock()
	jitterMultiplier := 1.0 + (j.rng.Float64()*2-1)*j.jitterFactor
	j.mu.Unlock()

	actualDelay := time.Duration(float64(baseDelay) * jitterMultiplier)
	return clamp(actualDelay, 0, j.maxDelay)
}

func (j *jittered) Reset() {
	// No state to reset (RNG state doesn't need reset)
}

func calcExponentialDelay(attemptNumber int, initialDelay, maxDelay time.Duration) time.Duration {
	if attemptNumber < 0 {
		return 0
	}

	if attemptNumber >= maxShiftAttempts {
		return maxDelay
	}

	backoffFactor := int64(1) << uint(attemptNumber)
	delay := time.Duration(backoffFactor) * initialDelay

	if delay > maxDelay || delay < 0 {
		return maxDelay
	}

	return delay
}

func clamp[T int | int64 | float64 | time.Duration](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
