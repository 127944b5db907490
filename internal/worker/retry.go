package worker

import (
	"math"
	"time"
)

// RetryPolicy spaces out sweeps after consecutive failures.
type RetryPolicy struct {
	// MaxRetries is the failure streak after which failures are logged as errors.
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NextDelay returns the wait before attempt (1-based), growing geometrically up to MaxDelay.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	attempt = max(attempt, 1)
	initial := r.InitialDelay
	if initial <= 0 {
		initial = time.Second
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	d := time.Duration(float64(initial) * math.Pow(factor, float64(attempt-1)))
	if r.MaxDelay > 0 && (d > r.MaxDelay || d <= 0) {
		return r.MaxDelay
	}
	if d <= 0 {
		return initial
	}
	return d
}

// Exhausted reports whether a failure streak of the given length has used up the retries.
func (r RetryPolicy) Exhausted(failures int) bool {
	return r.MaxRetries > 0 && failures >= r.MaxRetries
}
