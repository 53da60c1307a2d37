// Package breaker implements the circuit breaker that stops live Cost
// Explorer calls after repeated failures.
//
// The breaker is process-wide: repeated failures almost always mean the
// API or the network is degraded, not one profile, so all profiles share
// the gate. It opens after a threshold of consecutive failures and closes
// only on a subsequent success. A caller-supplied override bypasses the
// gate for one call without resetting the counter; only a real success
// does that.
package breaker

import "sync"

// DefaultThreshold is the consecutive-failure count at which the breaker
// opens.
const DefaultThreshold = 3

// Breaker counts consecutive provider failures.
//
// Invariant: the breaker is open exactly when the consecutive failure
// count has reached the threshold.
type Breaker struct {
	threshold int

	mu       sync.Mutex
	failures int
}

// New creates a breaker with the given threshold. A non-positive
// threshold falls back to DefaultThreshold.
func New(threshold int) *Breaker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Breaker{threshold: threshold}
}

// Allow reports whether a live call may proceed. An open breaker refuses
// unless override is set.
func (b *Breaker) Allow(override bool) bool {
	if override {
		return true
	}
	return !b.IsOpen()
}

// IsOpen reports whether the breaker is open.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures >= b.threshold
}

// Failure records a provider failure and reports whether this failure
// opened the breaker.
func (b *Breaker) Failure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	return b.failures == b.threshold
}

// Success records a successful fetch, zeroing the counter and closing
// the breaker.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
}

// ConsecutiveFailures returns the current failure count.
func (b *Breaker) ConsecutiveFailures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
