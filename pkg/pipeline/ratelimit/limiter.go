// Package ratelimit enforces the minimum interval between live Cost
// Explorer calls.
//
// This is a client-side pre-check, not a substitute for provider-side
// throttling: the 60 second interval matches the provider's observed
// throttling behavior and keeps metered call spend predictable.
//
// The limiter is process-wide by design. The provider's rate limit is a
// property of the account/API, not of any one profile, so fetches for
// different profiles contend on the same gate.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// DefaultMinInterval is the minimum spacing between live provider calls.
const DefaultMinInterval = 60 * time.Second

// Limiter tracks the timestamp of the most recent live call.
//
// Limiter is thread-safe. A zero lastCall means no call has been made
// yet, which always permits the next call.
type Limiter struct {
	minInterval time.Duration

	mu       sync.Mutex
	lastCall time.Time
}

// NewLimiter creates a limiter with the given minimum interval.
// A non-positive interval falls back to DefaultMinInterval.
func NewLimiter(minInterval time.Duration) *Limiter {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &Limiter{minInterval: minInterval}
}

// CanCall reports whether a live call is permitted at now.
func (l *Limiter) CanCall(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastCall.IsZero() || now.Sub(l.lastCall) >= l.minInterval
}

// SecondsUntilNext returns how many whole seconds remain until the next
// call is permitted, rounded up. Returns 0 when a call is already allowed.
func (l *Limiter) SecondsUntilNext(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lastCall.IsZero() {
		return 0
	}
	remaining := l.minInterval - now.Sub(l.lastCall)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Seconds()))
}

// Record marks a live call at now. The orchestrator records before
// invoking the provider so a slow in-flight call cannot admit a second
// concurrent call, and records even for forced calls so subsequent
// automatic calls stay throttled.
func (l *Limiter) Record(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastCall = now
}

// LastCall returns the timestamp of the most recent recorded call, zero
// if none.
func (l *Limiter) LastCall() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastCall
}
