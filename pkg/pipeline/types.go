package pipeline

import (
	"errors"
	"fmt"

	"costwatch-hq/saturn/pkg/alert"
	"costwatch-hq/saturn/pkg/analytics"
	"costwatch-hq/saturn/pkg/costdata"
)

// Error sentinels for the orchestrator's failure taxonomy. Callers are
// expected to branch with errors.Is and otherwise just display the
// message; only the orchestrator interprets internal state.
var (
	// ErrNoProfile means no profile was selected. A configuration
	// error: fatal to the attempt, never retried, no breaker impact.
	ErrNoProfile = errors.New("no profile selected")

	// ErrCircuitOpen means repeated failures opened the circuit
	// breaker. Distinct from a provider failure: live calls resume
	// only after a successful fetch, or with an explicit force.
	ErrCircuitOpen = errors.New("circuit breaker active after repeated failures, use force to override")
)

// RateLimitError is returned when a live call is rate limited and no
// usable cache entry exists to serve instead.
type RateLimitError struct {
	// WaitSeconds is how long until the next call is permitted.
	WaitSeconds int
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, next call permitted in %ds", e.WaitSeconds)
}

// FetchError wraps a provider failure with the profile it occurred for.
// These failures count against the circuit breaker.
type FetchError struct {
	Profile costdata.Profile
	Err     error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for profile %q: %v", e.Profile, e.Err)
}

// Unwrap returns the underlying provider error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Result is what a fetch returns to its caller. After any single fetch
// completes, the entry, trend, and anomalies are mutually consistent:
// all derived from the same snapshot.
type Result struct {
	// Entry is the cost snapshot, freshly fetched or served from cache.
	Entry *costdata.CacheEntry

	// FromCache is true when the entry was served without a live call.
	FromCache bool

	// RateLimited is true when a stale cache entry was served because
	// the rate limiter refused a live call.
	RateLimited bool

	// Trend compares current spend to last month's pace.
	Trend analytics.Trend

	// Projection is the month-end estimate; ProjectionOK is false when
	// the daily series was empty.
	Projection   analytics.Projection
	ProjectionOK bool

	// Anomalies is the wholesale-recomputed anomaly list.
	Anomalies []costdata.Anomaly

	// Alerts records the alert decisions made for this fetch. Empty
	// for cache hits, which trigger no alert evaluation.
	Alerts []alert.Decision
}
