// Package provider defines the cost provider contract consumed by the
// fetch pipeline, together with the typed errors providers report.
//
// A Provider returns raw per-day per-service cost rows for a profile and
// date range. The pipeline treats providers as external collaborators: it
// never retries them itself and maps their errors into its own failure
// taxonomy (see pkg/pipeline).
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"costwatch-hq/saturn/pkg/costdata"
)

// Provider fetches cost data for a profile.
//
// FetchDaily returns rows for [start, end) at daily granularity grouped by
// service. An empty result with a nil error is valid at the transport
// level; the pipeline treats it as a failure for circuit-breaker purposes.
type Provider interface {
	FetchDaily(ctx context.Context, profile costdata.Profile, start, end time.Time) ([]costdata.DailyServiceCost, error)
}

// Error sentinels for the provider failure classes the pipeline
// distinguishes. Implementations wrap these with %w.
var (
	// ErrCredentialsMissing means no usable credentials were found for
	// the profile. Configuration errors are not counted against the
	// circuit breaker.
	ErrCredentialsMissing = errors.New("credentials missing")

	// ErrAuthFailure means the credentials were rejected.
	ErrAuthFailure = errors.New("authentication failed")

	// ErrThrottled means the provider rejected the call for rate
	// limiting reasons.
	ErrThrottled = errors.New("provider throttled request")

	// ErrNoData means the provider answered but returned no rows.
	ErrNoData = errors.New("provider returned no data")
)

// Error wraps a provider failure with the profile it occurred for.
type Error struct {
	Profile costdata.Profile
	Op      string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("provider %s for profile %q: %v", e.Op, e.Profile, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is a configuration failure (missing
// credentials) rather than a live provider failure.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrCredentialsMissing)
}
