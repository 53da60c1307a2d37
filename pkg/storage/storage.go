// Package storage persists the pipeline's durable state: per-profile
// budgets, cache snapshots, monthly history, and the alert audit log.
//
// Two backends are provided: an in-memory backend for tests and
// ephemeral runs, and a SQLite backend for durability across restarts.
// Implementations must be safe for concurrent use.
package storage

import (
	"context"
	"errors"
	"time"

	"costwatch-hq/saturn/pkg/costdata"
)

// ErrNotFound is returned by lookups that have no matching record.
var ErrNotFound = errors.New("storage: not found")

// Backend is the persistence contract.
type Backend interface {
	// GetBudget returns the budget for a profile, or ErrNotFound.
	GetBudget(ctx context.Context, profile costdata.Profile) (*costdata.ProfileBudget, error)

	// SaveBudget inserts or replaces a budget record.
	SaveBudget(ctx context.Context, budget *costdata.ProfileBudget) error

	// UpsertMonth inserts or replaces the (profile, month) record.
	UpsertMonth(ctx context.Context, month *costdata.MonthTotal) error

	// GetMonth returns the (profile, month) record, or ErrNotFound.
	// month is truncated to its first day before lookup.
	GetMonth(ctx context.Context, profile costdata.Profile, month time.Time) (*costdata.MonthTotal, error)

	// ListMonths returns all history for a profile, ascending by month.
	ListMonths(ctx context.Context, profile costdata.Profile) ([]*costdata.MonthTotal, error)

	// SweepComplete marks every month strictly before the given month
	// as complete, returning how many records changed.
	SweepComplete(ctx context.Context, before time.Time) (int, error)

	// AppendAlert records a delivered notification.
	AppendAlert(ctx context.Context, alert *costdata.SentAlert) error

	// LastAlert returns the most recent delivery time for the
	// (profile, type) pair, or the zero time if none is recorded.
	LastAlert(ctx context.Context, profile costdata.Profile, typ costdata.AlertType) (time.Time, error)

	// PruneAlerts deletes audit records older than the cutoff,
	// returning how many were removed.
	PruneAlerts(ctx context.Context, olderThan time.Time) (int, error)

	// SaveEntry persists a cache snapshot for warm restarts.
	SaveEntry(ctx context.Context, entry *costdata.CacheEntry) error

	// LoadEntries returns all persisted cache snapshots.
	LoadEntries(ctx context.Context) ([]*costdata.CacheEntry, error)

	// Close releases backend resources.
	Close() error
}

// EnsureBudget returns the budget for a profile, creating it lazily with
// defaults on first access. Legacy records with zero-value fields are
// migrated and written back once.
func EnsureBudget(ctx context.Context, b Backend, profile costdata.Profile) (*costdata.ProfileBudget, error) {
	budget, err := b.GetBudget(ctx, profile)
	if errors.Is(err, ErrNotFound) {
		budget = costdata.DefaultBudget(profile)
		if err := b.SaveBudget(ctx, budget); err != nil {
			return nil, err
		}
		return budget, nil
	}
	if err != nil {
		return nil, err
	}

	if budget.Migrate() {
		if err := b.SaveBudget(ctx, budget); err != nil {
			return nil, err
		}
	}
	return budget, nil
}
