// Package scheduler drives automatic refreshes with a budget-adaptive
// cadence and runs the nightly maintenance sweep.
//
// The refresh loop uses a single-shot timer, not a repeating interval:
// each firing performs a fetch, recomputes the interval from the fresh
// budget fraction, and arms a new timer. The cadence therefore tightens
// on its own as spend approaches budget, with no external
// reconfiguration step.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"costwatch-hq/saturn/pkg/costdata"
	"costwatch-hq/saturn/pkg/pipeline"
	"costwatch-hq/saturn/pkg/storage"
)

// Budget-adaptive cadence tiers, in minutes.
const (
	intervalOverBudget = 5
	intervalNearBudget = 10
	intervalHigh       = 15
	intervalElevated   = 30
	intervalCeiling    = 60
)

// NextInterval returns the refresh cadence for a profile given its
// current budget fraction and configured interval.
func NextInterval(budgetFraction float64, configuredMinutes int) time.Duration {
	minutes := 0
	switch {
	case budgetFraction >= 1.0:
		minutes = intervalOverBudget
	case budgetFraction >= 0.9:
		minutes = intervalNearBudget
	case budgetFraction >= 0.8:
		minutes = intervalHigh
	case budgetFraction >= 0.7:
		minutes = intervalElevated
	default:
		minutes = configuredMinutes
		if minutes <= 0 {
			minutes = costdata.DefaultRefreshIntervalMinutes
		}
		if minutes > intervalCeiling {
			minutes = intervalCeiling
		}
	}
	return time.Duration(minutes) * time.Minute
}

// Fetcher is the subset of the orchestrator the scheduler drives.
type Fetcher interface {
	Fetch(ctx context.Context, profile costdata.Profile, force bool) (*pipeline.Result, error)
}

// Scheduler runs the self-rescheduling refresh loop for one profile.
type Scheduler struct {
	fetcher Fetcher
	store   storage.Backend
	logger  *slog.Logger

	mu      sync.Mutex
	profile costdata.Profile
	timer   *time.Timer
	nextAt  time.Time
	cancel  context.CancelFunc
	running bool

	// gen increments on every Start and Stop. A firing carries the
	// generation it was armed under; a stale one must not re-arm, or it
	// would overwrite the new timer with the cancelled context.
	gen uint64

	// now is injectable for testing.
	now func() time.Time
}

// New creates a refresh scheduler.
func New(fetcher Fetcher, store storage.Backend, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		fetcher: fetcher,
		store:   store,
		logger:  logger.With("component", "scheduler"),
		now:     time.Now,
	}
}

// Start begins the loop for a profile. Starting is idempotent: any
// existing timer is cancelled first, so switching profiles is just a
// second Start.
//
// lastFetch is the most recent successful fetch time for the profile
// (zero if unknown). If it is older than the configured interval, one
// immediate catch-up fetch runs instead of waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context, profile costdata.Profile, lastFetch time.Time) {
	s.Stop()

	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.profile = profile
	s.cancel = cancel
	s.running = true
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	delay, err := s.computeDelay(ctx, profile)
	if err != nil {
		s.logger.Error("initial interval computation failed", "profile", profile, "error", err)
		delay = time.Duration(costdata.DefaultRefreshIntervalMinutes) * time.Minute
	}

	// Startup catch-up: stale last fetch means refresh now.
	if lastFetch.IsZero() || s.now().Sub(lastFetch) > delay {
		s.logger.Info("catch-up refresh", "profile", profile)
		delay = 0
	}

	s.arm(ctx, profile, delay, gen)
	s.logger.Info("scheduler started", "profile", profile, "first_fire_in", delay.Round(time.Second))
}

// Stop cancels the loop and clears the scheduled timestamp. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.nextAt = time.Time{}
	s.running = false
	s.gen++
	s.logger.Info("scheduler stopped", "profile", s.profile)
}

// NextFireAt returns when the next refresh is scheduled, zero when the
// scheduler is stopped.
func (s *Scheduler) NextFireAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextAt
}

// arm schedules the next firing for the given generation.
func (s *Scheduler) arm(ctx context.Context, profile costdata.Profile, delay time.Duration, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || gen != s.gen {
		return
	}
	s.nextAt = s.now().Add(delay)
	s.timer = time.AfterFunc(delay, func() {
		s.fire(ctx, profile, gen)
	})
}

// fire performs one fetch and re-arms with a freshly computed interval.
// A fetch refused by a gate (rate limit, open breaker) is not an error
// for the loop: the next tick simply tries again.
func (s *Scheduler) fire(ctx context.Context, profile costdata.Profile, gen uint64) {
	s.mu.Lock()
	stale := !s.running || gen != s.gen
	s.mu.Unlock()
	if stale || ctx.Err() != nil {
		return
	}

	if _, err := s.fetcher.Fetch(ctx, profile, false); err != nil {
		s.logger.Warn("scheduled refresh failed", "profile", profile, "error", err)
	}

	delay, err := s.computeDelay(ctx, profile)
	if err != nil {
		s.logger.Error("interval computation failed", "profile", profile, "error", err)
		delay = time.Duration(costdata.DefaultRefreshIntervalMinutes) * time.Minute
	}
	s.logger.Debug("refresh rescheduled", "profile", profile, "next_fire_in", delay.Round(time.Second))
	s.arm(ctx, profile, delay, gen)
}

// computeDelay derives the cadence from the profile's budget and the
// latest known month-to-date total.
func (s *Scheduler) computeDelay(ctx context.Context, profile costdata.Profile) (time.Duration, error) {
	budget, err := storage.EnsureBudget(ctx, s.store, profile)
	if err != nil {
		return 0, err
	}

	fraction := 0.0
	if rec, err := s.store.GetMonth(ctx, profile, costdata.MonthStart(s.now())); err == nil {
		fraction = budget.UsedFraction(rec.Amount)
	}
	return NextInterval(fraction, budget.RefreshIntervalMinutes), nil
}
