package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"costwatch-hq/saturn/pkg/storage"
)

// DefaultSweepSchedule runs the maintenance sweep daily at 03:00.
const DefaultSweepSchedule = "0 3 * * *"

// alertRetention matches the alert policy's audit retention window.
const alertRetention = 24 * time.Hour

// Sweeper runs scheduled storage maintenance: marking fully elapsed
// months complete and pruning old alert audit records.
type Sweeper struct {
	store    storage.Backend
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewSweeper creates a sweeper with the given cron schedule. An empty
// schedule falls back to DefaultSweepSchedule.
func NewSweeper(store storage.Backend, schedule string, logger *slog.Logger) *Sweeper {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:    store,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With("component", "scheduler.sweeper"),
	}
}

// Start begins scheduled sweeping and runs one sweep immediately so a
// process that was down over a month boundary catches up.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}
	if _, err := s.cron.AddFunc(s.schedule, func() { s.Sweep(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("sweeper started", "schedule", s.schedule)

	go s.Sweep(ctx)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Sweep executes one maintenance cycle.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := time.Now().UTC()

	completed, err := s.store.SweepComplete(ctx, now)
	if err != nil {
		s.logger.Error("month sweep failed", "error", err)
	} else if completed > 0 {
		s.logger.Info("months marked complete", "count", completed)
	}

	pruned, err := s.store.PruneAlerts(ctx, now.Add(-alertRetention))
	if err != nil {
		s.logger.Error("alert prune failed", "error", err)
	} else if pruned > 0 {
		s.logger.Info("alert audit records pruned", "count", pruned)
	}
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("sweeper stopped")
}
