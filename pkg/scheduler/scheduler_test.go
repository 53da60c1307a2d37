package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"costwatch-hq/saturn/pkg/costdata"
	"costwatch-hq/saturn/pkg/pipeline"
	"costwatch-hq/saturn/pkg/storage"
)

// ============================================================================
// Cadence Tests
// ============================================================================

func TestNextInterval_Tiers(t *testing.T) {
	tests := []struct {
		name       string
		fraction   float64
		configured int
		want       time.Duration
	}{
		{"over budget", 1.2, 60, 5 * time.Minute},
		{"exactly at budget", 1.0, 60, 5 * time.Minute},
		{"near budget", 0.95, 60, 10 * time.Minute},
		{"exactly 90 percent", 0.9, 60, 10 * time.Minute},
		{"high", 0.85, 60, 15 * time.Minute},
		{"exactly 80 percent", 0.8, 60, 15 * time.Minute},
		{"elevated", 0.75, 60, 30 * time.Minute},
		{"exactly 70 percent", 0.7, 60, 30 * time.Minute},
		{"calm uses configured", 0.5, 45, 45 * time.Minute},
		{"just under 70 percent", 0.699, 60, 60 * time.Minute},
		{"no budget", 0.0, 60, 60 * time.Minute},
		{"configured above ceiling clamps", 0.1, 240, 60 * time.Minute},
		{"zero configured falls back", 0.1, 0, 60 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextInterval(tt.fraction, tt.configured)
			if got != tt.want {
				t.Errorf("NextInterval(%.3f, %d) = %v, want %v", tt.fraction, tt.configured, got, tt.want)
			}
		})
	}
}

func TestNextInterval_TightensMonotonically(t *testing.T) {
	prev := NextInterval(0, 60)
	for f := 0.05; f <= 1.2; f += 0.05 {
		got := NextInterval(f, 60)
		if got > prev {
			t.Errorf("NextInterval(%.2f) = %v loosened from %v", f, got, prev)
		}
		prev = got
	}
}

// ============================================================================
// Refresh Loop Tests
// ============================================================================

// countingFetcher records fetch invocations.
type countingFetcher struct {
	mu       sync.Mutex
	calls    int
	profiles []costdata.Profile
}

func (f *countingFetcher) Fetch(_ context.Context, profile costdata.Profile, _ bool) (*pipeline.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.profiles = append(f.profiles, profile)
	return &pipeline.Result{}, nil
}

func (f *countingFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestScheduler_CatchUpFetchOnStaleStart(t *testing.T) {
	fetcher := &countingFetcher{}
	sched := New(fetcher, storage.NewMemoryBackend(), nil)
	defer sched.Stop()

	// A zero lastFetch means the profile has never been fetched:
	// the first refresh runs immediately.
	sched.Start(context.Background(), "prod", time.Time{})

	waitFor(t, time.Second, func() bool { return fetcher.callCount() >= 1 })
	if sched.NextFireAt().IsZero() {
		t.Error("Expected a next firing scheduled after the catch-up")
	}
}

func TestScheduler_FreshStartWaitsForTick(t *testing.T) {
	fetcher := &countingFetcher{}
	sched := New(fetcher, storage.NewMemoryBackend(), nil)
	defer sched.Stop()

	sched.Start(context.Background(), "prod", time.Now())

	time.Sleep(50 * time.Millisecond)
	if fetcher.callCount() != 0 {
		t.Errorf("Fetches = %d, want 0 before the first tick", fetcher.callCount())
	}
	next := sched.NextFireAt()
	if next.IsZero() || time.Until(next) < 50*time.Minute {
		t.Errorf("NextFireAt = %v, want roughly an hour out", next)
	}
}

func TestScheduler_RestartSwitchesProfile(t *testing.T) {
	fetcher := &countingFetcher{}
	sched := New(fetcher, storage.NewMemoryBackend(), nil)
	defer sched.Stop()

	sched.Start(context.Background(), "prod", time.Time{})
	waitFor(t, time.Second, func() bool { return fetcher.callCount() >= 1 })

	sched.Start(context.Background(), "staging", time.Time{})
	waitFor(t, time.Second, func() bool { return fetcher.callCount() >= 2 })

	fetcher.mu.Lock()
	last := fetcher.profiles[len(fetcher.profiles)-1]
	fetcher.mu.Unlock()
	if last != "staging" {
		t.Errorf("Last fetched profile = %s, want staging", last)
	}
}

func TestScheduler_StopClearsSchedule(t *testing.T) {
	fetcher := &countingFetcher{}
	sched := New(fetcher, storage.NewMemoryBackend(), nil)

	sched.Start(context.Background(), "prod", time.Now())
	sched.Stop()

	if !sched.NextFireAt().IsZero() {
		t.Error("Expected NextFireAt cleared after Stop")
	}
	// Stop again is a no-op
	sched.Stop()
}

func TestScheduler_StaleFireDoesNotRearm(t *testing.T) {
	fetcher := &countingFetcher{}
	sched := New(fetcher, storage.NewMemoryBackend(), nil)
	defer sched.Stop()

	ctx := context.Background()
	sched.Start(ctx, "prod", time.Now())
	sched.mu.Lock()
	stale := sched.gen
	sched.mu.Unlock()

	// Restart as a new generation, then replay a firing armed under the
	// old one. It must neither fetch nor overwrite the live timer.
	sched.Stop()
	sched.Start(ctx, "staging", time.Now())
	before := sched.NextFireAt()

	sched.fire(ctx, "prod", stale)

	if fetcher.callCount() != 0 {
		t.Errorf("Fetches = %d, want 0 from a stale firing", fetcher.callCount())
	}
	if next := sched.NextFireAt(); !next.Equal(before) {
		t.Errorf("NextFireAt = %v, want %v untouched", next, before)
	}
}

func TestScheduler_CadenceFollowsSpend(t *testing.T) {
	store := storage.NewMemoryBackend()
	ctx := context.Background()

	budget := costdata.DefaultBudget("prod")
	budget.MonthlyBudget = 100
	if err := store.SaveBudget(ctx, budget); err != nil {
		t.Fatalf("SaveBudget() error = %v", err)
	}
	err := store.UpsertMonth(ctx, &costdata.MonthTotal{
		Profile:  "prod",
		Month:    costdata.MonthStart(time.Now().UTC()),
		Amount:   95,
		Currency: "USD",
	})
	if err != nil {
		t.Fatalf("UpsertMonth() error = %v", err)
	}

	fetcher := &countingFetcher{}
	sched := New(fetcher, store, nil)
	defer sched.Stop()

	// 95% of budget: the near-budget tier applies
	sched.Start(ctx, "prod", time.Now())
	next := sched.NextFireAt()
	until := time.Until(next)
	if until > 10*time.Minute || until < 9*time.Minute {
		t.Errorf("First firing in %v, want about 10 minutes", until.Round(time.Second))
	}
}

// ============================================================================
// Sweeper Tests
// ============================================================================

func TestSweeper_SweepClosesElapsedMonths(t *testing.T) {
	store := storage.NewMemoryBackend()
	ctx := context.Background()
	now := time.Now().UTC()

	past := costdata.MonthStart(now).AddDate(0, -2, 0)
	current := costdata.MonthStart(now)
	for _, m := range []time.Time{past, current} {
		err := store.UpsertMonth(ctx, &costdata.MonthTotal{
			Profile: "prod", Month: m, Amount: 100, Currency: "USD",
		})
		if err != nil {
			t.Fatalf("UpsertMonth() error = %v", err)
		}
	}

	s := NewSweeper(store, "", nil)
	s.Sweep(ctx)

	months, err := store.ListMonths(ctx, "prod")
	if err != nil {
		t.Fatalf("ListMonths() error = %v", err)
	}
	for _, m := range months {
		if m.Month.Equal(past) && !m.Complete {
			t.Error("Expected the elapsed month marked complete")
		}
		if m.Month.Equal(current) && m.Complete {
			t.Error("Expected the current month left open")
		}
	}
}

func TestSweeper_InvalidScheduleRejected(t *testing.T) {
	s := NewSweeper(storage.NewMemoryBackend(), "not a cron expr", nil)
	if err := s.Start(context.Background()); err == nil {
		t.Error("Expected an error for an invalid schedule")
	}
}
