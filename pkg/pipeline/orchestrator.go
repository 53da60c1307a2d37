// Package pipeline implements the fetch orchestrator: the coordinator
// invoked on manual refresh, timer fire, or profile switch.
//
// A fetch sequences cache check, circuit-breaker check, rate-limit
// check, provider call, cache update, history append, analytics, and
// alert evaluation, short-circuiting at the first gate that refuses.
// Analytics and alert evaluation run as synchronous continuations of a
// successful fetch so observers see a consistent state afterward.
//
// The rate limiter and circuit breaker are process-wide: the provider's
// throttling and a systemic outage are properties of the account/API,
// not of any one profile, so fetches across profiles share those gates.
// The cache and the single-flight guard are per-profile.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"costwatch-hq/saturn/pkg/alert"
	"costwatch-hq/saturn/pkg/analytics"
	"costwatch-hq/saturn/pkg/costdata"
	"costwatch-hq/saturn/pkg/pipeline/breaker"
	"costwatch-hq/saturn/pkg/pipeline/cache"
	"costwatch-hq/saturn/pkg/pipeline/ratelimit"
	"costwatch-hq/saturn/pkg/provider"
	"costwatch-hq/saturn/pkg/storage"
)

// Observer receives pipeline events for metrics. All methods must be
// cheap and non-blocking.
type Observer interface {
	FetchObserved(profile costdata.Profile, outcome string, elapsed time.Duration)
	CacheObserved(profile costdata.Profile, event string)
	BreakerObserved(open bool, consecutiveFailures int)
	SpendObserved(profile costdata.Profile, mtdTotal, budgetFraction, projection float64)
}

// Fetch outcome labels reported to the Observer.
const (
	OutcomeSuccess     = "success"
	OutcomeProviderErr = "provider_error"
	OutcomeConfigErr   = "config_error"
	OutcomeCircuitOpen = "circuit_open"
	OutcomeRateLimited = "rate_limited"
)

// Cache event labels reported to the Observer.
const (
	CacheHit         = "hit"
	CacheMiss        = "miss"
	CacheStaleServed = "stale_served"
)

// Orchestrator coordinates the fetch-cache-analyze pipeline.
type Orchestrator struct {
	live  provider.Provider
	demo  provider.Provider
	cache *cache.Cache

	limiter *ratelimit.Limiter
	breaker *breaker.Breaker

	store   storage.Backend
	policy  *alert.Policy
	detect  analytics.DetectorConfig
	observe Observer
	logger  *slog.Logger

	demoProfiles map[costdata.Profile]bool
	flights      *flightGroup

	// backfills tracks in-flight last-month backfills per profile.
	backfillMu sync.Mutex
	backfills  map[costdata.Profile]bool

	// now is injectable for testing.
	now func() time.Time
}

// Options configures an Orchestrator.
type Options struct {
	// Live fetches real cost data. Required.
	Live provider.Provider

	// Demo generates synthetic data for demo profiles. Optional.
	Demo provider.Provider

	// DemoProfiles names the profiles served by Demo. Demo profiles
	// bypass the cache and both call gates entirely.
	DemoProfiles []costdata.Profile

	// Store persists budgets, history, audit records, and snapshots.
	// Required.
	Store storage.Backend

	// Policy evaluates alert conditions after successful fetches.
	// Optional; nil disables alerting.
	Policy *alert.Policy

	// Detector configures anomaly detection.
	Detector analytics.DetectorConfig

	// Observer receives metrics events. Optional.
	Observer Observer

	// Limiter and Breaker default to fresh instances with standard
	// thresholds when nil.
	Limiter *ratelimit.Limiter
	Breaker *breaker.Breaker

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// New creates an orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewLimiter(ratelimit.DefaultMinInterval)
	}
	if opts.Breaker == nil {
		opts.Breaker = breaker.New(breaker.DefaultThreshold)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	demo := make(map[costdata.Profile]bool, len(opts.DemoProfiles))
	for _, p := range opts.DemoProfiles {
		demo[p] = true
	}

	return &Orchestrator{
		live:         opts.Live,
		demo:         opts.Demo,
		cache:        cache.New(),
		limiter:      opts.Limiter,
		breaker:      opts.Breaker,
		store:        opts.Store,
		policy:       opts.Policy,
		detect:       opts.Detector,
		observe:      opts.Observer,
		logger:       opts.Logger.With("component", "pipeline"),
		demoProfiles: demo,
		flights:      newFlightGroup(),
		backfills:    make(map[costdata.Profile]bool),
		now:          time.Now,
	}
}

// Cache exposes the entry cache for read-only observers (status
// displays, warm restore).
func (o *Orchestrator) Cache() *cache.Cache { return o.cache }

// Breaker exposes breaker state for status displays.
func (o *Orchestrator) Breaker() *breaker.Breaker { return o.breaker }

// Limiter exposes limiter state for status displays.
func (o *Orchestrator) Limiter() *ratelimit.Limiter { return o.limiter }

// Restore seeds the cache from persisted snapshots. Called once at
// startup before any fetch.
func (o *Orchestrator) Restore(ctx context.Context) error {
	entries, err := o.store.LoadEntries(ctx)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		o.cache.Put(entry.Profile, entry)
	}
	if len(entries) > 0 {
		o.logger.Info("cache restored from storage", "entries", len(entries))
	}
	return nil
}

// Fetch runs the pipeline for a profile. With force set, the cache,
// breaker, and limiter gates are bypassed; the call time is still
// recorded so subsequent automatic calls stay throttled.
//
// At most one live fetch per profile is in flight at a time; concurrent
// callers for the same profile join the pending result.
func (o *Orchestrator) Fetch(ctx context.Context, profile costdata.Profile, force bool) (*Result, error) {
	if profile == "" {
		return nil, ErrNoProfile
	}

	result, err, joined := o.flights.do(profile, func() (*Result, error) {
		return o.fetch(ctx, profile, force)
	})
	if joined {
		o.logger.Debug("joined in-flight fetch", "profile", profile)
	}
	return result, err
}

// fetch is the single-flight body.
func (o *Orchestrator) fetch(ctx context.Context, profile costdata.Profile, force bool) (*Result, error) {
	start := o.now()

	// Demo profiles regenerate synthetic data on every call.
	if o.demoProfiles[profile] && o.demo != nil {
		return o.fetchDemo(ctx, profile)
	}

	budget, err := storage.EnsureBudget(ctx, o.store, profile)
	if err != nil {
		return nil, err
	}

	// Step 1: valid cache entry short-circuits everything.
	entry := o.cache.Get(profile)
	if !force && cache.IsValid(entry, budget, o.now()) {
		o.cacheEvent(profile, CacheHit)
		return o.buildResult(ctx, profile, budget, entry, true, false, false), nil
	}
	o.cacheEvent(profile, CacheMiss)

	// Step 2: circuit breaker.
	if !o.breaker.Allow(force) {
		o.fetchEvent(profile, OutcomeCircuitOpen, o.now().Sub(start))
		return nil, ErrCircuitOpen
	}

	// Step 3: rate limit. A stale entry within the ceiling is
	// preferred over a hard error.
	now := o.now()
	if !force && !o.limiter.CanCall(now) {
		if entry != nil && cache.WithinCeiling(entry, now) {
			o.cacheEvent(profile, CacheStaleServed)
			o.fetchEvent(profile, OutcomeRateLimited, o.now().Sub(start))
			o.logger.Warn("rate limited, serving stale cache",
				"profile", profile,
				"entry_age", entry.Age(now).Round(time.Second),
			)
			return o.buildResult(ctx, profile, budget, entry, true, true, false), nil
		}
		o.fetchEvent(profile, OutcomeRateLimited, o.now().Sub(start))
		return nil, &RateLimitError{WaitSeconds: o.limiter.SecondsUntilNext(now)}
	}

	// Step 4: record the call time before invoking the provider so a
	// slow call cannot admit a second one.
	o.limiter.Record(now)

	// Step 5: live call for the month-to-date range.
	monthStart := costdata.MonthStart(now)
	tomorrow := costdata.Day(now).AddDate(0, 0, 1)
	rows, err := o.live.FetchDaily(ctx, profile, monthStart, tomorrow)
	if err != nil {
		return nil, o.recordFailure(profile, err, o.now().Sub(start))
	}
	// An empty result is a failure, not a $0 month: caching it would
	// mask a provider fault and reset the breaker.
	if len(rows) == 0 {
		return nil, o.recordFailure(profile, provider.ErrNoData, o.now().Sub(start))
	}

	// Step 6: success path.
	entry = costdata.NewCacheEntry(profile, rows, monthStart, tomorrow, o.now())
	o.cache.Put(profile, entry)
	o.breaker.Success()
	o.breakerEvent()

	if err := o.store.SaveEntry(ctx, entry); err != nil {
		o.logger.Error("cache snapshot save failed", "profile", profile, "error", err)
	}
	o.recordHistory(ctx, profile, entry)
	o.maybeBackfillLastMonth(profile)

	o.fetchEvent(profile, OutcomeSuccess, o.now().Sub(start))
	o.logger.Info("fetch complete",
		"profile", profile,
		"mtd_total", entry.MTDTotal,
		"services", len(entry.ServiceCosts),
		"days", len(entry.DailyCosts),
	)

	return o.buildResult(ctx, profile, budget, entry, false, false, true), nil
}

// fetchDemo serves a demo profile: regenerate, no gates, no persistence.
func (o *Orchestrator) fetchDemo(ctx context.Context, profile costdata.Profile) (*Result, error) {
	now := o.now()
	monthStart := costdata.MonthStart(now)
	tomorrow := costdata.Day(now).AddDate(0, 0, 1)

	rows, err := o.demo.FetchDaily(ctx, profile, monthStart, tomorrow)
	if err != nil {
		return nil, &FetchError{Profile: profile, Err: err}
	}
	entry := costdata.NewCacheEntry(profile, rows, monthStart, tomorrow, now)
	o.cache.Put(profile, entry)

	budget, err := storage.EnsureBudget(ctx, o.store, profile)
	if err != nil {
		return nil, err
	}
	return o.buildResult(ctx, profile, budget, entry, false, false, false), nil
}

// recordFailure maps a provider error into the taxonomy and updates the
// breaker. Configuration errors never count against the breaker. The
// prior cache entry is left untouched either way: it serves as fallback
// for the next attempt, not for this one.
func (o *Orchestrator) recordFailure(profile costdata.Profile, err error, elapsed time.Duration) error {
	if provider.IsConfigError(err) {
		o.fetchEvent(profile, OutcomeConfigErr, elapsed)
		return err
	}

	opened := o.breaker.Failure()
	o.breakerEvent()
	o.fetchEvent(profile, OutcomeProviderErr, elapsed)
	if opened {
		o.logger.Error("circuit breaker opened",
			"profile", profile,
			"consecutive_failures", o.breaker.ConsecutiveFailures(),
			"error", err,
		)
	} else {
		o.logger.Warn("fetch failed",
			"profile", profile,
			"consecutive_failures", o.breaker.ConsecutiveFailures(),
			"error", err,
		)
	}
	return &FetchError{Profile: profile, Err: err}
}

// recordHistory upserts the current month's running total. The current
// month is never marked complete; the nightly sweep closes past months.
func (o *Orchestrator) recordHistory(ctx context.Context, profile costdata.Profile, entry *costdata.CacheEntry) {
	serviceTotals := make(map[string]float64, len(entry.ServiceCosts))
	for _, svc := range entry.ServiceCosts {
		serviceTotals[svc.Service] = svc.Amount
	}
	err := o.store.UpsertMonth(ctx, &costdata.MonthTotal{
		Profile:       profile,
		Month:         costdata.MonthStart(entry.FetchedAt),
		Amount:        entry.MTDTotal,
		Currency:      entry.Currency,
		Complete:      false,
		ServiceTotals: serviceTotals,
	})
	if err != nil {
		o.logger.Error("history upsert failed", "profile", profile, "error", err)
	}
}

// maybeBackfillLastMonth fetches last month's totals in the background
// when history has no record for them yet. The backfill waits for the
// rate limiter cooperatively so it never stalls other profiles, and its
// failures are logged, not counted against the breaker: the main fetch
// already succeeded.
func (o *Orchestrator) maybeBackfillLastMonth(profile costdata.Profile) {
	lastMonth := costdata.MonthStart(o.now()).AddDate(0, -1, 0)
	if _, err := o.store.GetMonth(context.Background(), profile, lastMonth); err == nil {
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		o.logger.Error("history lookup failed", "profile", profile, "error", err)
		return
	}

	o.backfillMu.Lock()
	if o.backfills[profile] {
		o.backfillMu.Unlock()
		return
	}
	o.backfills[profile] = true
	o.backfillMu.Unlock()

	go func() {
		defer func() {
			o.backfillMu.Lock()
			delete(o.backfills, profile)
			o.backfillMu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		// Cooperative wait for the shared limiter.
		for !o.limiter.CanCall(o.now()) {
			wait := time.Duration(o.limiter.SecondsUntilNext(o.now())) * time.Second
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait + time.Second):
			}
		}
		o.limiter.Record(o.now())

		end := lastMonth.AddDate(0, 1, 0)
		rows, err := o.live.FetchDaily(ctx, profile, lastMonth, end)
		if err != nil {
			o.logger.Warn("last-month backfill failed", "profile", profile, "error", err)
			return
		}

		var total float64
		currency := ""
		serviceTotals := make(map[string]float64)
		for _, row := range rows {
			total += row.Amount
			serviceTotals[row.Service] += row.Amount
			if currency == "" {
				currency = row.Currency
			}
		}
		err = o.store.UpsertMonth(ctx, &costdata.MonthTotal{
			Profile:       profile,
			Month:         lastMonth,
			Amount:        total,
			Currency:      currency,
			Complete:      true,
			ServiceTotals: serviceTotals,
		})
		if err != nil {
			o.logger.Error("last-month backfill upsert failed", "profile", profile, "error", err)
			return
		}
		o.logger.Info("last-month history backfilled", "profile", profile, "total", total)
	}()
}

// buildResult derives analytics from the entry and, for live fetches,
// evaluates the alert policy. Cache hits skip alert evaluation: no new
// information arrived.
func (o *Orchestrator) buildResult(ctx context.Context, profile costdata.Profile, budget *costdata.ProfileBudget, entry *costdata.CacheEntry, fromCache, rateLimited, evaluateAlerts bool) *Result {
	now := o.now()

	var lastMonthTotal float64
	var lastMonthServices map[string]float64
	lastMonth := costdata.MonthStart(now).AddDate(0, -1, 0)
	if rec, err := o.store.GetMonth(ctx, profile, lastMonth); err == nil {
		lastMonthTotal = rec.Amount
		lastMonthServices = rec.ServiceTotals
	}

	result := &Result{
		Entry:       entry,
		FromCache:   fromCache,
		RateLimited: rateLimited,
		Trend:       analytics.ComputeTrend(entry.MTDTotal, lastMonthTotal, now),
	}
	result.Projection, result.ProjectionOK = analytics.ProjectMonthEnd(entry.DailyCosts, entry.MTDTotal, now)

	result.Anomalies = analytics.DetectAnomalies(o.detect, entry.DailyCosts, entry.ServiceCosts, lastMonthServices)
	if velocity, ok := analytics.CheckBudgetVelocity(entry.MTDTotal, budget, now); ok && o.detect.Enabled {
		result.Anomalies = append(result.Anomalies, velocity)
	}

	if o.observe != nil {
		projection := 0.0
		if result.ProjectionOK {
			projection = result.Projection.Total
		}
		o.observe.SpendObserved(profile, entry.MTDTotal, budget.UsedFraction(entry.MTDTotal), projection)
	}

	if evaluateAlerts && o.policy != nil {
		result.Alerts = o.policy.Evaluate(ctx, budget, entry.MTDTotal, result.Anomalies)
	}
	return result
}

func (o *Orchestrator) fetchEvent(profile costdata.Profile, outcome string, elapsed time.Duration) {
	if o.observe != nil {
		o.observe.FetchObserved(profile, outcome, elapsed)
	}
}

func (o *Orchestrator) cacheEvent(profile costdata.Profile, event string) {
	if o.observe != nil {
		o.observe.CacheObserved(profile, event)
	}
}

func (o *Orchestrator) breakerEvent() {
	if o.observe != nil {
		o.observe.BreakerObserved(o.breaker.IsOpen(), o.breaker.ConsecutiveFailures())
	}
}
