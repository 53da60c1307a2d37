// Package cache stores the most recent fetch result per profile with a
// budget-adaptive validity policy.
//
// Spend close to budget is more consequential to get fresh, so the
// validity window tightens as month-to-date spend approaches the monthly
// budget. The cache trades metered API cost (~$0.01 per call) against a
// staleness risk proportional to how much is at stake.
package cache

import (
	"sync"
	"time"

	"costwatch-hq/saturn/pkg/costdata"
)

// Validity tiers by budget fraction. Profiles without a budget use
// DefaultMaxAge.
const (
	// MaxAgeCritical applies above 95% of budget.
	MaxAgeCritical = 15 * time.Minute

	// MaxAgeHigh applies above 80% of budget.
	MaxAgeHigh = 30 * time.Minute

	// MaxAgeElevated applies above 50% of budget.
	MaxAgeElevated = 60 * time.Minute

	// MaxAgeRelaxed applies at or below 50% of budget.
	MaxAgeRelaxed = 120 * time.Minute

	// DefaultMaxAge is the flat window used when no budget is set.
	DefaultMaxAge = 60 * time.Minute

	// StalenessCeiling is the absolute limit on serving a stale entry
	// in place of a rate-limited live call. Beyond it the caller gets
	// the rate-limit error instead of silently old data.
	StalenessCeiling = 6 * time.Hour
)

// Cache holds one entry per profile. Entries are replaced wholesale and
// never mutated in place, so readers always observe complete snapshots.
type Cache struct {
	mu      sync.RWMutex
	entries map[costdata.Profile]*costdata.CacheEntry
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[costdata.Profile]*costdata.CacheEntry)}
}

// Get returns the entry for profile, or nil. Pure lookup, no side
// effects on validity.
func (c *Cache) Get(profile costdata.Profile) *costdata.CacheEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[profile]
}

// Put replaces the entry for profile wholesale.
func (c *Cache) Put(profile costdata.Profile, entry *costdata.CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[profile] = entry
}

// Profiles returns the profiles with a cached entry.
func (c *Cache) Profiles() []costdata.Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]costdata.Profile, 0, len(c.entries))
	for p := range c.entries {
		out = append(out, p)
	}
	return out
}

// MaxAge returns the validity window for an entry under the given
// budget. Without a budget the flat default window applies.
func MaxAge(entry *costdata.CacheEntry, budget *costdata.ProfileBudget) time.Duration {
	if !budget.HasBudget() {
		return DefaultMaxAge
	}
	pct := budget.UsedFraction(entry.MTDTotal)
	switch {
	case pct > 0.95:
		return MaxAgeCritical
	case pct > 0.80:
		return MaxAgeHigh
	case pct > 0.50:
		return MaxAgeElevated
	default:
		return MaxAgeRelaxed
	}
}

// IsValid reports whether the entry is fresh enough to serve without a
// live call, under the budget-adaptive policy.
func IsValid(entry *costdata.CacheEntry, budget *costdata.ProfileBudget, now time.Time) bool {
	if entry == nil {
		return false
	}
	return entry.Age(now) < MaxAge(entry, budget)
}

// IsValidDefault applies the flat fallback window for contexts without a
// profile budget.
func IsValidDefault(entry *costdata.CacheEntry, now time.Time) bool {
	if entry == nil {
		return false
	}
	return entry.Age(now) < DefaultMaxAge
}

// WithinCeiling reports whether a stale entry may still stand in for a
// rate-limited live call.
func WithinCeiling(entry *costdata.CacheEntry, now time.Time) bool {
	if entry == nil {
		return false
	}
	return entry.Age(now) < StalenessCeiling
}
