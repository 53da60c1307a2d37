package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"costwatch-hq/saturn/pkg/costdata"
)

// MemoryBackend implements Backend with in-process maps. All data is
// lost when the process exits. It is the default for tests and for runs
// without a configured database path.
type MemoryBackend struct {
	mu      sync.RWMutex
	budgets map[costdata.Profile]*costdata.ProfileBudget
	months  map[monthKey]*costdata.MonthTotal
	alerts  []*costdata.SentAlert
	entries map[costdata.Profile]*costdata.CacheEntry
}

type monthKey struct {
	profile costdata.Profile
	month   time.Time
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		budgets: make(map[costdata.Profile]*costdata.ProfileBudget),
		months:  make(map[monthKey]*costdata.MonthTotal),
		entries: make(map[costdata.Profile]*costdata.CacheEntry),
	}
}

// GetBudget returns the budget for a profile, or ErrNotFound.
func (m *MemoryBackend) GetBudget(_ context.Context, profile costdata.Profile) (*costdata.ProfileBudget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	budget, ok := m.budgets[profile]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *budget
	return &cp, nil
}

// SaveBudget inserts or replaces a budget record.
func (m *MemoryBackend) SaveBudget(_ context.Context, budget *costdata.ProfileBudget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *budget
	m.budgets[budget.Profile] = &cp
	return nil
}

// UpsertMonth inserts or replaces the (profile, month) record.
func (m *MemoryBackend) UpsertMonth(_ context.Context, month *costdata.MonthTotal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *month
	cp.Month = costdata.MonthStart(month.Month)
	m.months[monthKey{month.Profile, cp.Month}] = &cp
	return nil
}

// GetMonth returns the (profile, month) record, or ErrNotFound.
func (m *MemoryBackend) GetMonth(_ context.Context, profile costdata.Profile, month time.Time) (*costdata.MonthTotal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.months[monthKey{profile, costdata.MonthStart(month)}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// ListMonths returns all history for a profile, ascending by month.
func (m *MemoryBackend) ListMonths(_ context.Context, profile costdata.Profile) ([]*costdata.MonthTotal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*costdata.MonthTotal
	for key, rec := range m.months {
		if key.profile == profile {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out, nil
}

// SweepComplete marks months strictly before the cutoff as complete.
func (m *MemoryBackend) SweepComplete(_ context.Context, before time.Time) (int, error) {
	cutoff := costdata.MonthStart(before)
	m.mu.Lock()
	defer m.mu.Unlock()
	changed := 0
	for _, rec := range m.months {
		if rec.Month.Before(cutoff) && !rec.Complete {
			rec.Complete = true
			changed++
		}
	}
	return changed, nil
}

// AppendAlert records a delivered notification.
func (m *MemoryBackend) AppendAlert(_ context.Context, alert *costdata.SentAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *alert
	m.alerts = append(m.alerts, &cp)
	return nil
}

// LastAlert returns the most recent delivery time for (profile, type).
func (m *MemoryBackend) LastAlert(_ context.Context, profile costdata.Profile, typ costdata.AlertType) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var last time.Time
	for _, a := range m.alerts {
		if a.Profile == profile && a.Type == typ && a.SentAt.After(last) {
			last = a.SentAt
		}
	}
	return last, nil
}

// PruneAlerts deletes audit records older than the cutoff.
func (m *MemoryBackend) PruneAlerts(_ context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.alerts[:0]
	removed := 0
	for _, a := range m.alerts {
		if a.SentAt.Before(olderThan) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	m.alerts = kept
	return removed, nil
}

// SaveEntry persists a cache snapshot.
func (m *MemoryBackend) SaveEntry(_ context.Context, entry *costdata.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.Profile] = entry
	return nil
}

// LoadEntries returns all persisted cache snapshots.
func (m *MemoryBackend) LoadEntries(_ context.Context) ([]*costdata.CacheEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*costdata.CacheEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out, nil
}

// Close is a no-op for the memory backend.
func (m *MemoryBackend) Close() error { return nil }
