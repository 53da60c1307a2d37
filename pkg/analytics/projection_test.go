package analytics

import (
	"testing"
	"time"

	"costwatch-hq/saturn/pkg/costdata"
)

// ============================================================================
// Projection Tests
// ============================================================================

func dailySeries(start time.Time, amounts ...float64) []costdata.DailyCost {
	out := make([]costdata.DailyCost, len(amounts))
	for i, a := range amounts {
		out[i] = costdata.DailyCost{Date: start.AddDate(0, 0, i), Amount: a, Currency: "USD"}
	}
	return out
}

func TestProjectMonthEnd_EmptySeriesIsUndefined(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	if _, ok := ProjectMonthEnd(nil, 0, now); ok {
		t.Error("Expected no projection for an empty daily series")
	}
	if _, ok := ProjectMonthEnd([]costdata.DailyCost{}, 100, now); ok {
		t.Error("Expected no projection for an empty daily series")
	}
}

func TestProjectMonthEnd_UsesTrailingWindow(t *testing.T) {
	// August 15: 16 days remain. Ten days of data, the last seven at
	// 10/day; the first three at 100/day must not influence the rate.
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	start := time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC)
	daily := dailySeries(start, 100, 100, 100, 10, 10, 10, 10, 10, 10, 10)

	proj, ok := ProjectMonthEnd(daily, 370, now)
	if !ok {
		t.Fatal("Expected a projection")
	}
	if proj.DailyAverage != 10 {
		t.Errorf("DailyAverage = %.2f, want 10.00 from the trailing window", proj.DailyAverage)
	}
	if proj.RemainingDays != 16 {
		t.Errorf("RemainingDays = %d, want 16", proj.RemainingDays)
	}
	// 370 MTD + 10/day * 16 days
	if proj.Total != 530 {
		t.Errorf("Total = %.2f, want 530.00", proj.Total)
	}
}

func TestProjectMonthEnd_ShortSeries(t *testing.T) {
	now := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	daily := dailySeries(start, 6, 12)

	proj, ok := ProjectMonthEnd(daily, 18, now)
	if !ok {
		t.Fatal("Expected a projection")
	}
	if proj.DailyAverage != 9 {
		t.Errorf("DailyAverage = %.2f, want 9.00", proj.DailyAverage)
	}
	// 28 days remain after August 3
	if proj.RemainingDays != 28 {
		t.Errorf("RemainingDays = %d, want 28", proj.RemainingDays)
	}
	if proj.Total != 18+9*28 {
		t.Errorf("Total = %.2f, want %.2f", proj.Total, 18+9.0*28)
	}
}

func TestProjectMonthEnd_LastDayOfMonth(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	start := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	daily := dailySeries(start, 10, 10, 10, 10, 10, 10, 10)

	proj, ok := ProjectMonthEnd(daily, 310, now)
	if !ok {
		t.Fatal("Expected a projection")
	}
	if proj.RemainingDays != 0 {
		t.Errorf("RemainingDays = %d, want 0", proj.RemainingDays)
	}
	if proj.Total != 310 {
		t.Errorf("Total = %.2f, want the MTD total on the last day", proj.Total)
	}
}
