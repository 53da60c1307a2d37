package synthetic

import (
	"context"
	"testing"
	"time"

	"costwatch-hq/saturn/pkg/costdata"
)

func fixedGenerator() *Generator {
	at := time.Date(2026, 8, 15, 18, 0, 0, 0, time.UTC)
	return NewGeneratorAt(func() time.Time { return at })
}

func TestGenerator_DeterministicPerDay(t *testing.T) {
	g := fixedGenerator()
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 16, 0, 0, 0, 0, time.UTC)

	first, err := g.FetchDaily(context.Background(), "demo", start, end)
	if err != nil {
		t.Fatalf("FetchDaily() error = %v", err)
	}
	second, err := g.FetchDaily(context.Background(), "demo", start, end)
	if err != nil {
		t.Fatalf("FetchDaily() error = %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("Row counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Row %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestGenerator_ProfilesDiverge(t *testing.T) {
	g := fixedGenerator()
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)

	a, _ := g.FetchDaily(context.Background(), "demo", start, end)
	b, _ := g.FetchDaily(context.Background(), "demo-eu", start, end)

	same := true
	for i := range a {
		if a[i].Amount != b[i].Amount {
			same = false
			break
		}
	}
	if same {
		t.Error("Expected different profiles to produce different series")
	}
}

func TestGenerator_ClampsToToday(t *testing.T) {
	g := fixedGenerator()
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	// Asking a week past today must not produce future rows
	end := time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC)

	rows, err := g.FetchDaily(context.Background(), "demo", start, end)
	if err != nil {
		t.Fatalf("FetchDaily() error = %v", err)
	}
	today := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	for _, row := range rows {
		if row.Date.After(today) {
			t.Fatalf("Row dated %v is in the future", row.Date)
		}
	}
	// 15 days, all services present each day
	wantRows := 15 * len(services)
	if len(rows) != wantRows {
		t.Errorf("Row count = %d, want %d", len(rows), wantRows)
	}
}

func TestGenerator_WeekendsRunCooler(t *testing.T) {
	g := fixedGenerator()
	// Aug 8 2026 is a Saturday, Aug 10 a Monday
	saturday := time.Date(2026, 8, 8, 0, 0, 0, 0, time.UTC)
	monday := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)

	totalFor := func(day time.Time) float64 {
		rows, err := g.FetchDaily(context.Background(), "demo", day, day.AddDate(0, 0, 1))
		if err != nil {
			t.Fatalf("FetchDaily() error = %v", err)
		}
		total := 0.0
		for _, row := range rows {
			total += row.Amount
		}
		return total
	}

	// Jitter spans 0.75-1.25 while the weekend factor is 0.6, so a full
	// weekday always outspends a weekend day.
	if totalFor(saturday) >= totalFor(monday) {
		t.Errorf("Saturday total %.2f >= Monday total %.2f", totalFor(saturday), totalFor(monday))
	}
}

func TestGenerator_PartialToday(t *testing.T) {
	// 6am: a quarter of the day elapsed
	early := NewGeneratorAt(func() time.Time {
		return time.Date(2026, 8, 15, 6, 0, 0, 0, time.UTC)
	})
	late := NewGeneratorAt(func() time.Time {
		return time.Date(2026, 8, 15, 23, 0, 0, 0, time.UTC)
	})
	today := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)

	sum := func(rows []costdata.DailyServiceCost) float64 {
		total := 0.0
		for _, row := range rows {
			total += row.Amount
		}
		return total
	}

	earlyRows, _ := early.FetchDaily(context.Background(), "demo", today, tomorrow)
	lateRows, _ := late.FetchDaily(context.Background(), "demo", today, tomorrow)
	if sum(earlyRows) >= sum(lateRows) {
		t.Errorf("6am total %.2f >= 11pm total %.2f, want spend accumulating through the day",
			sum(earlyRows), sum(lateRows))
	}
}
