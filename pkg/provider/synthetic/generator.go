// Package synthetic generates deterministic demo cost data.
//
// Demo profiles bypass the cache and the call gates entirely: every fetch
// regenerates the series so screenshots and onboarding flows always show
// plausible, fresh-looking data without touching AWS.
package synthetic

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"costwatch-hq/saturn/pkg/costdata"
)

// Services mirrors a typical small-account service mix with rough
// daily base costs in USD.
var services = []struct {
	name string
	base float64
}{
	{"Amazon Elastic Compute Cloud - Compute", 4.20},
	{"Amazon Relational Database Service", 2.80},
	{"Amazon Simple Storage Service", 0.90},
	{"AWS Lambda", 0.35},
	{"Amazon CloudWatch", 0.25},
	{"Amazon Route 53", 0.05},
}

// Generator produces synthetic month-to-date cost series.
type Generator struct {
	// now is injectable for testing.
	now func() time.Time
}

// NewGenerator creates a demo data generator.
func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// NewGeneratorAt creates a generator with a fixed clock, for testing.
func NewGeneratorAt(now func() time.Time) *Generator {
	return &Generator{now: now}
}

// FetchDaily generates per-day per-service rows for [start, end),
// clamped to today. The series is deterministic per (profile, day) so
// repeated fetches within a day agree with each other while different
// profiles diverge.
func (g *Generator) FetchDaily(_ context.Context, profile costdata.Profile, start, end time.Time) ([]costdata.DailyServiceCost, error) {
	today := costdata.Day(g.now())
	if end.After(today.AddDate(0, 0, 1)) {
		end = today.AddDate(0, 0, 1)
	}

	var rows []costdata.DailyServiceCost
	for day := costdata.Day(start); day.Before(end); day = day.AddDate(0, 0, 1) {
		rng := rand.New(rand.NewSource(seed(profile, day)))
		// Weekday traffic runs hotter than weekends.
		weekday := 1.0
		switch day.Weekday() {
		case time.Saturday, time.Sunday:
			weekday = 0.6
		}
		for _, svc := range services {
			jitter := 0.75 + rng.Float64()*0.5
			amount := svc.base * weekday * jitter
			// A partial day for today.
			if day.Equal(today) {
				elapsed := g.now().Sub(today).Hours() / 24
				amount *= math.Max(elapsed, 0.05)
			}
			rows = append(rows, costdata.DailyServiceCost{
				Date:     day,
				Service:  svc.name,
				Amount:   math.Round(amount*100) / 100,
				Currency: "USD",
			})
		}
	}
	return rows, nil
}

// seed derives a stable per-(profile, day) RNG seed.
func seed(profile costdata.Profile, day time.Time) int64 {
	h := fnv.New64a()
	h.Write([]byte(profile))
	h.Write([]byte(day.Format("2006-01-02")))
	return int64(h.Sum64())
}
