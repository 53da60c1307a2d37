package analytics

import (
	"time"

	"costwatch-hq/saturn/pkg/costdata"
)

// projectionWindow is how many trailing daily entries feed the
// projected daily rate.
const projectionWindow = 7

// Projection estimates the month-end total.
type Projection struct {
	// Total is the projected month-end spend: MTD plus the recent
	// daily average times the remaining days.
	Total float64

	// DailyAverage is the average over the trailing window.
	DailyAverage float64

	// RemainingDays is how many days of the month are left after today.
	RemainingDays int
}

// ProjectMonthEnd estimates month-end spend from the trailing daily
// average. Returns (zero, false) when the daily series is empty: an
// undefined projection, not a zero one.
func ProjectMonthEnd(daily []costdata.DailyCost, mtdTotal float64, now time.Time) (Projection, bool) {
	if len(daily) == 0 {
		return Projection{}, false
	}

	window := daily
	if len(window) > projectionWindow {
		window = window[len(window)-projectionWindow:]
	}
	var sum float64
	for _, d := range window {
		sum += d.Amount
	}
	avg := sum / float64(len(window))

	remaining := costdata.DaysInMonth(now) - now.Day()
	return Projection{
		Total:         mtdTotal + avg*float64(remaining),
		DailyAverage:  avg,
		RemainingDays: remaining,
	}, true
}
