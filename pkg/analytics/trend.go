package analytics

import (
	"math"
	"time"

	"costwatch-hq/saturn/pkg/costdata"
)

// TrendDirection classifies how current spend compares to the pace of
// last month.
type TrendDirection string

const (
	TrendStable TrendDirection = "stable"
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
)

// stableBand is the percentage change below which the trend reads stable.
const stableBand = 2.0

// Trend is the result of comparing current MTD spend against last
// month's total projected to the same day-of-month.
type Trend struct {
	// Direction is up, down, or stable.
	Direction TrendDirection

	// ChangePercent is the absolute percentage change versus the
	// projected last-month baseline. Zero for stable.
	ChangePercent float64

	// Baseline is last month's total scaled to the current day number.
	Baseline float64
}

// ComputeTrend compares currentMTD against lastMonthTotal projected to
// the same day-of-month: last month's daily average times the current day
// number. Absent last-month data or a zero baseline resolves to stable.
func ComputeTrend(currentMTD, lastMonthTotal float64, now time.Time) Trend {
	if lastMonthTotal <= 0 {
		return Trend{Direction: TrendStable}
	}

	// Subtract the month from the month start, not from now: AddDate on
	// Mar 29-31 normalizes Feb 29-31 into early March and yields the
	// wrong month's day count.
	lastMonth := costdata.MonthStart(now).AddDate(0, -1, 0)
	daysInLastMonth := costdata.DaysInMonth(lastMonth)
	baseline := lastMonthTotal / float64(daysInLastMonth) * float64(now.Day())
	if baseline <= 0 {
		return Trend{Direction: TrendStable}
	}

	change := (currentMTD - baseline) / baseline * 100
	switch {
	case math.Abs(change) < stableBand:
		return Trend{Direction: TrendStable, Baseline: baseline}
	case change > 0:
		return Trend{Direction: TrendUp, ChangePercent: change, Baseline: baseline}
	default:
		return Trend{Direction: TrendDown, ChangePercent: -change, Baseline: baseline}
	}
}
