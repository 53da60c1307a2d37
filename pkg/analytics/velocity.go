package analytics

import (
	"fmt"
	"time"

	"costwatch-hq/saturn/pkg/costdata"
)

// Velocity check boundaries. Spend must outpace the elapsed month by
// 1.5x and have consumed over half the budget before the check fires.
const (
	velocityPaceFactor   = 1.5
	velocityMinProgress  = 0.5
	velocityCriticalUsed = 0.9
)

// CheckBudgetVelocity flags spend that is outpacing the month. It
// compares spend progress (total/budget) against month progress
// (day/daysInMonth) and returns (anomaly, true) when spend runs more
// than 1.5x ahead of the calendar with over half the budget consumed.
//
// Profiles without a budget never trip the check.
func CheckBudgetVelocity(total float64, budget *costdata.ProfileBudget, now time.Time) (costdata.Anomaly, bool) {
	if !budget.HasBudget() {
		return costdata.Anomaly{}, false
	}

	monthProgress := float64(now.Day()) / float64(costdata.DaysInMonth(now))
	spendProgress := total / budget.MonthlyBudget

	if spendProgress <= monthProgress*velocityPaceFactor || spendProgress <= velocityMinProgress {
		return costdata.Anomaly{}, false
	}

	if budget.Remaining(total) <= 0 {
		return costdata.Anomaly{
			Type:     costdata.AnomalyBudgetVelocity,
			Severity: costdata.SeverityCritical,
			Message:  fmt.Sprintf("budget exhausted: %.2f of %.2f spent with %d days remaining", total, budget.MonthlyBudget, costdata.DaysInMonth(now)-now.Day()),
		}, true
	}

	pace := (spendProgress/monthProgress - 1) * 100
	severity := costdata.SeverityWarning
	if spendProgress > velocityCriticalUsed {
		severity = costdata.SeverityCritical
	}
	return costdata.Anomaly{
		Type:             costdata.AnomalyBudgetVelocity,
		Severity:         severity,
		Message:          fmt.Sprintf("spending %.0f%% faster than expected pace for this point in the month", pace),
		PercentDeviation: pace,
	}, true
}
