package costdata

import "time"

// MonthTotal is one (profile, month) historical data point.
//
// The current month's record is continuously overwritten as new totals
// arrive and is never marked complete. Past months are swept to
// Complete=true once the wall clock advances past them.
type MonthTotal struct {
	// Profile is the profile this record belongs to.
	Profile Profile

	// Month is the first day of the month, midnight UTC.
	Month time.Time

	// Amount is the recorded total for the month.
	Amount float64

	// Currency is the ISO currency code.
	Currency string

	// Complete is true once the month has fully elapsed and the total
	// can be used as a closed baseline.
	Complete bool

	// ServiceTotals holds per-service totals for the month, used by the
	// service-deviation anomaly check against last month.
	ServiceTotals map[string]float64
}

// AnomalyType classifies a detected spending deviation.
type AnomalyType string

const (
	// AnomalyUnusualSpike marks spend well above the recent baseline.
	AnomalyUnusualSpike AnomalyType = "unusual_spike"

	// AnomalySuddenDrop marks spend well below the recent baseline.
	AnomalySuddenDrop AnomalyType = "sudden_drop"

	// AnomalyNewService marks a service dominating total spend.
	AnomalyNewService AnomalyType = "new_service"

	// AnomalyBudgetVelocity marks spend outpacing the elapsed month.
	AnomalyBudgetVelocity AnomalyType = "budget_velocity"
)

// Severity ranks an anomaly.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Anomaly is a detected spending deviation. Anomaly lists are recomputed
// wholesale on every fetch and never accumulated across fetches.
type Anomaly struct {
	// Type classifies the deviation.
	Type AnomalyType

	// Severity is warning or critical.
	Severity Severity

	// Message is a human-readable description.
	Message string

	// PercentDeviation is the deviation magnitude where applicable;
	// zero when the check has no percentage (e.g. exhausted budget).
	PercentDeviation float64

	// Service names the affected service for per-service checks.
	Service string
}

// AlertType names the notification categories subject to cooldown.
type AlertType string

const (
	// AlertThreshold fires when spend crosses the configured fraction
	// of budget without exceeding it.
	AlertThreshold AlertType = "threshold"

	// AlertBudgetExceeded fires when spend is at or over budget.
	AlertBudgetExceeded AlertType = "budget_exceeded"

	// AlertAnomaly fires on significant detected anomalies.
	AlertAnomaly AlertType = "anomaly"
)

// SentAlert is the audit record for a delivered notification. Records
// older than 24 hours are pruned; the set exists only to enforce
// per-(profile, type) cooldowns.
type SentAlert struct {
	// ID uniquely identifies the delivery.
	ID string

	// Profile is the profile the alert was about.
	Profile Profile

	// Type is the alert category.
	Type AlertType

	// SentAt is when the notification was delivered.
	SentAt time.Time
}
