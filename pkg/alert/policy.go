package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"costwatch-hq/saturn/pkg/costdata"
	"costwatch-hq/saturn/pkg/storage"
)

// DefaultCooldown is the minimum spacing between alerts of the same type
// for the same profile.
const DefaultCooldown = 60 * time.Minute

// auditRetention is how long delivered-alert records are kept. The audit
// log exists only to enforce cooldowns, so anything older is noise.
const auditRetention = 24 * time.Hour

// Config controls the alert policy.
type Config struct {
	// ThresholdEnabled gates near-threshold alerts.
	ThresholdEnabled bool

	// BudgetExceededEnabled gates over-budget alerts.
	BudgetExceededEnabled bool

	// AnomalyEnabled gates anomaly alerts.
	AnomalyEnabled bool

	// Cooldown is the per-(profile, type) suppression window.
	// Zero falls back to DefaultCooldown.
	Cooldown time.Duration

	// PermissionGranted reports whether the external notification
	// permission is currently granted. When it returns false the policy
	// still evaluates its checks but skips delivery. A nil func means
	// granted.
	PermissionGranted func() bool
}

// Suppression explains why a firing condition produced no delivery.
type Suppression string

const (
	SuppressedNone       Suppression = ""
	SuppressedDisabled   Suppression = "disabled"
	SuppressedCooldown   Suppression = "cooldown"
	SuppressedPermission Suppression = "permission"
)

// Decision records the outcome of one alert-type evaluation.
type Decision struct {
	Type         costdata.AlertType
	Fired        bool
	Delivered    bool
	SuppressedBy Suppression
}

// Policy evaluates alert conditions and delivers notifications.
type Policy struct {
	config Config
	audit  storage.Backend
	sinks  []Sink
	logger *slog.Logger

	// now is injectable for testing.
	now func() time.Time
}

// NewPolicy creates an alert policy writing audit records to the given
// backend and delivering through the given sinks.
func NewPolicy(config Config, audit storage.Backend, sinks []Sink, logger *slog.Logger) *Policy {
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultCooldown
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{
		config: config,
		audit:  audit,
		sinks:  sinks,
		logger: logger.With("component", "alert.policy"),
		now:    time.Now,
	}
}

// Evaluate runs all alert checks for a profile after a successful fetch.
//
// Threshold and budget-exceeded are mutually exclusive for a single
// evaluation: at or over budget only the budget-exceeded alert fires.
func (p *Policy) Evaluate(ctx context.Context, budget *costdata.ProfileBudget, mtdTotal float64, anomalies []costdata.Anomaly) []Decision {
	var decisions []Decision
	pct := budget.UsedFraction(mtdTotal)

	overBudget := budget.HasBudget() && pct >= 1.0
	nearThreshold := budget.HasBudget() && !overBudget && pct >= budget.AlertThreshold

	if overBudget {
		decisions = append(decisions, p.emit(ctx, budget.Profile, costdata.AlertBudgetExceeded, p.config.BudgetExceededEnabled, Notification{
			Profile:  budget.Profile,
			Type:     costdata.AlertBudgetExceeded,
			Title:    fmt.Sprintf("Budget exceeded for %s", budget.Profile),
			Body:     fmt.Sprintf("%.2f spent of %.2f monthly budget (%.0f%%)", mtdTotal, budget.MonthlyBudget, pct*100),
			Critical: true,
		}))
	} else if nearThreshold {
		decisions = append(decisions, p.emit(ctx, budget.Profile, costdata.AlertThreshold, p.config.ThresholdEnabled, Notification{
			Profile: budget.Profile,
			Type:    costdata.AlertThreshold,
			Title:   fmt.Sprintf("Budget threshold reached for %s", budget.Profile),
			Body:    fmt.Sprintf("%.0f%% of monthly budget used (threshold %.0f%%)", pct*100, budget.AlertThreshold*100),
		}))
	}

	if significant(anomalies) {
		critical := false
		for _, a := range anomalies {
			if a.Severity == costdata.SeverityCritical {
				critical = true
				break
			}
		}
		decisions = append(decisions, p.emit(ctx, budget.Profile, costdata.AlertAnomaly, p.config.AnomalyEnabled, Notification{
			Profile:  budget.Profile,
			Type:     costdata.AlertAnomaly,
			Title:    fmt.Sprintf("Spending anomalies detected for %s", budget.Profile),
			Body:     summarize(anomalies),
			Critical: critical,
		}))
	}

	return decisions
}

// significant reports whether the anomaly list warrants a notification:
// at least one critical anomaly, or at least two of any severity.
func significant(anomalies []costdata.Anomaly) bool {
	if len(anomalies) >= 2 {
		return true
	}
	for _, a := range anomalies {
		if a.Severity == costdata.SeverityCritical {
			return true
		}
	}
	return false
}

// summarize joins the first few anomaly messages into one body line.
func summarize(anomalies []costdata.Anomaly) string {
	const maxShown = 3
	body := ""
	for i, a := range anomalies {
		if i == maxShown {
			body += fmt.Sprintf("; and %d more", len(anomalies)-maxShown)
			break
		}
		if i > 0 {
			body += "; "
		}
		body += a.Message
	}
	return body
}

// emit applies the enabled flag, cooldown, and permission gate in that
// order, then delivers and records the audit entry.
func (p *Policy) emit(ctx context.Context, profile costdata.Profile, typ costdata.AlertType, enabled bool, n Notification) Decision {
	decision := Decision{Type: typ, Fired: true}

	if !enabled {
		decision.SuppressedBy = SuppressedDisabled
		return decision
	}

	last, err := p.audit.LastAlert(ctx, profile, typ)
	if err != nil {
		p.logger.Error("cooldown lookup failed", "profile", profile, "alert_type", typ, "error", err)
	}
	now := p.now()
	if !last.IsZero() && now.Sub(last) < p.config.Cooldown {
		decision.SuppressedBy = SuppressedCooldown
		return decision
	}

	if p.config.PermissionGranted != nil && !p.config.PermissionGranted() {
		decision.SuppressedBy = SuppressedPermission
		return decision
	}

	delivered := false
	for _, sink := range p.sinks {
		if err := sink.Send(ctx, n); err != nil {
			p.logger.Error("alert delivery failed", "sink", sink.Name(), "profile", profile, "alert_type", typ, "error", err)
			continue
		}
		delivered = true
	}
	if !delivered {
		return decision
	}
	decision.Delivered = true

	if err := p.audit.AppendAlert(ctx, &costdata.SentAlert{
		ID:      uuid.NewString(),
		Profile: profile,
		Type:    typ,
		SentAt:  now,
	}); err != nil {
		p.logger.Error("alert audit append failed", "profile", profile, "alert_type", typ, "error", err)
	}
	if _, err := p.audit.PruneAlerts(ctx, now.Add(-auditRetention)); err != nil {
		p.logger.Error("alert audit prune failed", "error", err)
	}
	return decision
}
