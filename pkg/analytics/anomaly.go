package analytics

import (
	"fmt"
	"math"

	"costwatch-hq/saturn/pkg/costdata"
)

// DetectorConfig controls anomaly detection.
type DetectorConfig struct {
	// Enabled gates all anomaly checks.
	Enabled bool

	// DeviationThresholdPercent is the minimum deviation to flag, for
	// both the daily and per-service checks.
	DeviationThresholdPercent float64
}

// DefaultDeviationThreshold is the default flagging threshold.
const DefaultDeviationThreshold = 25.0

// Per-check escalation boundaries.
const (
	dailyCriticalPercent    = 50.0
	serviceCriticalPercent  = 100.0
	dominantSharePercent    = 30.0
	dominantCriticalPercent = 50.0
	topServicesChecked      = 3
)

// DetectAnomalies runs the daily-deviation, service-deviation, and
// dominant-service checks and returns the combined list. The list is
// computed fresh on every call; identical inputs yield identical output.
//
// lastMonthServices maps service name to last month's recorded total and
// may be nil when no history exists yet.
func DetectAnomalies(cfg DetectorConfig, daily []costdata.DailyCost, services []costdata.ServiceCost, lastMonthServices map[string]float64) []costdata.Anomaly {
	if !cfg.Enabled {
		return nil
	}
	threshold := cfg.DeviationThresholdPercent
	if threshold <= 0 {
		threshold = DefaultDeviationThreshold
	}

	var anomalies []costdata.Anomaly
	anomalies = append(anomalies, dailyDeviations(daily, threshold)...)
	anomalies = append(anomalies, serviceDeviations(services, lastMonthServices, threshold)...)
	anomalies = append(anomalies, dominantServices(services)...)
	return anomalies
}

// dailyDeviations compares each of the trailing 7 days to their mean.
func dailyDeviations(daily []costdata.DailyCost, threshold float64) []costdata.Anomaly {
	window := daily
	if len(window) > 7 {
		window = window[len(window)-7:]
	}
	if len(window) == 0 {
		return nil
	}

	var sum float64
	for _, d := range window {
		sum += d.Amount
	}
	mean := sum / float64(len(window))
	if mean <= 0 {
		return nil
	}

	var anomalies []costdata.Anomaly
	for _, d := range window {
		deviation := math.Abs(d.Amount-mean) / mean * 100
		if deviation <= threshold {
			continue
		}
		typ := costdata.AnomalyUnusualSpike
		verb := "above"
		if d.Amount < mean {
			typ = costdata.AnomalySuddenDrop
			verb = "below"
		}
		severity := costdata.SeverityWarning
		if deviation > dailyCriticalPercent {
			severity = costdata.SeverityCritical
		}
		anomalies = append(anomalies, costdata.Anomaly{
			Type:             typ,
			Severity:         severity,
			Message:          fmt.Sprintf("spend on %s was %.0f%% %s the 7-day average", d.Date.Format("Jan 2"), deviation, verb),
			PercentDeviation: deviation,
		})
	}
	return anomalies
}

// serviceDeviations compares the top services against their recorded
// last-month totals.
func serviceDeviations(services []costdata.ServiceCost, lastMonth map[string]float64, threshold float64) []costdata.Anomaly {
	if len(lastMonth) == 0 {
		return nil
	}

	top := services
	if len(top) > topServicesChecked {
		top = top[:topServicesChecked]
	}

	var anomalies []costdata.Anomaly
	for _, svc := range top {
		prev, ok := lastMonth[svc.Service]
		if !ok || prev <= 0 {
			continue
		}
		change := (svc.Amount - prev) / prev * 100
		if math.Abs(change) <= threshold {
			continue
		}
		typ := costdata.AnomalyUnusualSpike
		verb := "up"
		if change < 0 {
			typ = costdata.AnomalySuddenDrop
			verb = "down"
		}
		severity := costdata.SeverityWarning
		if math.Abs(change) > serviceCriticalPercent {
			severity = costdata.SeverityCritical
		}
		anomalies = append(anomalies, costdata.Anomaly{
			Type:             typ,
			Severity:         severity,
			Message:          fmt.Sprintf("%s is %s %.0f%% versus last month", svc.Service, verb, math.Abs(change)),
			PercentDeviation: math.Abs(change),
			Service:          svc.Service,
		})
	}
	return anomalies
}

// dominantServices flags any service whose share of total spend exceeds
// 30% (critical above 50%).
func dominantServices(services []costdata.ServiceCost) []costdata.Anomaly {
	var total float64
	for _, svc := range services {
		total += svc.Amount
	}
	if total <= 0 {
		return nil
	}

	var anomalies []costdata.Anomaly
	for _, svc := range services {
		share := svc.Amount / total * 100
		if share <= dominantSharePercent {
			continue
		}
		severity := costdata.SeverityWarning
		if share > dominantCriticalPercent {
			severity = costdata.SeverityCritical
		}
		anomalies = append(anomalies, costdata.Anomaly{
			Type:             costdata.AnomalyNewService,
			Severity:         severity,
			Message:          fmt.Sprintf("%s accounts for %.0f%% of total spend", svc.Service, share),
			PercentDeviation: share,
			Service:          svc.Service,
		})
	}
	return anomalies
}
