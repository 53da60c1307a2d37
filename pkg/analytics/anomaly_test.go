package analytics

import (
	"reflect"
	"testing"
	"time"

	"costwatch-hq/saturn/pkg/costdata"
)

// ============================================================================
// Anomaly Detection Tests
// ============================================================================

var detectorOn = DetectorConfig{Enabled: true, DeviationThresholdPercent: 25}

func TestDetectAnomalies_Disabled(t *testing.T) {
	daily := dailySeries(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), 10, 10, 1000)
	got := DetectAnomalies(DetectorConfig{Enabled: false}, daily, nil, nil)
	if got != nil {
		t.Errorf("Expected no anomalies when disabled, got %d", len(got))
	}
}

func TestDetectAnomalies_DailySpike(t *testing.T) {
	start := time.Date(2026, 8, 8, 0, 0, 0, 0, time.UTC)
	// Six days at 10, one at 20: mean 11.43. The spike deviates 75%
	// (critical); the quiet days deviate 12.5% and stay unflagged.
	daily := dailySeries(start, 10, 10, 10, 10, 10, 10, 20)

	anomalies := DetectAnomalies(detectorOn, daily, nil, nil)
	if len(anomalies) != 1 {
		t.Fatalf("Expected 1 anomaly, got %d", len(anomalies))
	}
	a := anomalies[0]
	if a.Type != costdata.AnomalyUnusualSpike {
		t.Errorf("Type = %s, want %s", a.Type, costdata.AnomalyUnusualSpike)
	}
	if a.Severity != costdata.SeverityCritical {
		t.Errorf("Severity = %s, want critical for a deviation past 50%%", a.Severity)
	}
}

func TestDetectAnomalies_DailyDrop(t *testing.T) {
	start := time.Date(2026, 8, 8, 0, 0, 0, 0, time.UTC)
	// Six days at 10, one at 6: mean 9.43, drop deviation ~36%
	daily := dailySeries(start, 10, 10, 10, 10, 10, 10, 6)

	anomalies := DetectAnomalies(detectorOn, daily, nil, nil)
	if len(anomalies) != 1 {
		t.Fatalf("Expected 1 anomaly, got %d", len(anomalies))
	}
	a := anomalies[0]
	if a.Type != costdata.AnomalySuddenDrop {
		t.Errorf("Type = %s, want %s", a.Type, costdata.AnomalySuddenDrop)
	}
	if a.Severity != costdata.SeverityWarning {
		t.Errorf("Severity = %s, want warning below the 50%% escalation", a.Severity)
	}
}

func TestDetectAnomalies_SteadySpendIsQuiet(t *testing.T) {
	start := time.Date(2026, 8, 8, 0, 0, 0, 0, time.UTC)
	daily := dailySeries(start, 10, 11, 10, 9, 10, 11, 10)

	if got := DetectAnomalies(detectorOn, daily, nil, nil); len(got) != 0 {
		t.Errorf("Expected no anomalies for steady spend, got %d", len(got))
	}
}

func TestDetectAnomalies_ServiceVersusLastMonth(t *testing.T) {
	services := []costdata.ServiceCost{
		{Service: "Amazon EC2", Amount: 60, Currency: "USD"},
		{Service: "Amazon S3", Amount: 30, Currency: "USD"},
		{Service: "AWS Lambda", Amount: 10, Currency: "USD"},
	}
	lastMonth := map[string]float64{
		"Amazon EC2": 25, // +140%, critical
		"Amazon S3":  28, // +7%, quiet
		"AWS Lambda": 20, // -50%, warning drop
	}

	anomalies := DetectAnomalies(detectorOn, nil, services, lastMonth)
	if len(anomalies) != 3 {
		// EC2 spike, Lambda drop, plus EC2 dominant share (60%)
		t.Fatalf("Expected 3 anomalies, got %d: %v", len(anomalies), anomalies)
	}

	byService := map[string]costdata.Anomaly{}
	for _, a := range anomalies {
		if a.Type != costdata.AnomalyNewService {
			byService[a.Service] = a
		}
	}
	ec2 := byService["Amazon EC2"]
	if ec2.Type != costdata.AnomalyUnusualSpike || ec2.Severity != costdata.SeverityCritical {
		t.Errorf("EC2 anomaly = %s/%s, want critical spike", ec2.Type, ec2.Severity)
	}
	lambda := byService["AWS Lambda"]
	if lambda.Type != costdata.AnomalySuddenDrop || lambda.Severity != costdata.SeverityWarning {
		t.Errorf("Lambda anomaly = %s/%s, want warning drop", lambda.Type, lambda.Severity)
	}
}

func TestDetectAnomalies_OnlyTopServicesChecked(t *testing.T) {
	services := []costdata.ServiceCost{
		{Service: "A", Amount: 25},
		{Service: "B", Amount: 25},
		{Service: "C", Amount: 25},
		{Service: "D", Amount: 25}, // fourth by rank, tripled vs last month
	}
	lastMonth := map[string]float64{"D": 8}

	for _, a := range DetectAnomalies(detectorOn, nil, services, lastMonth) {
		if a.Service == "D" && a.Type != costdata.AnomalyNewService {
			t.Error("Expected no last-month comparison beyond the top 3 services")
		}
	}
}

func TestDetectAnomalies_DominantService(t *testing.T) {
	services := []costdata.ServiceCost{
		{Service: "Amazon EC2", Amount: 40},
		{Service: "Amazon S3", Amount: 35},
		{Service: "AWS Lambda", Amount: 25},
	}

	anomalies := DetectAnomalies(detectorOn, nil, services, nil)
	if len(anomalies) != 2 {
		t.Fatalf("Expected 2 dominant-service anomalies, got %d", len(anomalies))
	}
	for _, a := range anomalies {
		if a.Type != costdata.AnomalyNewService {
			t.Errorf("Type = %s, want %s", a.Type, costdata.AnomalyNewService)
		}
		if a.Severity != costdata.SeverityWarning {
			t.Errorf("Severity = %s, want warning at or below 50%% share", a.Severity)
		}
	}
}

func TestDetectAnomalies_DominantCritical(t *testing.T) {
	services := []costdata.ServiceCost{
		{Service: "Amazon EC2", Amount: 80},
		{Service: "Amazon S3", Amount: 20},
	}

	anomalies := DetectAnomalies(detectorOn, nil, services, nil)
	if len(anomalies) != 1 {
		t.Fatalf("Expected 1 anomaly, got %d", len(anomalies))
	}
	if anomalies[0].Severity != costdata.SeverityCritical {
		t.Errorf("Severity = %s, want critical above 50%% share", anomalies[0].Severity)
	}
}

// Detection is a pure recomputation: the same inputs must produce the
// same output, with nothing accumulated across calls.
func TestDetectAnomalies_Idempotent(t *testing.T) {
	start := time.Date(2026, 8, 8, 0, 0, 0, 0, time.UTC)
	daily := dailySeries(start, 10, 10, 10, 10, 10, 10, 40)
	services := []costdata.ServiceCost{
		{Service: "Amazon EC2", Amount: 60},
		{Service: "Amazon S3", Amount: 40},
	}
	lastMonth := map[string]float64{"Amazon EC2": 20}

	first := DetectAnomalies(detectorOn, daily, services, lastMonth)
	second := DetectAnomalies(detectorOn, daily, services, lastMonth)
	third := DetectAnomalies(detectorOn, daily, services, lastMonth)

	if !reflect.DeepEqual(first, second) || !reflect.DeepEqual(second, third) {
		t.Error("Expected identical anomaly lists across repeated detection")
	}
}
