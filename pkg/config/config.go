// Package config defines the YAML configuration surface and its
// loading pipeline: file, defaults, environment overrides, validation,
// and optional hot reload.
package config

import (
	"time"

	"costwatch-hq/saturn/pkg/costdata"
)

// Config is the root configuration.
type Config struct {
	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`

	// Storage configures persistence.
	Storage StorageConfig `yaml:"storage"`

	// Provider configures the AWS Cost Explorer provider.
	Provider ProviderConfig `yaml:"provider"`

	// Refresh configures automatic refreshing and maintenance.
	Refresh RefreshConfig `yaml:"refresh"`

	// Alerts configures the alert policy and sinks.
	Alerts AlertsConfig `yaml:"alerts"`

	// Analytics configures anomaly detection.
	Analytics AnalyticsConfig `yaml:"analytics"`

	// Budgets seeds per-profile budgets. Records already in storage
	// win over seeds; seeds only fill gaps on first run.
	Budgets []costdata.ProfileBudget `yaml:"budgets"`
}

// LoggingConfig mirrors telemetry/logging.Config for YAML loading.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Listen    string `yaml:"listen"`
	Namespace string `yaml:"namespace"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`

	// SQLitePath is the database file path for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path"`
}

// ProviderConfig configures the cost provider.
type ProviderConfig struct {
	// Region pins the AWS region for all profiles; empty uses each
	// profile's configured region.
	Region string `yaml:"region"`

	// Metric is the Cost Explorer metric (default "UnblendedCost").
	Metric string `yaml:"metric"`

	// ActiveProfile is the profile fetched by the refresh loop.
	ActiveProfile string `yaml:"active_profile"`

	// Profiles lists the known profiles.
	Profiles []string `yaml:"profiles"`

	// DemoProfiles lists profiles served with synthetic data. Demo
	// profiles bypass the cache and the call gates.
	DemoProfiles []string `yaml:"demo_profiles"`
}

// RefreshConfig configures the scheduler and sweeper.
type RefreshConfig struct {
	// MinCallInterval is the rate limiter's minimum spacing between
	// live calls.
	MinCallInterval time.Duration `yaml:"min_call_interval"`

	// BreakerThreshold is the consecutive-failure count that opens the
	// circuit breaker.
	BreakerThreshold int `yaml:"breaker_threshold"`

	// SweepSchedule is the cron expression for the maintenance sweep.
	SweepSchedule string `yaml:"sweep_schedule"`
}

// AlertsConfig configures the alert policy and delivery sinks.
type AlertsConfig struct {
	ThresholdEnabled      bool          `yaml:"threshold_enabled"`
	BudgetExceededEnabled bool          `yaml:"budget_exceeded_enabled"`
	AnomalyEnabled        bool          `yaml:"anomaly_enabled"`
	Cooldown              time.Duration `yaml:"cooldown"`

	// PermissionGranted models the external notification permission.
	// When false the policy evaluates but never delivers.
	PermissionGranted bool `yaml:"permission_granted"`

	// WebhookURL enables the webhook sink when non-empty.
	WebhookURL string `yaml:"webhook_url"`

	// WebhookSecret signs webhook payloads when non-empty.
	WebhookSecret string `yaml:"webhook_secret"`
}

// AnalyticsConfig configures anomaly detection.
type AnalyticsConfig struct {
	AnomalyDetectionEnabled   bool    `yaml:"anomaly_detection_enabled"`
	DeviationThresholdPercent float64 `yaml:"deviation_threshold_percent"`
}
