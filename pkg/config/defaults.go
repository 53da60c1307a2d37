package config

import (
	"costwatch-hq/saturn/pkg/alert"
	"costwatch-hq/saturn/pkg/analytics"
	"costwatch-hq/saturn/pkg/pipeline/breaker"
	"costwatch-hq/saturn/pkg/pipeline/ratelimit"
)

// Default values for configuration fields.
const (
	// Telemetry defaults
	DefaultLoggingLevel  = "info"
	DefaultLoggingFormat = "json"
	DefaultMetricsListen = "127.0.0.1:9090"
	DefaultMetricsNS     = "saturn"

	// Storage defaults
	DefaultStorageBackend = "memory"
	DefaultSQLitePath     = "data/saturn.db"

	// Provider defaults
	DefaultMetric = "UnblendedCost"

	// Refresh defaults
	DefaultSweepSchedule = "0 3 * * *"
)

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Telemetry defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = DefaultMetricsListen
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNS
	}

	// Storage defaults
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = DefaultSQLitePath
	}

	// Provider defaults
	if cfg.Provider.Metric == "" {
		cfg.Provider.Metric = DefaultMetric
	}
	if cfg.Provider.ActiveProfile == "" && len(cfg.Provider.Profiles) > 0 {
		cfg.Provider.ActiveProfile = cfg.Provider.Profiles[0]
	}

	// Refresh defaults
	if cfg.Refresh.MinCallInterval == 0 {
		cfg.Refresh.MinCallInterval = ratelimit.DefaultMinInterval
	}
	if cfg.Refresh.BreakerThreshold == 0 {
		cfg.Refresh.BreakerThreshold = breaker.DefaultThreshold
	}
	if cfg.Refresh.SweepSchedule == "" {
		cfg.Refresh.SweepSchedule = DefaultSweepSchedule
	}

	// Alert defaults
	if cfg.Alerts.Cooldown == 0 {
		cfg.Alerts.Cooldown = alert.DefaultCooldown
	}

	// Analytics defaults
	if cfg.Analytics.DeviationThresholdPercent == 0 {
		cfg.Analytics.DeviationThresholdPercent = analytics.DefaultDeviationThreshold
	}

	// Budget seed defaults
	for i := range cfg.Budgets {
		cfg.Budgets[i].Migrate()
	}
}
