package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. The configuration is not modified by environment variables; use
// LoadConfigWithEnvOverrides for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention SATURN_SECTION_FIELD (e.g., SATURN_PROVIDER_REGION).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables use the format SATURN_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Logging overrides
	if val := os.Getenv("SATURN_LOGGING_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("SATURN_LOGGING_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}

	// Metrics overrides
	if val := os.Getenv("SATURN_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("SATURN_METRICS_LISTEN"); val != "" {
		cfg.Metrics.Listen = val
	}

	// Storage overrides
	if val := os.Getenv("SATURN_STORAGE_BACKEND"); val != "" {
		cfg.Storage.Backend = val
	}
	if val := os.Getenv("SATURN_STORAGE_SQLITE_PATH"); val != "" {
		cfg.Storage.SQLitePath = val
	}

	// Provider overrides
	if val := os.Getenv("SATURN_PROVIDER_REGION"); val != "" {
		cfg.Provider.Region = val
	}
	if val := os.Getenv("SATURN_PROVIDER_METRIC"); val != "" {
		cfg.Provider.Metric = val
	}
	if val := os.Getenv("SATURN_PROVIDER_ACTIVE_PROFILE"); val != "" {
		cfg.Provider.ActiveProfile = val
	}

	// Refresh overrides
	if val := os.Getenv("SATURN_REFRESH_MIN_CALL_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Refresh.MinCallInterval = d
		}
	}
	if val := os.Getenv("SATURN_REFRESH_BREAKER_THRESHOLD"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Refresh.BreakerThreshold = i
		}
	}
	if val := os.Getenv("SATURN_REFRESH_SWEEP_SCHEDULE"); val != "" {
		cfg.Refresh.SweepSchedule = val
	}

	// Alert overrides
	if val := os.Getenv("SATURN_ALERTS_COOLDOWN"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Alerts.Cooldown = d
		}
	}
	if val := os.Getenv("SATURN_ALERTS_PERMISSION_GRANTED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Alerts.PermissionGranted = b
		}
	}
	if val := os.Getenv("SATURN_ALERTS_WEBHOOK_URL"); val != "" {
		cfg.Alerts.WebhookURL = val
	}
	if val := os.Getenv("SATURN_ALERTS_WEBHOOK_SECRET"); val != "" {
		cfg.Alerts.WebhookSecret = val
	}
}
