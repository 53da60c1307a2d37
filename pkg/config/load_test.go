package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"costwatch-hq/saturn/pkg/alert"
	"costwatch-hq/saturn/pkg/pipeline/ratelimit"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

// ============================================================================
// Loading Tests
// ============================================================================

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
provider:
  profiles: [prod, staging]
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging defaults = %s/%s, want info/json", cfg.Logging.Level, cfg.Logging.Format)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("Storage.Backend = %s, want memory", cfg.Storage.Backend)
	}
	if cfg.Provider.Metric != "UnblendedCost" {
		t.Errorf("Provider.Metric = %s, want UnblendedCost", cfg.Provider.Metric)
	}
	if cfg.Provider.ActiveProfile != "prod" {
		t.Errorf("ActiveProfile = %s, want the first listed profile", cfg.Provider.ActiveProfile)
	}
	if cfg.Refresh.MinCallInterval != ratelimit.DefaultMinInterval {
		t.Errorf("MinCallInterval = %v, want %v", cfg.Refresh.MinCallInterval, ratelimit.DefaultMinInterval)
	}
	if cfg.Alerts.Cooldown != alert.DefaultCooldown {
		t.Errorf("Alerts.Cooldown = %v, want %v", cfg.Alerts.Cooldown, alert.DefaultCooldown)
	}
}

func TestLoadConfig_FullFile(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: text
metrics:
  enabled: true
  listen: "0.0.0.0:9200"
storage:
  backend: sqlite
  sqlite_path: /tmp/test.db
provider:
  region: eu-west-1
  active_profile: staging
  profiles: [prod, staging]
  demo_profiles: [demo]
refresh:
  min_call_interval: 90s
  breaker_threshold: 5
  sweep_schedule: "30 4 * * *"
alerts:
  threshold_enabled: true
  cooldown: 30m
  webhook_url: https://hooks.example.com/costs
budgets:
  - profile: prod
    monthly_budget: 500
    alert_threshold: 0.9
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Storage.Backend != "sqlite" || cfg.Storage.SQLitePath != "/tmp/test.db" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Provider.ActiveProfile != "staging" {
		t.Errorf("ActiveProfile = %s, want the explicit value", cfg.Provider.ActiveProfile)
	}
	if cfg.Refresh.MinCallInterval != 90*time.Second || cfg.Refresh.BreakerThreshold != 5 {
		t.Errorf("Refresh = %+v", cfg.Refresh)
	}
	if cfg.Alerts.Cooldown != 30*time.Minute {
		t.Errorf("Cooldown = %v, want 30m", cfg.Alerts.Cooldown)
	}
	if len(cfg.Budgets) != 1 || cfg.Budgets[0].MonthlyBudget != 500 {
		t.Errorf("Budgets = %+v", cfg.Budgets)
	}
	// Migrate fills the seed's omitted operational fields
	if cfg.Budgets[0].RefreshIntervalMinutes == 0 {
		t.Error("Expected budget seed migrated with a refresh interval")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "provider: [not: a: mapping\n")
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected an error for malformed YAML")
	}
}

// ============================================================================
// Environment Override Tests
// ============================================================================

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: info
provider:
  profiles: [prod]
`)

	t.Setenv("SATURN_LOGGING_LEVEL", "debug")
	t.Setenv("SATURN_PROVIDER_ACTIVE_PROFILE", "staging")
	t.Setenv("SATURN_REFRESH_MIN_CALL_INTERVAL", "2m")
	t.Setenv("SATURN_ALERTS_PERMISSION_GRANTED", "true")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want the env override", cfg.Logging.Level)
	}
	if cfg.Provider.ActiveProfile != "staging" {
		t.Errorf("ActiveProfile = %s, want staging", cfg.Provider.ActiveProfile)
	}
	if cfg.Refresh.MinCallInterval != 2*time.Minute {
		t.Errorf("MinCallInterval = %v, want 2m", cfg.Refresh.MinCallInterval)
	}
	if !cfg.Alerts.PermissionGranted {
		t.Error("Expected PermissionGranted set from the environment")
	}
}

func TestLoadConfigWithEnvOverrides_InvalidOverrideFailsValidation(t *testing.T) {
	path := writeConfig(t, "provider:\n  profiles: [prod]\n")
	t.Setenv("SATURN_LOGGING_LEVEL", "loudest")

	if _, err := LoadConfigWithEnvOverrides(path); err == nil {
		t.Error("Expected validation to reject an invalid env override")
	}
}

func TestLoadConfigWithEnvOverrides_EmptyEnvIgnored(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: warn\n")
	t.Setenv("SATURN_LOGGING_LEVEL", "")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %s, want the file value kept", cfg.Logging.Level)
	}
}
