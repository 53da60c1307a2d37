package config

import (
	"fmt"
	"net/url"
	"strings"

	"costwatch-hq/saturn/pkg/costdata"
	"costwatch-hq/saturn/pkg/telemetry/logging"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "storage.backend").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateRefresh(&cfg.Refresh)...)
	errs = append(errs, validateAlerts(&cfg.Alerts)...)
	errs = append(errs, validateBudgets(cfg.Budgets)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateLogging validates the logging configuration.
func validateLogging(cfg *LoggingConfig) []FieldError {
	var errs []FieldError

	if _, err := logging.ParseLevel(cfg.Level); err != nil {
		errs = append(errs, FieldError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level %q (use debug, info, warn, or error)", cfg.Level),
		})
	}
	if _, err := logging.ParseFormat(cfg.Format); err != nil {
		errs = append(errs, FieldError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid format %q (use json or text)", cfg.Format),
		})
	}

	return errs
}

// validateStorage validates the storage configuration.
func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, FieldError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("unknown backend %q (use memory or sqlite)", cfg.Backend),
		})
	}
	if cfg.Backend == "sqlite" && cfg.SQLitePath == "" {
		errs = append(errs, FieldError{
			Field:   "storage.sqlite_path",
			Message: "sqlite path is required for the sqlite backend",
		})
	}

	return errs
}

// validateRefresh validates the refresh configuration.
func validateRefresh(cfg *RefreshConfig) []FieldError {
	var errs []FieldError

	if cfg.MinCallInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "refresh.min_call_interval",
			Message: "minimum call interval must be non-negative",
		})
	}
	if cfg.BreakerThreshold < 1 {
		errs = append(errs, FieldError{
			Field:   "refresh.breaker_threshold",
			Message: "breaker threshold must be at least 1",
		})
	}
	if cfg.SweepSchedule != "" && len(strings.Fields(cfg.SweepSchedule)) != 5 {
		errs = append(errs, FieldError{
			Field:   "refresh.sweep_schedule",
			Message: fmt.Sprintf("invalid cron expression %q", cfg.SweepSchedule),
		})
	}

	return errs
}

// validateAlerts validates the alert configuration.
func validateAlerts(cfg *AlertsConfig) []FieldError {
	var errs []FieldError

	if cfg.Cooldown < 0 {
		errs = append(errs, FieldError{
			Field:   "alerts.cooldown",
			Message: "cooldown must be non-negative",
		})
	}
	if cfg.WebhookURL != "" {
		u, err := url.Parse(cfg.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, FieldError{
				Field:   "alerts.webhook_url",
				Message: fmt.Sprintf("invalid webhook URL %q", cfg.WebhookURL),
			})
		}
	}

	return errs
}

// validateBudgets validates the seeded profile budgets.
func validateBudgets(budgets []costdata.ProfileBudget) []FieldError {
	var errs []FieldError

	seen := make(map[costdata.Profile]bool, len(budgets))
	for i, b := range budgets {
		if b.Profile == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("budgets[%d].profile", i),
				Message: "profile name is required",
			})
			continue
		}
		if seen[b.Profile] {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("budgets[%d].profile", i),
				Message: fmt.Sprintf("duplicate budget for profile %q", b.Profile),
			})
		}
		seen[b.Profile] = true
		if b.MonthlyBudget < 0 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("budgets[%d].monthly_budget", i),
				Message: "monthly budget must be non-negative",
			})
		}
		if b.AlertThreshold < 0 || b.AlertThreshold > 1 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("budgets[%d].alert_threshold", i),
				Message: "alert threshold must be between 0 and 1",
			})
		}
	}

	return errs
}
