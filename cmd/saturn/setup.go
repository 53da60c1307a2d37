package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"costwatch-hq/saturn/pkg/alert"
	"costwatch-hq/saturn/pkg/analytics"
	"costwatch-hq/saturn/pkg/config"
	"costwatch-hq/saturn/pkg/costdata"
	"costwatch-hq/saturn/pkg/pipeline"
	"costwatch-hq/saturn/pkg/pipeline/breaker"
	"costwatch-hq/saturn/pkg/pipeline/ratelimit"
	"costwatch-hq/saturn/pkg/provider/awsce"
	"costwatch-hq/saturn/pkg/provider/synthetic"
	"costwatch-hq/saturn/pkg/storage"
	"costwatch-hq/saturn/pkg/telemetry/logging"
)

// loadRuntimeConfig loads the configuration file with environment
// overrides and applies global flag overrides.
func loadRuntimeConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// setupLogger builds and installs the process logger.
func setupLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.Setup(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.AddSource,
	})
}

// openBackend opens the configured storage backend.
func openBackend(cfg *config.Config) (storage.Backend, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		return storage.NewSQLiteBackend(cfg.Storage.SQLitePath)
	case "memory":
		return storage.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}

// seedBudgets writes configured budget seeds for profiles that have no
// stored record yet. Stored records always win over seeds.
func seedBudgets(ctx context.Context, store storage.Backend, seeds []costdata.ProfileBudget) error {
	for i := range seeds {
		seed := seeds[i]
		_, err := store.GetBudget(ctx, seed.Profile)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if err := store.SaveBudget(ctx, &seed); err != nil {
			return fmt.Errorf("seeding budget for profile %q: %w", seed.Profile, err)
		}
	}
	return nil
}

// buildOrchestrator wires providers, gates, alerting, and observation
// into a pipeline orchestrator.
func buildOrchestrator(cfg *config.Config, store storage.Backend, observer pipeline.Observer, logger *slog.Logger) *pipeline.Orchestrator {
	live := awsce.NewClient(
		awsce.DefaultLoader(cfg.Provider.Region),
		awsce.WithMetric(cfg.Provider.Metric),
	)

	var sinks []alert.Sink
	sinks = append(sinks, alert.NewLogSink(logger))
	if cfg.Alerts.WebhookURL != "" {
		sinks = append(sinks, alert.NewWebhookSink(cfg.Alerts.WebhookURL, cfg.Alerts.WebhookSecret))
	}

	permission := cfg.Alerts.PermissionGranted
	policy := alert.NewPolicy(alert.Config{
		ThresholdEnabled:      cfg.Alerts.ThresholdEnabled,
		BudgetExceededEnabled: cfg.Alerts.BudgetExceededEnabled,
		AnomalyEnabled:        cfg.Alerts.AnomalyEnabled,
		Cooldown:              cfg.Alerts.Cooldown,
		PermissionGranted:     func() bool { return permission },
	}, store, sinks, logger)

	demoProfiles := make([]costdata.Profile, 0, len(cfg.Provider.DemoProfiles))
	for _, p := range cfg.Provider.DemoProfiles {
		demoProfiles = append(demoProfiles, costdata.Profile(p))
	}

	return pipeline.New(pipeline.Options{
		Live:         live,
		Demo:         synthetic.NewGenerator(),
		DemoProfiles: demoProfiles,
		Store:        store,
		Policy:       policy,
		Detector: analytics.DetectorConfig{
			Enabled:                   cfg.Analytics.AnomalyDetectionEnabled,
			DeviationThresholdPercent: cfg.Analytics.DeviationThresholdPercent,
		},
		Observer: observer,
		Limiter:  ratelimit.NewLimiter(cfg.Refresh.MinCallInterval),
		Breaker:  breaker.New(cfg.Refresh.BreakerThreshold),
		Logger:   logger,
	})
}
