package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"costwatch-hq/saturn/pkg/cli"
	"costwatch-hq/saturn/pkg/config"
	"costwatch-hq/saturn/pkg/costdata"
	"costwatch-hq/saturn/pkg/pipeline"
	"costwatch-hq/saturn/pkg/provider/awsce"
	"costwatch-hq/saturn/pkg/scheduler"
	"costwatch-hq/saturn/pkg/telemetry/metrics"
)

var runFlags struct {
	profile  string
	logLevel string
	dryRun   bool
	watch    bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the refresh daemon",
	Long: `Start the refresh daemon with the specified configuration.

The daemon refreshes the active profile on a budget-adaptive cadence,
persists snapshots and history, evaluates alerts after each live fetch,
and exposes Prometheus metrics when enabled.

Examples:
  # Start with default config
  saturn run

  # Start with custom config
  saturn run --config /etc/saturn/config.yaml

  # Override the active profile
  saturn run --profile prod

  # Reload configuration on file change
  saturn run --watch

  # Validate config without starting the daemon
  saturn run --dry-run`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.profile, "profile", "p", "", "override active profile")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the daemon")
	runCmd.Flags().BoolVarP(&runFlags.watch, "watch", "w", false, "reload configuration on file change")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadRuntimeConfig()
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	// Apply flag overrides
	if runFlags.profile != "" {
		cfg.Provider.ActiveProfile = runFlags.profile
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}

	logger, err := setupLogger(cfg)
	if err != nil {
		return cli.NewConfigError("logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Saturn v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	store, err := openBackend(cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()
	if err := seedBudgets(ctx, store, cfg.Budgets); err != nil {
		return fmt.Errorf("failed to seed budgets: %w", err)
	}
	fmt.Printf("✓ Storage ready (%s)\n", cfg.Storage.Backend)

	// Metrics
	collector := metrics.NewCollector(metrics.Config{
		Enabled:   cfg.Metrics.Enabled,
		Listen:    cfg.Metrics.Listen,
		Namespace: cfg.Metrics.Namespace,
	}, nil)
	if cfg.Metrics.Enabled {
		srv := collector.Serve(cfg.Metrics.Listen)
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Metrics.Listen)
	}

	// Pipeline
	orch := buildOrchestrator(cfg, store, collector, logger)
	if err := orch.Restore(ctx); err != nil {
		logger.Warn("cache restore failed, starting cold", "error", err)
	}

	// Refresh loop
	active := costdata.Profile(cfg.Provider.ActiveProfile)
	if active == "" {
		return cli.NewConfigError("provider.active_profile", "no active profile configured")
	}
	announceAccount(ctx, cfg, active)

	sched := scheduler.New(orch, store, logger)
	sched.Start(ctx, active, lastFetchTime(orch, active))
	defer sched.Stop()
	fmt.Printf("✓ Refresh loop started (profile %s)\n", active)

	sweeper := scheduler.NewSweeper(store, cfg.Refresh.SweepSchedule, logger)
	if err := sweeper.Start(ctx); err != nil {
		logger.Warn("failed to start maintenance sweeper", "error", err)
	} else {
		defer sweeper.Stop()
	}

	// Optional config hot reload. Only the active profile switch takes
	// effect without a restart; gate and storage changes need one.
	if runFlags.watch {
		watcher, err := config.NewWatcher(cfgFile, logger)
		if err != nil {
			return fmt.Errorf("failed to create config watcher: %w", err)
		}
		go func() {
			_ = watcher.Watch(ctx, func(next *config.Config) {
				nextActive := costdata.Profile(next.Provider.ActiveProfile)
				if nextActive != "" && nextActive != active {
					logger.Info("active profile changed", "from", active, "to", nextActive)
					active = nextActive
					sched.Start(ctx, active, lastFetchTime(orch, active))
				}
			})
		}()
		defer watcher.Stop()
		fmt.Println("✓ Watching configuration for changes")
	}

	fmt.Println("\nPress Ctrl+C to stop")

	sig := cli.WaitForShutdown()
	fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
	cancel()

	fmt.Println("✓ Stopped")
	return nil
}

// announceAccount prints the AWS account behind the active profile as
// part of the startup banner. Demo profiles have no account; resolution
// failures are non-fatal and simply omit the line.
func announceAccount(ctx context.Context, cfg *config.Config, active costdata.Profile) {
	for _, p := range cfg.Provider.DemoProfiles {
		if costdata.Profile(p) == active {
			return
		}
	}
	awsCfg, err := awsce.DefaultLoader(cfg.Provider.Region)(ctx, string(active))
	if err != nil {
		return
	}
	lookupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if account := awsce.AccountID(lookupCtx, awsCfg); account != "" {
		fmt.Printf("✓ AWS account: %s\n", account)
	}
}

// lastFetchTime returns the fetch time of the cached entry for a
// profile, or the zero time when nothing is cached yet.
func lastFetchTime(orch *pipeline.Orchestrator, profile costdata.Profile) time.Time {
	if entry := orch.Cache().Get(profile); entry != nil {
		return entry.FetchedAt
	}
	return time.Time{}
}
