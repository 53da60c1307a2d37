package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"costwatch-hq/saturn/pkg/cli"
	"costwatch-hq/saturn/pkg/costdata"
	"costwatch-hq/saturn/pkg/pipeline"
	"costwatch-hq/saturn/pkg/storage"
)

var fetchFlags struct {
	profile string
	force   bool
	output  string
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch a cost snapshot once and print it",
	Long: `Fetch the month-to-date snapshot for a profile and print it.

The fetch goes through the full pipeline: a valid cached entry is served
without a live call, and the rate limiter and circuit breaker gate live
calls. Use --force to bypass every gate (the call is still recorded
against the rate limiter).

Examples:
  # Fetch the configured active profile
  saturn fetch

  # Fetch a specific profile
  saturn fetch --profile prod

  # Bypass the cache and gates
  saturn fetch --profile prod --force

  # Machine-readable output
  saturn fetch --output json`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&fetchFlags.profile, "profile", "p", "", "profile to fetch (default: configured active profile)")
	fetchCmd.Flags().BoolVarP(&fetchFlags.force, "force", "f", false, "bypass cache, rate limiter, and circuit breaker")
	fetchCmd.Flags().StringVarP(&fetchFlags.output, "output", "o", "text", "output format (text, json)")
}

// fetchReport is the JSON shape of a fetch result.
type fetchReport struct {
	Profile        string             `json:"profile"`
	FetchedAt      time.Time          `json:"fetched_at"`
	Source         string             `json:"source"`
	MTDTotal       float64            `json:"mtd_total"`
	Currency       string             `json:"currency"`
	TodaySpend     float64            `json:"today_spend"`
	YesterdaySpend float64            `json:"yesterday_spend"`
	BudgetFraction float64            `json:"budget_fraction,omitempty"`
	MonthlyBudget  float64            `json:"monthly_budget,omitempty"`
	Trend          string             `json:"trend"`
	TrendPercent   float64            `json:"trend_percent,omitempty"`
	Projection     float64            `json:"projection,omitempty"`
	TopServices    []serviceLine      `json:"top_services,omitempty"`
	Anomalies      []costdata.Anomaly `json:"anomalies,omitempty"`
}

type serviceLine struct {
	Service string  `json:"service"`
	Amount  float64 `json:"amount"`
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadRuntimeConfig()
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	logger, err := setupLogger(cfg)
	if err != nil {
		return cli.NewConfigError("logging", err.Error())
	}

	profile := costdata.Profile(fetchFlags.profile)
	if profile == "" {
		profile = costdata.Profile(cfg.Provider.ActiveProfile)
	}

	ctx := cli.SetupSignalHandler()

	store, err := openBackend(cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()
	if err := seedBudgets(ctx, store, cfg.Budgets); err != nil {
		return fmt.Errorf("failed to seed budgets: %w", err)
	}

	orch := buildOrchestrator(cfg, store, nil, logger)
	if err := orch.Restore(ctx); err != nil {
		logger.Warn("cache restore failed, starting cold", "error", err)
	}

	result, err := orch.Fetch(ctx, profile, fetchFlags.force)
	if err != nil {
		var rle *pipeline.RateLimitError
		if errors.As(err, &rle) {
			return cli.NewCommandError("fetch", fmt.Errorf("%w (retry with --force to override)", err))
		}
		return cli.NewCommandError("fetch", err)
	}

	budget, err := storage.EnsureBudget(ctx, store, profile)
	if err != nil {
		logger.Warn("budget lookup failed", "profile", profile, "error", err)
	}

	report := buildFetchReport(profile, result, budget)
	if fetchFlags.output == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, report)
	}
	printFetchReport(report, result)
	return nil
}

func buildFetchReport(profile costdata.Profile, result *pipeline.Result, budget *costdata.ProfileBudget) fetchReport {
	entry := result.Entry
	report := fetchReport{
		Profile:        string(profile),
		FetchedAt:      entry.FetchedAt,
		Source:         fetchSource(result),
		MTDTotal:       entry.MTDTotal,
		Currency:       entry.Currency,
		TodaySpend:     entry.TodaySpend,
		YesterdaySpend: entry.YesterdaySpend,
		Trend:          string(result.Trend.Direction),
		TrendPercent:   result.Trend.ChangePercent,
		Anomalies:      result.Anomalies,
	}
	if budget.HasBudget() {
		report.MonthlyBudget = budget.MonthlyBudget
		report.BudgetFraction = budget.UsedFraction(entry.MTDTotal)
	}
	if result.ProjectionOK {
		report.Projection = result.Projection.Total
	}
	for _, s := range entry.TopServices(5) {
		report.TopServices = append(report.TopServices, serviceLine{Service: s.Service, Amount: s.Amount})
	}
	return report
}

func fetchSource(result *pipeline.Result) string {
	switch {
	case result.RateLimited:
		return "stale cache"
	case result.FromCache:
		return "cache"
	default:
		return "live"
	}
}

func printFetchReport(report fetchReport, result *pipeline.Result) {
	fmt.Printf("Profile:     %s\n", report.Profile)
	fmt.Printf("Fetched:     %s (%s)\n", report.FetchedAt.Format(time.RFC3339), report.Source)
	fmt.Printf("MTD total:   %.2f %s\n", report.MTDTotal, report.Currency)
	fmt.Printf("Today:       %.2f   Yesterday: %.2f\n", report.TodaySpend, report.YesterdaySpend)
	if report.MonthlyBudget > 0 {
		fmt.Printf("Budget:      %.1f%% of %.2f\n", report.BudgetFraction*100, report.MonthlyBudget)
	}
	switch report.Trend {
	case "stable":
		fmt.Println("Trend:       stable vs last month's pace")
	default:
		fmt.Printf("Trend:       %s %.1f%% vs last month's pace\n", report.Trend, report.TrendPercent)
	}
	if result.ProjectionOK {
		fmt.Printf("Projection:  %.2f by month end (%.2f/day over %d remaining days)\n",
			result.Projection.Total, result.Projection.DailyAverage, result.Projection.RemainingDays)
	}
	if len(report.TopServices) > 0 {
		fmt.Println("Top services:")
		for _, s := range report.TopServices {
			fmt.Printf("  %-40s %10.2f\n", s.Service, s.Amount)
		}
	}
	if len(report.Anomalies) > 0 {
		fmt.Printf("Anomalies (%d):\n", len(report.Anomalies))
		for _, a := range report.Anomalies {
			fmt.Printf("  [%s] %s: %s\n", a.Severity, a.Type, a.Message)
		}
	}
	if len(result.Alerts) > 0 {
		var lines []string
		for _, d := range result.Alerts {
			switch {
			case d.Delivered:
				lines = append(lines, fmt.Sprintf("%s delivered", d.Type))
			case d.Fired:
				lines = append(lines, fmt.Sprintf("%s suppressed (%s)", d.Type, d.SuppressedBy))
			}
		}
		if len(lines) > 0 {
			fmt.Printf("Alerts:      %s\n", strings.Join(lines, ", "))
		}
	}
}
