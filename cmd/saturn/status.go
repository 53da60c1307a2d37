package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"costwatch-hq/saturn/pkg/cli"
	"costwatch-hq/saturn/pkg/costdata"
	"costwatch-hq/saturn/pkg/pipeline/cache"
	"costwatch-hq/saturn/pkg/scheduler"
	"costwatch-hq/saturn/pkg/storage"
)

var statusFlags struct {
	output string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cached snapshots and budget posture",
	Long: `Show the persisted state for every known profile: snapshot age and
validity, month-to-date spend, budget consumption, and the refresh
cadence the budget currently dictates.

This reads storage only; it never triggers a live fetch.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusFlags.output, "output", "o", "text", "output format (text, json)")
}

// profileStatus is the JSON shape of one profile's status line.
type profileStatus struct {
	Profile         string    `json:"profile"`
	FetchedAt       time.Time `json:"fetched_at"`
	AgeMinutes      float64   `json:"age_minutes"`
	Valid           bool      `json:"valid"`
	MTDTotal        float64   `json:"mtd_total"`
	Currency        string    `json:"currency"`
	MonthlyBudget   float64   `json:"monthly_budget,omitempty"`
	BudgetFraction  float64   `json:"budget_fraction,omitempty"`
	RefreshInterval string    `json:"refresh_interval"`

	MonthsRecorded    int    `json:"months_recorded"`
	LastCompleteMonth string `json:"last_complete_month,omitempty"`
}

// monthHistory summarizes the recorded month history for a profile: how
// many months storage holds and the most recent complete one. The zero
// time means no month has been closed yet.
func monthHistory(ctx context.Context, store storage.Backend, profile costdata.Profile) (int, time.Time, error) {
	months, err := store.ListMonths(ctx, profile)
	if err != nil {
		return 0, time.Time{}, err
	}
	var lastComplete time.Time
	for _, m := range months {
		if m.Complete && m.Month.After(lastComplete) {
			lastComplete = m.Month
		}
	}
	return len(months), lastComplete, nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadRuntimeConfig()
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	if _, err := setupLogger(cfg); err != nil {
		return cli.NewConfigError("logging", err.Error())
	}

	ctx := context.Background()

	store, err := openBackend(cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	entries, err := store.LoadEntries(ctx)
	if err != nil {
		return cli.NewCommandError("status", err)
	}

	now := time.Now()
	statuses := make([]profileStatus, 0, len(entries))
	for _, entry := range entries {
		st := profileStatus{
			Profile:    string(entry.Profile),
			FetchedAt:  entry.FetchedAt,
			AgeMinutes: entry.Age(now).Minutes(),
			MTDTotal:   entry.MTDTotal,
			Currency:   entry.Currency,
		}

		budget, err := storage.EnsureBudget(ctx, store, entry.Profile)
		if err != nil {
			return cli.NewCommandError("status", err)
		}
		fraction := budget.UsedFraction(entry.MTDTotal)
		if budget.HasBudget() {
			st.MonthlyBudget = budget.MonthlyBudget
			st.BudgetFraction = fraction
		}
		st.Valid = cache.IsValid(entry, budget, now)
		st.RefreshInterval = scheduler.NextInterval(fraction, budget.RefreshIntervalMinutes).String()

		recorded, lastComplete, err := monthHistory(ctx, store, entry.Profile)
		if err != nil {
			return cli.NewCommandError("status", err)
		}
		st.MonthsRecorded = recorded
		if !lastComplete.IsZero() {
			st.LastCompleteMonth = lastComplete.Format("2006-01")
		}

		statuses = append(statuses, st)
	}

	if statusFlags.output == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, statuses)
	}

	if len(statuses) == 0 {
		fmt.Println("No snapshots recorded yet. Run `saturn fetch` first.")
		return nil
	}

	active := costdata.Profile(cfg.Provider.ActiveProfile)
	for _, st := range statuses {
		marker := " "
		if costdata.Profile(st.Profile) == active {
			marker = "*"
		}
		validity := "stale"
		if st.Valid {
			validity = "valid"
		}
		fmt.Printf("%s %-20s %8.2f %s  age %4.0fm (%s)  refresh every %s",
			marker, st.Profile, st.MTDTotal, st.Currency, st.AgeMinutes, validity, st.RefreshInterval)
		if st.MonthlyBudget > 0 {
			fmt.Printf("  budget %.1f%%", st.BudgetFraction*100)
		}
		if st.MonthsRecorded > 0 {
			fmt.Printf("  history %dmo", st.MonthsRecorded)
		}
		fmt.Println()
	}
	return nil
}
