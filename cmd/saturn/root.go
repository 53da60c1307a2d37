package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "saturn",
	Short: "Saturn - budget-aware AWS cost monitor",
	Long: `Saturn monitors AWS spend through Cost Explorer while treating the
metered API itself as a budgeted resource.

Every live call passes through a rate limiter, a circuit breaker, and a
cache whose validity window tightens as budget consumption climbs. On
top of the cached snapshots it computes spend trends, month-end
projections, and anomaly reports, and raises alerts when spend
approaches or exceeds a configured budget.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
