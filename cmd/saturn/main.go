// Saturn is a budget-aware AWS cost monitor.
//
// It fetches month-to-date spend from Cost Explorer through a gated
// pipeline (rate limiter, circuit breaker, budget-adaptive cache),
// analyzes trends, projections, and anomalies, and raises alerts when
// spend approaches or exceeds a configured budget.
//
// Usage:
//
//	# Start the refresh daemon with default configuration
//	saturn run
//
//	# Start with a custom configuration file
//	saturn run --config /path/to/config.yaml
//
//	# Fetch once and print the snapshot
//	saturn fetch --profile prod
//
//	# Force a live fetch past the cache and gates
//	saturn fetch --profile prod --force
//
//	# Show cached state and budget posture
//	saturn status
//
//	# Show version information
//	saturn version
package main

func main() {
	Execute()
}
