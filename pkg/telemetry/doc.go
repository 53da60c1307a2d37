// Package telemetry groups the observability subsystems.
//
// # Components
//
//   - logging: structured logging built on log/slog
//   - metrics: Prometheus metrics for the fetch pipeline
//
// # Usage
//
//	logger, err := logging.Setup(logging.Config{Level: "info", Format: "json"})
//
//	collector := metrics.NewCollector(metrics.Config{Enabled: true}, nil)
//	srv := collector.Serve("127.0.0.1:9090")
//
// The metrics collector implements the pipeline's Observer interface, so
// wiring it into the orchestrator is a single Options field.
package telemetry
