// Package metrics exposes Prometheus metrics for the fetch pipeline:
// fetch outcomes and latencies, cache behavior, circuit breaker state,
// and per-profile spend gauges.
//
// The Collector implements the pipeline's Observer interface, so wiring
// is one assignment in the run command.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"costwatch-hq/saturn/pkg/costdata"
)

// Config controls metric registration.
type Config struct {
	// Enabled gates the whole subsystem. A disabled collector is still
	// safe to call; it just records nothing.
	Enabled bool `yaml:"enabled"`

	// Listen is the address for the /metrics endpoint.
	Listen string `yaml:"listen"`

	// Namespace defaults to "saturn".
	Namespace string `yaml:"namespace"`
}

// Collector owns the registry and all metric families.
type Collector struct {
	enabled  bool
	registry *prometheus.Registry

	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	cacheEvents   *prometheus.CounterVec

	breakerOpen     prometheus.Gauge
	breakerFailures prometheus.Gauge

	mtdSpend       *prometheus.GaugeVec
	budgetFraction *prometheus.GaugeVec
	projectedSpend *prometheus.GaugeVec
}

// NewCollector creates a collector with its own registry. A nil
// registry argument creates a fresh one.
func NewCollector(cfg Config, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = "saturn"
	}

	c := &Collector{
		enabled:  cfg.Enabled,
		registry: registry,

		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "pipeline",
			Name:      "fetch_total",
			Help:      "Fetch attempts by profile and outcome.",
		}, []string{"profile", "outcome"}),

		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "pipeline",
			Name:      "fetch_duration_seconds",
			Help:      "Fetch duration by outcome.",
			// Cache hits resolve in microseconds, live Cost Explorer
			// calls in seconds.
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"outcome"}),

		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "cache",
			Name:      "events_total",
			Help:      "Cache events (hit, miss, stale_served) by profile.",
		}, []string{"profile", "event"}),

		breakerOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "breaker",
			Name:      "open",
			Help:      "1 when the circuit breaker is open.",
		}),

		breakerFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "breaker",
			Name:      "consecutive_failures",
			Help:      "Current consecutive provider failure count.",
		}),

		mtdSpend: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "cost",
			Name:      "mtd_spend",
			Help:      "Month-to-date spend by profile.",
		}, []string{"profile"}),

		budgetFraction: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "cost",
			Name:      "budget_fraction",
			Help:      "Fraction of monthly budget consumed (0 when no budget).",
		}, []string{"profile"}),

		projectedSpend: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "cost",
			Name:      "projected_month_end",
			Help:      "Projected month-end spend by profile (0 when undefined).",
		}, []string{"profile"}),
	}

	registry.MustRegister(
		c.fetchTotal, c.fetchDuration, c.cacheEvents,
		c.breakerOpen, c.breakerFailures,
		c.mtdSpend, c.budgetFraction, c.projectedSpend,
	)
	return c
}

// Registry returns the underlying registry for the HTTP handler.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// FetchObserved implements pipeline.Observer.
func (c *Collector) FetchObserved(profile costdata.Profile, outcome string, elapsed time.Duration) {
	if !c.enabled {
		return
	}
	c.fetchTotal.WithLabelValues(string(profile), outcome).Inc()
	c.fetchDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// CacheObserved implements pipeline.Observer.
func (c *Collector) CacheObserved(profile costdata.Profile, event string) {
	if !c.enabled {
		return
	}
	c.cacheEvents.WithLabelValues(string(profile), event).Inc()
}

// BreakerObserved implements pipeline.Observer.
func (c *Collector) BreakerObserved(open bool, consecutiveFailures int) {
	if !c.enabled {
		return
	}
	v := 0.0
	if open {
		v = 1.0
	}
	c.breakerOpen.Set(v)
	c.breakerFailures.Set(float64(consecutiveFailures))
}

// SpendObserved implements pipeline.Observer.
func (c *Collector) SpendObserved(profile costdata.Profile, mtdTotal, budgetFraction, projection float64) {
	if !c.enabled {
		return
	}
	c.mtdSpend.WithLabelValues(string(profile)).Set(mtdTotal)
	c.budgetFraction.WithLabelValues(string(profile)).Set(budgetFraction)
	c.projectedSpend.WithLabelValues(string(profile)).Set(projection)
}
