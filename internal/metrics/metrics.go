// Package metrics provides Prometheus instrumentation for the probe.
// Collectors are registered via Init and exposed through Handler when the
// probe runs in monitor mode; single-shot runs increment them too, they
// just never get scraped.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RunsTotal counts upload attempts by scenario and outcome.
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "probe_runs_total",
			Help: "Total upload probe attempts by scenario and outcome",
		},
		[]string{"scenario", "outcome"},
	)

	// Duration observes end-to-end upload latency in seconds per scenario.
	Duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "probe_duration_seconds",
			Help:    "Upload probe latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"scenario"},
	)

	// LastSuccess records the unix timestamp of the most recent successful
	// upload per scenario. Alerting keys off staleness of this gauge.
	LastSuccess = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "probe_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful upload",
		},
		[]string{"scenario"},
	)

	// RequirementsMissing counts scenario runs skipped because a required
	// local service was not listening.
	RequirementsMissing = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "probe_requirements_missing_total",
			Help: "Scenario runs skipped due to missing local services",
		},
		[]string{"scenario"},
	)
)

// Init registers all collectors with the default registry. Call once at
// startup in monitor mode.
func Init() {
	prometheus.MustRegister(
		RunsTotal,
		Duration,
		LastSuccess,
		RequirementsMissing,
	)
}

// Handler returns the HTTP handler for the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
