// Package metrics exposes Prometheus instrumentation for the import flows.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ImportRows counts per-row outcomes of bulk import runs by status
	// ("success" or "failed").
	ImportRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "couples_import_rows_total",
		Help: "Rows processed by bulk import runs, by outcome status.",
	}, []string{"status"})

	// ImportRuns counts completed bulk import runs. Runs always complete;
	// there is no failed run state.
	ImportRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "couples_import_runs_total",
		Help: "Completed bulk import runs.",
	})

	// ImportRunDuration observes wall-clock duration of completed runs.
	ImportRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "couples_import_run_duration_seconds",
		Help:    "Duration of completed bulk import runs.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	// SingleCreates counts single-record create submissions by result
	// ("created" or "failed").
	SingleCreates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "couples_single_creates_total",
		Help: "Single-record couple create submissions, by result.",
	}, []string{"result"})
)

// Handler returns the HTTP handler serving the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
