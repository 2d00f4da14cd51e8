// Package metrics provides Prometheus metrics recording for internal packages.
// This package exists to avoid import cycles between database and middleware packages.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// dbQueryDuration tracks database query duration in seconds
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracelab_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"database", "operation"},
	)

	// dbQueryTotal tracks total database queries
	dbQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracelab_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"database", "operation"},
	)

	// dbQueryErrors tracks database query errors
	dbQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracelab_db_query_errors_total",
			Help: "Total number of database query errors",
		},
		[]string{"database", "operation"},
	)

	// scriptRunsTotal tracks script executions by outcome
	scriptRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracelab_script_runs_total",
			Help: "Total number of script runs",
		},
		[]string{"status"},
	)

	// scriptRunDuration tracks script execution duration in seconds
	scriptRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracelab_script_run_duration_seconds",
			Help:    "Script run duration in seconds",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 60, 300},
		},
		[]string{"status"},
	)

	// analysisLookups tracks resolver lookups by outcome
	analysisLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracelab_analysis_lookups_total",
			Help: "Total number of analysis module lookups",
		},
		[]string{"outcome"},
	)
)

// RecordDBQuery records database query metrics
func RecordDBQuery(database, operation string, duration time.Duration) {
	dbQueryTotal.WithLabelValues(database, operation).Inc()
	dbQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}

// RecordDBError records a database query error
func RecordDBError(database, operation string) {
	dbQueryErrors.WithLabelValues(database, operation).Inc()
}

// RecordScriptRun records a completed script run
func RecordScriptRun(status string, duration time.Duration) {
	scriptRunsTotal.WithLabelValues(status).Inc()
	scriptRunDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordAnalysisLookup records a resolver lookup outcome ("hit" or "miss")
func RecordAnalysisLookup(outcome string) {
	analysisLookups.WithLabelValues(outcome).Inc()
}
