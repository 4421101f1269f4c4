// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transmission_lookups_total",
			Help: "Lookups by result tier (EXACT, RELAXED, NONE) or failure outcome",
		},
		[]string{"tier"},
	)

	LookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transmission_lookup_duration_seconds",
			Help:    "End-to-end lookup latency in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 5, 10, 20},
		},
		[]string{"tier"},
	)

	UpstreamFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transmission_upstream_failures_total",
			Help: "Text-completion failures by kind",
		},
		[]string{"kind"},
	)

	CatalogRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transmission_catalog_refresh_total",
			Help: "Catalog refresh attempts by result (ok, error, snapshot, stale)",
		},
		[]string{"result"},
	)

	CatalogRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "transmission_catalog_records",
			Help: "Number of records in the active catalog snapshot",
		},
	)

	ReplyCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transmission_reply_cache_total",
			Help: "Reply cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)
)
