package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carbon_etl_runs_total",
			Help: "Total ETL runs by outcome",
		},
		[]string{"status"}, // success, failure
	)

	runDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "carbon_etl_run_duration_seconds",
			Help:    "Duration of a full ETL run",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)

	rowsLoadedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carbon_etl_rows_loaded_total",
			Help: "Rows upserted into the remote table by feed",
		},
		[]string{"feed"}, // intensity, generation, regional
	)

	rowsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carbon_etl_rows_dropped_total",
			Help: "Rows dropped by validation before load",
		},
		[]string{"feed"},
	)

	feedErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carbon_etl_feed_errors_total",
			Help: "Fatal feed failures by stage",
		},
		[]string{"feed", "stage"}, // stage=fetch/transform/load
	)

	rowsSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "carbon_etl_rows_swept_total",
			Help: "Rows deleted by the retention sweeper",
		},
	)
)
