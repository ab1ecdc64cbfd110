package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetml_pipeline_runs_total",
			Help: "Total pipeline runs by model and outcome",
		},
		[]string{"model", "status"},
	)

	PipelineRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetml_pipeline_run_duration_seconds",
			Help:    "Pipeline run duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"model"},
	)

	RecordsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetml_records_fetched_total",
			Help: "Total operational records read from the ERP database",
		},
		[]string{"model"},
	)

	ReportsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetml_reports_stored_total",
			Help: "Total model reports persisted",
		},
		[]string{"model"},
	)

	FallbackEstimatorUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetml_fallback_estimator_total",
			Help: "Runs that trained the fallback estimator instead of the preferred one",
		},
		[]string{"model"},
	)
)
