// Package observability provides Prometheus metrics instrumentation for the
// planning pipeline and its external lookups.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// PIPELINE METRICS
// =============================================================================

var (
	pipelineExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_pipeline_executions_total",
			Help: "Total number of planning pipeline executions",
		},
		[]string{"status"}, // status: success, error
	)

	pipelineDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "concierge_pipeline_duration_seconds",
			Help:    "Planning pipeline execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)
)

// =============================================================================
// STAGE METRICS
// =============================================================================

var (
	stageExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_stage_executions_total",
			Help: "Total number of pipeline stage executions",
		},
		[]string{"stage", "status"}, // status: success, error
	)

	stageDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "concierge_stage_duration_seconds",
			Help:    "Pipeline stage execution duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"stage"},
	)
)

// =============================================================================
// LOOKUP METRICS
// =============================================================================

var (
	lookupCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_lookup_calls_total",
			Help: "Total number of external lookup calls (weather, fx, poi, llm)",
		},
		[]string{"service", "status"}, // status: success, error
	)

	lookupDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "concierge_lookup_duration_seconds",
			Help:    "External lookup call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"service"},
	)
)

// =============================================================================
// PUBLIC API
// =============================================================================

// RecordPipelineExecution records pipeline execution metrics.
// This should be called after a pipeline run completes.
func RecordPipelineExecution(status string, durationMS int) {
	pipelineExecutionsTotal.WithLabelValues(status).Inc()
	pipelineDurationSeconds.Observe(float64(durationMS) / 1000.0)
}

// RecordStageExecution records stage execution metrics.
// This should be called after stage processing completes.
func RecordStageExecution(stage string, status string, durationMS int) {
	stageExecutionsTotal.WithLabelValues(stage, status).Inc()
	stageDurationSeconds.WithLabelValues(stage).Observe(float64(durationMS) / 1000.0)
}

// RecordLookupCall records external lookup metrics.
// This should be called after a lookup completes.
func RecordLookupCall(service string, status string, durationMS int) {
	lookupCallsTotal.WithLabelValues(service, status).Inc()
	lookupDurationSeconds.WithLabelValues(service).Observe(float64(durationMS) / 1000.0)
}
