package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	PipelineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "queryfuse",
			Name:      "pipeline_requests_total",
			Help:      "Total number of pipeline runs",
		},
		[]string{"status"}, // "ok" / "degraded" / "errored"
	)

	PipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "queryfuse",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"stage"},
	)

	PipelineDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "queryfuse",
			Name:      "pipeline_degraded_total",
			Help:      "Total stage degradations",
		},
		[]string{"stage"},
	)

	ExtractionStrategyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "queryfuse",
			Name:      "extraction_strategy_total",
			Help:      "Extraction runs by processing strategy",
		},
		[]string{"strategy"}, // "local" / "remote" / "hybrid"
	)

	SpaceSearchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "queryfuse",
			Name:      "space_search_total",
			Help:      "Per-space vector searches",
		},
		[]string{"space", "status"}, // status: "ok" / "timeout" / "error"
	)

	SpaceSearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "queryfuse",
			Name:      "space_search_duration_seconds",
			Help:      "Per-space vector search duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"space"},
	)

	FusionCandidatesTotal = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "queryfuse",
			Name:      "fusion_candidates",
			Help:      "Number of fused candidates per request",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
	)
)

// RegisterPipelineMetrics registers pipeline metrics with the default registry.
// Call once at startup (no init()).
func RegisterPipelineMetrics() {
	prometheus.MustRegister(
		PipelineRequestsTotal,
		PipelineStageDuration,
		PipelineDegradedTotal,
		ExtractionStrategyTotal,
		SpaceSearchTotal,
		SpaceSearchDuration,
		FusionCandidatesTotal,
	)
}
