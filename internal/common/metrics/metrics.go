package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
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

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "discovery_operation_duration_seconds",
			Help:    "Duration of discovery operations",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation", "status"},
	)

	EngineRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_engine_requests_total",
			Help: "Search engine requests by operation and outcome",
		},
		[]string{"operation", "status"},
	)

	EngineBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "discovery_engine_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"breaker"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_cache_requests_total",
			Help: "Result cache lookups by cache and result (hit, miss, error)",
		},
		[]string{"cache", "result"},
	)

	CacheQueueDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_cache_queue_dropped_total",
			Help: "Cache operations dropped: full queue, or a write superseded by an invalidation",
		},
		[]string{"kind"},
	)

	SuggestionStrategyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_suggestion_strategy_failures_total",
			Help: "Suggestion strategies that failed and contributed nothing",
		},
		[]string{"strategy"},
	)

	RecommendationPathFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_recommendation_path_failures_total",
			Help: "Recommendation paths that failed and degraded to empty",
		},
		[]string{"path"},
	)

	RecommendationFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_recommendation_fallbacks_total",
			Help: "Recommendation calls served by the popularity fallback",
		},
		[]string{"algorithm"},
	)

	AnalyticsEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_analytics_events_total",
			Help: "Analytics events by outcome (recorded, dropped, failed)",
		},
		[]string{"outcome"},
	)
)

// ObserveOperation records the duration of op since start.
func ObserveOperation(op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	OperationDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}
