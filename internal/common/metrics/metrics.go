// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_queries_processed_total",
			Help: "Total number of queries processed by intent and status",
		},
		[]string{"intent", "status"},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "support_query_duration_seconds",
			Help: "Duration of query processing in seconds",
		},
		[]string{"intent"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_cache_lookups_total",
			Help: "Response cache lookups by outcome (hit, miss, expired)",
		},
		[]string{"outcome"},
	)

	ClassifierCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_classifier_calls_total",
			Help: "External classifier calls by outcome (ok, timeout, error)",
		},
		[]string{"outcome"},
	)

	ClassifierFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "support_classifier_fallbacks_total",
			Help: "Queries classified by the local fallback heuristic",
		},
	)

	ClassifierDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "support_classifier_duration_seconds",
			Help: "Duration of external classifier calls in seconds",
		},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "support_sessions_active",
			Help: "Number of live sessions",
		},
	)

	SessionsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "support_sessions_swept_total",
			Help: "Sessions purged by the idle-timeout sweeper",
		},
	)
)
