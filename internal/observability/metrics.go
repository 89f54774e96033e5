package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "neurovision",
		Name:      "sessions_started_total",
		Help:      "Total number of sessions started",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "neurovision",
		Name:      "active_sessions",
		Help:      "Number of sessions currently active in the volatile store",
	})

	FramesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "neurovision",
		Name:      "frames_processed_total",
		Help:      "Total number of detection frames appended to sessions",
	})

	MetricsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "neurovision",
		Name:      "metrics_ingested_total",
		Help:      "Total number of metric samples ingested",
	})

	// PersistenceErrors is the observable channel for degraded persistence:
	// every swallowed durable-store failure increments it.
	PersistenceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "neurovision",
		Name:      "persistence_errors_total",
		Help:      "Total number of best-effort durable store calls that failed",
	}, []string{"op"})

	ReportsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "neurovision",
		Name:      "reports_generated_total",
		Help:      "Total number of wellbeing reports generated",
	})

	EnrichmentFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "neurovision",
		Name:      "enrichment_failures_total",
		Help:      "Total number of failed report enrichment attempts",
	}, []string{"strategy"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "neurovision",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "neurovision",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
