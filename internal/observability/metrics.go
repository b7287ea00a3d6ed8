package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecognitionAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "memora",
		Name:      "recognition_attempts_total",
		Help:      "Total recognition attempts by outcome",
	}, []string{"outcome"})

	RecognitionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "memora",
		Name:      "recognition_duration_seconds",
		Help:      "Round-trip duration of recognition gateway calls",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	AggregationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "memora",
		Name:      "aggregation_duration_seconds",
		Help:      "Duration of related-content and briefing aggregations",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})

	TransferActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "memora",
		Name:      "transfer_actions_total",
		Help:      "Total transfer protocol actions by type and result",
	}, []string{"action", "result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "memora",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "memora",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
