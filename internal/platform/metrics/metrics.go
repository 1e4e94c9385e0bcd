package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	SnapshotsDelivered *prometheus.CounterVec
	FeedErrors         *prometheus.CounterVec
	ProjectionSize     *prometheus.GaugeVec
	RecognitionCalls   *prometheus.CounterVec
	RecognitionLatency prometheus.Histogram
	StreamClients      prometheus.Gauge
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		SnapshotsDelivered: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_feed_snapshots_delivered_total",
			Help: "Total change-feed snapshots delivered, per collection",
		}, []string{"collection"}),
		FeedErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_feed_errors_total",
			Help: "Total terminal change-feed errors, per collection",
		}, []string{"collection"}),
		ProjectionSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "presence_projection_items",
			Help: "Items currently held by each projection",
		}, []string{"collection"}),
		RecognitionCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_recognition_calls_total",
			Help: "Recognition service calls, per operation and outcome",
		}, []string{"operation", "outcome"}),
		RecognitionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "presence_recognition_call_duration_seconds",
			Help:    "Latency of recognition service calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		StreamClients: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "presence_stream_clients",
			Help: "Dashboard clients currently connected to the SSE stream",
		}),
	}
}

// NewForTest creates metrics on a private registry so parallel test suites do
// not collide on the default registerer.
func NewForTest() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		SnapshotsDelivered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_feed_snapshots_delivered_total",
			Help: "Total change-feed snapshots delivered, per collection",
		}, []string{"collection"}),
		FeedErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_feed_errors_total",
			Help: "Total terminal change-feed errors, per collection",
		}, []string{"collection"}),
		ProjectionSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "presence_projection_items",
			Help: "Items currently held by each projection",
		}, []string{"collection"}),
		RecognitionCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_recognition_calls_total",
			Help: "Recognition service calls, per operation and outcome",
		}, []string{"operation", "outcome"}),
		RecognitionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "presence_recognition_call_duration_seconds",
			Help:    "Latency of recognition service calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		StreamClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "presence_stream_clients",
			Help: "Dashboard clients currently connected to the SSE stream",
		}),
	}
}
