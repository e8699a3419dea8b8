package relay

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the relay's Prometheus collectors.
type Metrics struct {
	Messages      *prometheus.CounterVec
	AssistErrors  *prometheus.CounterVec
	AssistLatency prometheus.Histogram
	QueueDepth    prometheus.GaugeFunc
}

// NewMetrics creates and registers the relay collectors. queueDepth is
// sampled on scrape.
func NewMetrics(reg prometheus.Registerer, queueDepth func() float64) *Metrics {
	m := &Metrics{
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "messages_total",
			Help:      "Inbound messages by outcome.",
		}, []string{"outcome"}),
		AssistErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "assist_errors_total",
			Help:      "Assistant call failures by class.",
		}, []string{"class"}),
		AssistLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "relay",
			Name:      "assist_duration_seconds",
			Help:      "Latency of Assistant calls.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		QueueDepth: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "relay",
			Name:      "queue_depth",
			Help:      "Messages waiting in the relay queue.",
		}, queueDepth),
	}

	reg.MustRegister(m.Messages, m.AssistErrors, m.AssistLatency, m.QueueDepth)
	return m
}
