package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"kittycore/pkg/domain"
)

// MetricsRecorder observes the outcome and latency of every engine operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

// PrometheusMetricsRecorder exports operation counters, latencies and event
// counts. It also implements EventSink so committed events are counted by kind.
type PrometheusMetricsRecorder struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	events     *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder registers the kittycore collectors with reg.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	r := &PrometheusMetricsRecorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kittycore",
			Name:      "operations_total",
			Help:      "Engine operations by name and result.",
		}, []string{"operation", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kittycore",
			Name:      "operation_duration_seconds",
			Help:      "Engine operation latency including rule evaluation and persistence.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"operation"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kittycore",
			Name:      "events_total",
			Help:      "Committed events by kind.",
		}, []string{"kind"}),
	}
	for _, c := range []prometheus.Collector{r.operations, r.latency, r.events} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "error"
	}
	r.operations.WithLabelValues(operation, result).Inc()
	r.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// HandleEvent implements EventSink.
func (r *PrometheusMetricsRecorder) HandleEvent(_ context.Context, ev domain.Event) {
	r.events.WithLabelValues(string(ev.Kind)).Inc()
}
