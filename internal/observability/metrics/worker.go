package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics covers the feedback consumer process.
type WorkerMetrics struct {
	registry *prometheus.Registry

	applyTotal    *prometheus.CounterVec
	applyDuration *prometheus.HistogramVec
	applyInFlight prometheus.Gauge
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	applyTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankd",
			Subsystem: "worker",
			Name:      "feedback_apply_total",
			Help:      "Total applied feedback events by status.",
		},
		[]string{"service", "status"},
	)
	applyDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rankd",
			Subsystem: "worker",
			Name:      "feedback_apply_duration_seconds",
			Help:      "Feedback apply duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	applyInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rankd",
			Subsystem: "worker",
			Name:      "feedback_apply_in_flight",
			Help:      "Number of in-flight feedback applications.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(applyTotal, applyDuration, applyInFlight)

	return &WorkerMetrics{
		registry:      registry,
		applyTotal:    applyTotal,
		applyDuration: applyDuration,
		applyInFlight: applyInFlight,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartFeedback() {
	m.applyInFlight.Inc()
}

func (m *WorkerMetrics) FinishFeedback(service string, duration time.Duration, err error) {
	m.applyInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.applyTotal.WithLabelValues(service, status).Inc()
	m.applyDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}
