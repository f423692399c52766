// Package metrics exposes the prometheus surface of the api and worker
// processes. It complements the in-process rankmetrics aggregator, which the
// request path reads back synchronously for threshold alerting.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RankServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	decisionsTotal   *prometheus.CounterVec
	exploredTotal    *prometheus.CounterVec
	cacheHitsTotal   *prometheus.CounterVec
	rankDuration     *prometheus.HistogramVec
	feedbackTotal    *prometheus.CounterVec
	poolSizeObserved *prometheus.HistogramVec
}

func NewRankServerMetrics(service string) *RankServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankd",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rankd",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rankd",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	decisionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankd",
			Subsystem: "rank",
			Name:      "decisions_total",
			Help:      "Total ranking decisions by scenario and status.",
		},
		[]string{"service", "scenario", "status"},
	)
	exploredTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankd",
			Subsystem: "rank",
			Name:      "explored_total",
			Help:      "Total epsilon-exploration substitutions by bucket.",
		},
		[]string{"service", "scenario", "bucket"},
	)
	cacheHitsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankd",
			Subsystem: "rank",
			Name:      "decision_cache_hits_total",
			Help:      "Total decisions served from the request-scoped cache.",
		},
		[]string{"service", "scenario"},
	)
	rankDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rankd",
			Subsystem: "rank",
			Name:      "duration_seconds",
			Help:      "Ranking call duration in seconds by scenario.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .2, .3, .5, .8, 1.5, 3, 5},
		},
		[]string{"service", "scenario"},
	)
	feedbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankd",
			Subsystem: "rank",
			Name:      "feedback_total",
			Help:      "Total feedback submissions by derived signal.",
		},
		[]string{"service", "signal"},
	)
	poolSizeObserved := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rankd",
			Subsystem: "rank",
			Name:      "pool_size",
			Help:      "Distribution of full candidate pool sizes per call.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100, 200},
		},
		[]string{"service", "scenario"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		decisionsTotal,
		exploredTotal,
		cacheHitsTotal,
		rankDuration,
		feedbackTotal,
		poolSizeObserved,
	)

	return &RankServerMetrics{
		registry:         registry,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
		decisionsTotal:   decisionsTotal,
		exploredTotal:    exploredTotal,
		cacheHitsTotal:   cacheHitsTotal,
		rankDuration:     rankDuration,
		feedbackTotal:    feedbackTotal,
		poolSizeObserved: poolSizeObserved,
	}
}

func (m *RankServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *RankServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

func (m *RankServerMetrics) RecordDecision(service, scenario string, fromCache bool, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.decisionsTotal.WithLabelValues(service, scenario, status).Inc()
	m.rankDuration.WithLabelValues(service, scenario).Observe(duration.Seconds())
	if fromCache {
		m.cacheHitsTotal.WithLabelValues(service, scenario).Inc()
	}
}

func (m *RankServerMetrics) RecordExploration(service, scenario, bucket string) {
	if bucket == "" {
		bucket = "unknown"
	}
	m.exploredTotal.WithLabelValues(service, scenario, bucket).Inc()
}

func (m *RankServerMetrics) RecordFeedback(service string, positive bool) {
	signal := "negative"
	if positive {
		signal = "positive"
	}
	m.feedbackTotal.WithLabelValues(service, signal).Inc()
}

func (m *RankServerMetrics) RecordPoolSize(service, scenario string, size int) {
	m.poolSizeObserved.WithLabelValues(service, scenario).Observe(float64(size))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
