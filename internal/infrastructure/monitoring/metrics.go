// Package monitoring exposes Prometheus metrics and OpenTelemetry tracing
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "studio"

// MetricsCollector handles Prometheus metrics collection. It records
// HTTP traffic, generation requests and the studio's background jobs on
// its own registry.
type MetricsCollector struct {
	registry *prometheus.Registry
	logger   *zap.Logger

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpActiveRequests  prometheus.Gauge

	// Generation metrics
	generationRequestsTotal   *prometheus.CounterVec
	generationRequestDuration *prometheus.HistogramVec

	// Studio metrics
	videoJobsActive    prometheus.Gauge
	videoJobsTotal     *prometheus.CounterVec
	videoJobDuration   prometheus.Histogram
	videoPollsTotal    prometheus.Counter
	imageAttemptsTotal *prometheus.CounterVec
	storageFailures    *prometheus.CounterVec
}

// NewMetricsCollector creates a new metrics collector with Go runtime and
// process collectors registered
func NewMetricsCollector(logger *zap.Logger) *MetricsCollector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &MetricsCollector{
		registry: registry,
		logger:   logger.Named("metrics"),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		httpActiveRequests: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_active_requests",
				Help:      "Number of in-flight HTTP requests",
			},
		),

		generationRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_requests_total",
				Help:      "Generation gateway requests by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		generationRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_request_duration_seconds",
				Help:      "Generation gateway request duration in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
			},
			[]string{"operation"},
		),

		videoJobsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "video_jobs_active",
				Help:      "Video jobs currently polling",
			},
		),
		videoJobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "video_jobs_total",
				Help:      "Finished video jobs by outcome",
			},
			[]string{"outcome"},
		),
		videoJobDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "video_job_duration_seconds",
				Help:      "Wall time from video start to attach or failure",
				Buckets:   prometheus.ExponentialBuckets(10, 2, 8),
			},
		),
		videoPollsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "video_polls_total",
				Help:      "Video status polls issued",
			},
		),
		imageAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "image_attempts_total",
				Help:      "Recipe image generations by outcome",
			},
			[]string{"outcome"},
		),
		storageFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_failures_total",
				Help:      "Swallowed persistence failures by operation",
			},
			[]string{"operation"},
		),
	}
}

// Registry returns the registry metrics are registered on
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog: zap.NewStdLog(m.logger),
		Registry: m.registry,
	})
}

// HTTP metrics

// RequestStarted increments the in-flight gauge
func (m *MetricsCollector) RequestStarted() {
	m.httpActiveRequests.Inc()
}

// RequestFinished records a completed request. Route is the matched route
// pattern, not the raw path.
func (m *MetricsCollector) RequestFinished(method, route string, status int, elapsed time.Duration) {
	m.httpActiveRequests.Dec()
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Generation metrics

// GenerationRequest records one gateway call
func (m *MetricsCollector) GenerationRequest(operation, outcome string, elapsed time.Duration) {
	m.generationRequestsTotal.WithLabelValues(operation, outcome).Inc()
	m.generationRequestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// Studio metrics

func (m *MetricsCollector) VideoJobStarted() {
	m.videoJobsActive.Inc()
}

func (m *MetricsCollector) VideoJobFinished(outcome string, elapsed time.Duration) {
	m.videoJobsActive.Dec()
	m.videoJobsTotal.WithLabelValues(outcome).Inc()
	m.videoJobDuration.Observe(elapsed.Seconds())
}

func (m *MetricsCollector) VideoPolled() {
	m.videoPollsTotal.Inc()
}

func (m *MetricsCollector) ImageAttempted(outcome string) {
	m.imageAttemptsTotal.WithLabelValues(outcome).Inc()
}

func (m *MetricsCollector) StorageFailed(operation string) {
	m.storageFailures.WithLabelValues(operation).Inc()
}
