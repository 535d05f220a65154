package jikan

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the upstream access layer.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	ThrottledTotal  prometheus.Counter
	RetriesTotal    prometheus.Counter
	QueueDepth      prometheus.Gauge
	ErrorsTotal     *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anidex_upstream_requests_total",
			Help: "Total HTTP requests issued against the catalog API.",
		},
		[]string{"endpoint", "status"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "anidex_upstream_request_duration_seconds",
			Help:    "HTTP request latency for catalog API calls.",
			Buckets: prometheus.DefBuckets,
		},
	)
	throttled := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "anidex_scheduler_throttled_total",
			Help: "Total requests the upstream rejected with a rate-limit signal.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "anidex_scheduler_retries_total",
			Help: "Total retry dispatches performed after throttling.",
		},
	)
	queueDepth := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "anidex_scheduler_queue_depth",
			Help: "Number of requests waiting in the scheduler queue.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anidex_upstream_errors_total",
			Help: "Total upstream request errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, requestDuration, throttled, retries, queueDepth, errorsTotal)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		ThrottledTotal:  throttled,
		RetriesTotal:    retries,
		QueueDepth:      queueDepth,
		ErrorsTotal:     errorsTotal,
	}
}

// IncRequest increments the requests counter for an endpoint/status pair.
func (m *Metrics) IncRequest(endpoint, status string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(endpoint, status).Inc()
}

// ObserveDuration records an upstream request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncThrottled increments the throttled requests counter.
func (m *Metrics) IncThrottled() {
	if m == nil {
		return
	}
	m.ThrottledTotal.Inc()
}

// IncRetries increments the retry dispatch counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// SetQueueDepth records the current scheduler queue length.
func (m *Metrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(depth))
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
