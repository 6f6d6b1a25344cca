package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// processBuckets covers 100µs to 5s; most single-file analyses finish in
// a few milliseconds.
var processBuckets = []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1, 5}

// Metrics holds the service's Prometheus collectors on a private registry,
// so building more than one (as tests do) never collides.
type Metrics struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	processSeconds   prometheus.Histogram
	featuresDetected *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tsfeatures_requests_total",
			Help: "Analysis requests by outcome.",
		}, []string{"outcome"}),
		processSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tsfeatures_process_seconds",
			Help:    "Parse and walk time of successful analyses.",
			Buckets: processBuckets,
		}),
		featuresDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tsfeatures_features_detected_total",
			Help: "Files reported as using each feature.",
		}, []string{"feature"}),
	}
	m.registry.MustRegister(m.requests, m.processSeconds, m.featuresDetected)
	return m
}

// ObserveSuccess records a successful analysis.
func (m *Metrics) ObserveSuccess(processTime time.Duration, features []string) {
	m.requests.WithLabelValues(OutcomeOK).Inc()
	m.processSeconds.Observe(processTime.Seconds())
	for _, f := range features {
		m.featuresDetected.WithLabelValues(f).Inc()
	}
}

// ObserveFailure records a request that ended in an error envelope.
func (m *Metrics) ObserveFailure() {
	m.requests.WithLabelValues(OutcomeError).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
