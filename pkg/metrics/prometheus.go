package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Default histogram buckets for invocation duration (in milliseconds)
var defaultBuckets = []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000}

// PrometheusMetrics wraps prometheus collectors for gateway invocations
type PrometheusMetrics struct {
	registry *prometheus.Registry

	invocationsTotal   *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
}

// New creates a registry with the invocation collectors and the default Go
// and process collectors.
func New(namespace string, buckets []float64) *PrometheusMetrics {
	if len(buckets) == 0 {
		buckets = defaultBuckets
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	pm := &PrometheusMetrics{
		registry: registry,

		invocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invocations_total",
				Help:      "Total number of gateway invocations by outcome",
			},
			[]string{"status"},
		),

		invocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "invocation_duration_milliseconds",
				Help:      "Duration of gateway invocations in milliseconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(pm.invocationsTotal, pm.invocationDuration)
	return pm
}

// ObserveInvocation records one finished invocation.
func (pm *PrometheusMetrics) ObserveInvocation(status string, duration time.Duration) {
	pm.invocationsTotal.WithLabelValues(status).Inc()
	pm.invocationDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

// Handler returns the HTTP handler serving the registry.
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (pm *PrometheusMetrics) Registry() *prometheus.Registry {
	return pm.registry
}
