// Package observability provides metrics collector implementations for
// the ranking engine.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-duel/internal/ports"
)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It provides real-time monitoring of backend request
// latency, throughput, cache effectiveness, and session state.
type PrometheusMetrics struct {
	requestLatency  *prometheus.HistogramVec
	requestCounter  *prometheus.CounterVec
	cacheEvents     *prometheus.CounterVec
	sessionGauges   *prometheus.GaugeVec
	genericCounters *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance and
// registers all required metrics in the global Prometheus registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		requestLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_request_duration_seconds",
				Help:    "Execution time of compute backend requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "status"},
		),
		requestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_requests_total",
				Help: "Total number of compute backend requests.",
			},
			[]string{"operation", "status"},
		),
		cacheEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_cache_events_total",
				Help: "Cache hits and misses in the backend memoization layer.",
			},
			[]string{"operation", "event"},
		),
		sessionGauges: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ranking_session_state",
				Help: "Current ranking session state values.",
			},
			[]string{"metric"},
		),
		genericCounters: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ranking_events_total",
				Help: "Miscellaneous ranking engine events.",
			},
			[]string{"metric", "status"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	op, ok := labels["operation"]
	if !ok {
		op = operation
	}
	pm.requestLatency.WithLabelValues(op, labelOr(labels, "status", "success")).
		Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case "backend_requests_total":
		pm.requestCounter.WithLabelValues(
			labelOr(labels, "operation", "unknown"),
			labelOr(labels, "status", "success"),
		).Add(value)
	case "backend_cache_events_total":
		pm.cacheEvents.WithLabelValues(
			labelOr(labels, "operation", "unknown"),
			labelOr(labels, "event", "unknown"),
		).Add(value)
	default:
		pm.genericCounters.WithLabelValues(metric, labelOr(labels, "status", "success")).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	pm.sessionGauges.WithLabelValues(metric).Set(value)
}

func labelOr(labels map[string]string, key, fallback string) string {
	if v, ok := labels[key]; ok {
		return v
	}
	return fallback
}

// Compile-time verification that PrometheusMetrics implements
// MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
