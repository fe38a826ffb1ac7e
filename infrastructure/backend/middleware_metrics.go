package backend

import (
	"context"
	"time"

	"github.com/ahrav/go-duel/internal/ports"
)

// metricsBackend collects request metrics for operational monitoring:
// latency, throughput, and error rates per backend operation.
type metricsBackend struct {
	next      ports.ComputeBackend
	collector ports.MetricsCollector
}

// MetricsMiddleware creates middleware that records backend request
// metrics through the given collector. A nil collector disables recording
// without changing behavior.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next ports.ComputeBackend) ports.ComputeBackend {
		return &metricsBackend{next: next, collector: collector}
	}
}

// SelectPair implements ports.ComputeBackend while recording metrics.
func (m *metricsBackend) SelectPair(ctx context.Context, req ports.SelectPairRequest) (ports.SelectPairResponse, error) {
	start := time.Now()
	resp, err := m.next.SelectPair(ctx, req)
	m.record("select_pair", start, err)
	return resp, err
}

// BayesianRefit implements ports.ComputeBackend while recording metrics.
func (m *metricsBackend) BayesianRefit(ctx context.Context, req ports.RefitRequest) (ports.RefitResponse, error) {
	start := time.Now()
	resp, err := m.next.BayesianRefit(ctx, req)
	m.record("bayesian_refit", start, err)
	return resp, err
}

func (m *metricsBackend) record(operation string, start time.Time, err error) {
	if m.collector == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	labels := map[string]string{"operation": operation, "status": status}

	m.collector.RecordLatency("backend_request", time.Since(start), labels)
	m.collector.RecordCounter("backend_requests_total", 1, labels)
}
