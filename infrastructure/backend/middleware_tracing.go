package backend

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-duel/internal/ports"
)

// tracerName identifies this instrumentation scope to the OTel SDK.
const tracerName = "compute-backend"

// tracedBackend wraps backend operations in OpenTelemetry spans so
// per-round compute cost is visible in distributed traces.
type tracedBackend struct {
	next   ports.ComputeBackend
	tracer trace.Tracer
}

// TracingMiddleware creates middleware that traces backend requests.
func TracingMiddleware() Middleware {
	return func(next ports.ComputeBackend) ports.ComputeBackend {
		return &tracedBackend{next: next, tracer: otel.Tracer(tracerName)}
	}
}

// SelectPair implements ports.ComputeBackend within a trace span.
func (t *tracedBackend) SelectPair(ctx context.Context, req ports.SelectPairRequest) (ports.SelectPairResponse, error) {
	ctx, span := t.tracer.Start(ctx, "ComputeBackend.SelectPair",
		trace.WithAttributes(
			attribute.Int("ranking.items", req.N),
			attribute.Int("ranking.k", req.K),
			attribute.Int("ranking.round", len(req.History)),
			attribute.Bool("ranking.no_cache", req.NoCache),
		),
	)
	defer span.End()

	resp, err := t.next.SelectPair(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return resp, err
	}

	span.SetAttributes(
		attribute.Int("ranking.pair.i", resp.I),
		attribute.Int("ranking.pair.j", resp.J),
	)
	return resp, nil
}

// BayesianRefit implements ports.ComputeBackend within a trace span.
func (t *tracedBackend) BayesianRefit(ctx context.Context, req ports.RefitRequest) (ports.RefitResponse, error) {
	ctx, span := t.tracer.Start(ctx, "ComputeBackend.BayesianRefit",
		trace.WithAttributes(
			attribute.Int("ranking.items", req.N),
			attribute.Int("ranking.round", len(req.History)),
			attribute.Bool("ranking.no_cache", req.NoCache),
		),
	)
	defer span.End()

	resp, err := t.next.BayesianRefit(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return resp, err
}
