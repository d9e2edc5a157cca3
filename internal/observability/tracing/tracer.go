package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "rss-reader"

// GetTracer returns the application tracer from the global provider.
//
//	ctx, span := tracing.GetTracer().Start(ctx, "operation-name")
//	defer span.End()
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartJobSpan starts a consumer span named "job.<kind>".
func StartJobSpan(ctx context.Context, kind string, jobID int64, attempt int, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	base := []attribute.KeyValue{
		attribute.String("job.kind", kind),
		attribute.Int64("job.id", jobID),
		attribute.Int("job.attempt", attempt),
	}
	return GetTracer().Start(ctx, "job."+kind,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(append(base, attrs...)...),
	)
}

// EndSpan marks the span failed when err is non-nil and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
