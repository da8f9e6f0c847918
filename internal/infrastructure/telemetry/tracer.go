package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/davidleathers/nanp-dialplan"

// Tracer returns the tracer used by infrastructure adapters
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartHTTPSpan starts a client span for an outbound HTTP request
func StartHTTPSpan(ctx context.Context, method, url string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("http.method", method),
		attribute.String("http.url", url),
		attribute.String("component", "http"),
	)
	return Tracer().Start(ctx, fmt.Sprintf("HTTP %s", method),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...))
}

// StartDatabaseSpan starts a client span for a database operation
func StartDatabaseSpan(ctx context.Context, operation, table string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, fmt.Sprintf("db.%s %s", operation, table),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.operation", operation),
			attribute.String("db.table", table),
			attribute.String("db.system", "postgresql"),
		))
}

// StartCacheSpan starts a client span for a cache operation
func StartCacheSpan(ctx context.Context, operation, key string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, fmt.Sprintf("cache.%s", operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cache.operation", operation),
			attribute.String("cache.key", key),
			attribute.String("db.system", "redis"),
		))
}

// RecordError records err on the span and marks it failed. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
