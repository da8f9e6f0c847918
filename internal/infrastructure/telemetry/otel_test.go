package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestInitializeOpenTelemetry_Disabled(t *testing.T) {
	prevTP, prevMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
	})

	p, err := InitializeOpenTelemetry(context.Background(), DefaultConfig())
	require.NoError(t, err)

	assert.Nil(t, p.Resource)
	assert.Empty(t, p.shutdown)
	assert.NoError(t, p.Shutdown(context.Background()))

	_, span := otel.Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
}

func TestProviderShutdown_CollectsErrors(t *testing.T) {
	p := &Provider{shutdown: []func(context.Context) error{
		func(context.Context) error { return nil },
		func(context.Context) error { return errors.New("exporter gone") },
	}}

	err := p.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exporter gone")
}

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func attrMap(attrs []attribute.KeyValue) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}

func TestSpanHelpers(t *testing.T) {
	tests := []struct {
		name      string
		start     func(ctx context.Context) (context.Context, trace.Span)
		wantName  string
		wantAttrs map[string]string
	}{
		{
			name: "http",
			start: func(ctx context.Context) (context.Context, trace.Span) {
				return StartHTTPSpan(ctx, "GET", "https://example.test/xmlprefix.php?npa=816", attribute.String("peer.service", "localcallingguide"))
			},
			wantName: "HTTP GET",
			wantAttrs: map[string]string{
				"http.method":  "GET",
				"http.url":     "https://example.test/xmlprefix.php?npa=816",
				"peer.service": "localcallingguide",
			},
		},
		{
			name: "database",
			start: func(ctx context.Context) (context.Context, trace.Span) {
				return StartDatabaseSpan(ctx, "select", "dialplan_patterns")
			},
			wantName: "db.select dialplan_patterns",
			wantAttrs: map[string]string{
				"db.operation": "select",
				"db.table":     "dialplan_patterns",
				"db.system":    "postgresql",
			},
		},
		{
			name: "cache",
			start: func(ctx context.Context) (context.Context, trace.Span) {
				return StartCacheSpan(ctx, "get", "nanp:prefixes:816")
			},
			wantName: "cache.get",
			wantAttrs: map[string]string{
				"cache.key": "nanp:prefixes:816",
				"db.system": "redis",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := recordSpans(t)

			_, span := tt.start(context.Background())
			span.End()

			ended := recorder.Ended()
			require.Len(t, ended, 1)
			assert.Equal(t, tt.wantName, ended[0].Name())
			got := attrMap(ended[0].Attributes())
			for k, v := range tt.wantAttrs {
				assert.Equal(t, v, got[k], k)
			}
		})
	}
}
