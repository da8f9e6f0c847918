package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zapcore"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestTracedHandler_AddsTraceContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(tracetest.NewSpanRecorder()))
	ctx, span := tp.Tracer("test").Start(context.Background(), "run")
	defer span.End()

	var buf bytes.Buffer
	logger := NewLogger("info", &buf).With("component", "test")
	logger.InfoContext(ctx, "rule set generated", "rules", 2)

	entry := decodeLine(t, &buf)
	assert.Equal(t, span.SpanContext().TraceID().String(), entry["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), entry["span_id"])
	assert.Equal(t, true, entry["sampled"])
	assert.Equal(t, "test", entry["component"])
	assert.EqualValues(t, 2, entry["rules"])
}

func TestTracedHandler_NoSpan(t *testing.T) {
	var buf bytes.Buffer
	NewLogger("debug", &buf).DebugContext(context.Background(), "fetching")

	entry := decodeLine(t, &buf)
	assert.NotContains(t, entry, "trace_id")
	assert.Equal(t, "fetching", entry["msg"])
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("warn", &buf)
	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.NotZero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))

	assert.Equal(t, zapcore.DebugLevel, zapLevel(ParseLevel("debug")))
	assert.Equal(t, zapcore.WarnLevel, zapLevel(ParseLevel("warn")))
	assert.Equal(t, zapcore.InfoLevel, zapLevel(ParseLevel("")))
}
