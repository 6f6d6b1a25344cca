package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jward/tsfeatures/internal/observability"
)

func TestInit_NoopWhenNoEndpoint(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Logger)

	_, span := providers.Tracer.Start(context.Background(), "op")
	span.End()
	assert.False(t, span.SpanContext().IsValid())

	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for name, want := range tests {
		assert.Equal(t, want, observability.ParseLevel(name), name)
	}
}

func TestNewLogger_JSONWithService(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cfg := observability.DefaultConfig()
	cfg.LogJSON = true
	logger := observability.NewLogger(&buf, cfg)

	logger.Info("hello", "k", "v")
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "tsfeatures", rec["service"])
	assert.Equal(t, "v", rec["k"])
	assert.NotContains(t, rec, "trace_id")
}

func TestNewLogger_AddsTraceContext(t *testing.T) {
	t.Parallel()

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	var buf bytes.Buffer
	cfg := observability.DefaultConfig()
	cfg.LogJSON = true
	logger := observability.NewLogger(&buf, cfg)

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.InfoContext(ctx, "inside")
	span.End()

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, span.SpanContext().TraceID().String(), rec["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), rec["span_id"])
}

func TestHTTPMiddleware_CreatesSpan(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	handler := http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(rw, "{}")
	})
	mw := observability.HTTPMiddleware(tp.Tracer("test"), handler)

	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/process", http.NoBody))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "POST /process", spans[0].Name)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
}

func TestHTTPMiddleware_ServerErrorMarksSpan(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	handler := http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusInternalServerError)
	})
	mw := observability.HTTPMiddleware(tp.Tracer("test"), handler)

	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	m := observability.NewMetrics()
	m.ObserveSuccess(2*time.Millisecond, []string{"AccessorKeyword", "SatisfiesExpression"})
	m.ObserveSuccess(time.Millisecond, []string{"AccessorKeyword"})
	m.ObserveFailure()

	n, err := testutil.GatherAndCount(m.Registry(), "tsfeatures_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n) // one series per outcome

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	body := rec.Body.String()
	assert.Contains(t, body, `tsfeatures_requests_total{outcome="ok"} 2`)
	assert.Contains(t, body, `tsfeatures_requests_total{outcome="error"} 1`)
	assert.Contains(t, body, `tsfeatures_features_detected_total{feature="AccessorKeyword"} 2`)
	assert.Contains(t, body, "tsfeatures_process_seconds_count 2")
}
