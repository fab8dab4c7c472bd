package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibpconv/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInitializeOTel_MetricsOnly(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    "ibpconv-test",
		ServiceVersion: "test",
		Environment:    "test",
		TraceExporter:  "none",
		EnableMetrics:  true,
		SampleRatio:    1,
	}, discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	assert.Nil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer, "tracer falls back to noop")
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.MetricsHandler)
}

func TestInitializeOTel_StdoutTracing(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:   "ibpconv-test",
		TraceExporter: "stdout",
		EnableTracing: true,
		SampleRatio:   1,
	}, discardLogger())
	require.NoError(t, err)

	ctx, span := providers.Tracer.Start(context.Background(), "convert")
	assert.True(t, span.SpanContext().IsValid())
	RecordError(ctx, errors.New("boom"))
	AddSpanEvent(ctx, "event")
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestInitializeOTel_UnsupportedExporter(t *testing.T) {
	_, err := InitializeOTel(&OTelConfig{EnableTracing: true, TraceExporter: "zipkin"}, discardLogger())
	assert.Error(t, err)
}

func TestInitializeOTel_NilConfigIsNoop(t *testing.T) {
	providers, err := InitializeOTel(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, providers.MeterProvider)
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestConversionMetrics_ExposedOnPrometheusEndpoint(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{ServiceName: "ibpconv-test", EnableMetrics: true}, discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := NewConversionMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordConversion(ctx, "success", 4, 20*time.Millisecond)
	metrics.RecordHeader(ctx, true, "month_year")
	metrics.RecordHeader(ctx, false, "")

	server := httptest.NewServer(providers.MetricsHandler)
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, "ibp_conversions_total")
	assert.Contains(t, text, `outcome="success"`)
	assert.Contains(t, text, "ibp_headers_total")
	assert.Contains(t, text, `strategy="month_year"`)
	assert.Contains(t, text, `outcome="passthrough"`)
	assert.Contains(t, text, "ibp_rows_emitted_total")
	assert.Contains(t, text, "ibp_conversion_duration_seconds")
}

func TestConversionMetrics_NilIsSafe(t *testing.T) {
	var m *ConversionMetrics
	m.RecordConversion(context.Background(), "success", 1, time.Second)
	m.RecordHeader(context.Background(), true, "bare_year")
}

func TestOTelConfigFrom(t *testing.T) {
	cfg := OTelConfigFrom(config.TelemetryConfig{Enabled: true, ServiceName: "svc", TraceExporter: "none"})
	assert.True(t, cfg.EnableMetrics)
	assert.False(t, cfg.EnableTracing)
	assert.Equal(t, config.AppVersion, cfg.ServiceVersion)

	cfg = OTelConfigFrom(config.TelemetryConfig{Enabled: false, TraceExporter: "stdout"})
	assert.False(t, cfg.EnableMetrics)
	assert.False(t, cfg.EnableTracing)
}
