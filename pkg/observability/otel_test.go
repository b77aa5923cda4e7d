package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TestInitOTel_Disabled tests that InitOTel returns nil when disabled
func TestInitOTel_Disabled(t *testing.T) {
	ctx := context.Background()
	buf := &bytes.Buffer{}
	logger := NewLogger(InfoLevel, buf)

	cfg := OTelConfig{
		Enabled: false,
	}

	providers, err := InitOTel(ctx, cfg, logger)

	assert.NoError(t, err)
	assert.Nil(t, providers)
	assert.Contains(t, buf.String(), "OpenTelemetry is disabled")
}

// TestInitOTel_CreatesProviders tests provider creation without a collector.
// OTLP exporters dial lazily, so creation succeeds even when nothing is
// listening on the endpoint.
func TestInitOTel_CreatesProviders(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})

	cfg := OTelConfig{
		Enabled:        true,
		Endpoint:       "localhost:4317",
		ServiceName:    "beacon-test",
		ServiceVersion: "0.0.0",
		Insecure:       true,
	}

	providers, err := InitOTel(context.Background(), cfg, logger)

	require.NoError(t, err)
	require.NotNil(t, providers)
	assert.NotNil(t, providers.TracerProvider)
	assert.NotNil(t, providers.MeterProvider)

	_ = ShutdownOTel(context.Background(), providers, logger)
}

// TestInitOTel_EmptyServiceName tests InitOTel with empty service name
func TestInitOTel_EmptyServiceName(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})

	cfg := OTelConfig{
		Enabled:        true,
		Endpoint:       "localhost:4317",
		ServiceName:    "",
		ServiceVersion: "1.0.0",
		Insecure:       true,
	}

	providers, err := InitOTel(context.Background(), cfg, logger)
	assert.NoError(t, err)
	assert.NotNil(t, providers)

	if providers != nil {
		_ = ShutdownOTel(context.Background(), providers, logger)
	}
}

// TestInitOTel_SecureAndInsecure tests both credential configurations
func TestInitOTel_SecureAndInsecure(t *testing.T) {
	tests := []struct {
		name     string
		insecure bool
	}{
		{"insecure", true},
		{"secure", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(InfoLevel, &bytes.Buffer{})

			cfg := OTelConfig{
				Enabled:        true,
				Endpoint:       "localhost:4317",
				ServiceName:    "beacon-test",
				ServiceVersion: "1.0.0",
				Insecure:       tt.insecure,
			}

			providers, err := InitOTel(context.Background(), cfg, logger)
			assert.NoError(t, err)
			assert.NotNil(t, providers)

			if providers != nil {
				_ = ShutdownOTel(context.Background(), providers, logger)
			}
		})
	}
}

// TestInitOTel_PropagatorConfiguration tests that the global propagator is set
func TestInitOTel_PropagatorConfiguration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping propagator test in short mode")
	}

	originalPropagator := otel.GetTextMapPropagator()
	defer otel.SetTextMapPropagator(originalPropagator)

	logger := NewLogger(InfoLevel, &bytes.Buffer{})

	cfg := OTelConfig{
		Enabled:        true,
		Endpoint:       "localhost:4317",
		ServiceName:    "beacon-test",
		ServiceVersion: "1.0.0",
		Insecure:       true,
	}

	providers, err := InitOTel(context.Background(), cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, providers)

	propagator := otel.GetTextMapPropagator()
	assert.NotNil(t, propagator)

	_ = ShutdownOTel(context.Background(), providers, logger)
}

// TestShutdownOTel_NilProviders tests that ShutdownOTel handles nil providers gracefully
func TestShutdownOTel_NilProviders(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})

	err := ShutdownOTel(context.Background(), nil, logger)
	assert.NoError(t, err)
}

// TestShutdownOTel_NilMembers tests shutdown with nil providers inside the struct
func TestShutdownOTel_NilMembers(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})

	providers := &OTelProviders{
		TracerProvider: nil,
		MeterProvider:  nil,
	}

	err := ShutdownOTel(context.Background(), providers, logger)
	assert.NoError(t, err)
}

// TestShutdownOTel_WithTracerProvider tests shutdown with an actual provider
func TestShutdownOTel_WithTracerProvider(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(InfoLevel, buf)

	providers := &OTelProviders{
		TracerProvider: sdktrace.NewTracerProvider(),
	}

	err := ShutdownOTel(context.Background(), providers, logger)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Shutting down OpenTelemetry providers")
	assert.Contains(t, output, "Tracer provider shutdown complete")
}

// TestUpdateLoggerWithTraceContext_NoSpan tests behavior without an active span
func TestUpdateLoggerWithTraceContext_NoSpan(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})

	updated := UpdateLoggerWithTraceContext(context.Background(), logger)

	// Should return the same logger when no span is recording
	assert.Same(t, logger, updated)
}

// TestUpdateLoggerWithTraceContext_WithSpan tests that trace identifiers
// show up in log output while a span is recording
func TestUpdateLoggerWithTraceContext_WithSpan(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	tracer := tp.Tracer("beacon-test")

	ctx, span := tracer.Start(context.Background(), "snapshot")
	defer span.End()

	buf := &bytes.Buffer{}
	logger := NewLogger(InfoLevel, buf)

	updated := UpdateLoggerWithTraceContext(ctx, logger)
	require.NotNil(t, updated)
	assert.NotSame(t, logger, updated)

	updated.Info("ping")

	output := buf.String()
	assert.Contains(t, output, `"trace_id":"`+span.SpanContext().TraceID().String()+`"`)
	assert.Contains(t, output, `"span_id":"`+span.SpanContext().SpanID().String()+`"`)
}

// TestUpdateLoggerWithTraceContext_NonRecordingSpan tests with a sampled-out span
func TestUpdateLoggerWithTraceContext_NonRecordingSpan(t *testing.T) {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.NeverSample()),
	)
	tracer := tp.Tracer("beacon-test")

	ctx, span := tracer.Start(context.Background(), "snapshot")
	defer span.End()

	logger := NewLogger(InfoLevel, &bytes.Buffer{})
	updated := UpdateLoggerWithTraceContext(ctx, logger)

	// Non-recording span should not touch the logger
	assert.Same(t, logger, updated)
}

// TestUpdateLoggerWithTraceContext_NilLogger tests the nil logger edge case
func TestUpdateLoggerWithTraceContext_NilLogger(t *testing.T) {
	result := UpdateLoggerWithTraceContext(context.Background(), nil)
	assert.Nil(t, result)
}

// TestUpdateLoggerWithTraceContext_NestedSpans tests that nested spans share
// a trace but carry distinct span identifiers
func TestUpdateLoggerWithTraceContext_NestedSpans(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	tracer := tp.Tracer("beacon-test")

	ctx, outer := tracer.Start(context.Background(), "outer")
	defer outer.End()

	ctx, inner := tracer.Start(ctx, "inner")
	defer inner.End()

	assert.Equal(t, outer.SpanContext().TraceID(), inner.SpanContext().TraceID())
	assert.NotEqual(t, outer.SpanContext().SpanID(), inner.SpanContext().SpanID())

	buf := &bytes.Buffer{}
	logger := NewLogger(InfoLevel, buf)
	UpdateLoggerWithTraceContext(ctx, logger).Info("ping")

	assert.Contains(t, buf.String(), inner.SpanContext().SpanID().String())
}

// TestOTelConfig_ZeroValue tests zero value OTelConfig
func TestOTelConfig_ZeroValue(t *testing.T) {
	var cfg OTelConfig

	assert.False(t, cfg.Enabled)
	assert.Empty(t, cfg.Endpoint)
	assert.Empty(t, cfg.ServiceName)
	assert.Empty(t, cfg.ServiceVersion)
	assert.False(t, cfg.Insecure)
}

// BenchmarkUpdateLoggerWithTraceContext benchmarks trace field attachment
func BenchmarkUpdateLoggerWithTraceContext(b *testing.B) {
	tp := sdktrace.NewTracerProvider()
	tracer := tp.Tracer("beacon-test")

	ctx, span := tracer.Start(context.Background(), "bench")
	defer span.End()

	logger := NewLogger(InfoLevel, &bytes.Buffer{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = UpdateLoggerWithTraceContext(ctx, logger)
	}
}
