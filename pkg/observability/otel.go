package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// OTelConfig configures the optional OTLP export pipeline.
type OTelConfig struct {
	Enabled        bool
	Endpoint       string
	ServiceName    string
	ServiceVersion string
	Insecure       bool
}

// OTelProviders carries the installed providers so shutdown can flush them.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *metric.MeterProvider
}

// InitOTel installs global OTLP gRPC trace and meter providers. When
// cfg.Enabled is false it returns (nil, nil) and the process runs without
// tracing. The exporters dial lazily, so a missing collector surfaces at
// export time, not here.
func InitOTel(ctx context.Context, cfg OTelConfig, logger *Logger) (*OTelProviders, error) {
	if !cfg.Enabled {
		logger.Info("OpenTelemetry is disabled")
		return nil, nil
	}

	logger.Infof("Initializing OpenTelemetry with endpoint: %s", cfg.Endpoint)

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		),
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithOS(),
		resource.WithContainer(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var dialOpts []grpc.DialOption
	if cfg.Insecure {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	tp, err := newTraceProvider(ctx, cfg.Endpoint, res, dialOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer provider: %w", err)
	}

	mp, err := newMeterProvider(ctx, cfg.Endpoint, res, dialOpts)
	if err != nil {
		// Roll back the half-built pipeline before reporting.
		if shutdownErr := tp.Shutdown(ctx); shutdownErr != nil {
			logger.WithError(shutdownErr).Error("Failed to shutdown tracer provider after meter provider error")
		}
		return nil, fmt.Errorf("failed to initialize meter provider: %w", err)
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("OpenTelemetry initialized successfully")

	return &OTelProviders{TracerProvider: tp, MeterProvider: mp}, nil
}

// newTraceProvider builds a batching span pipeline. Sampling is parent
// based so inbound traceparent decisions propagate through otelhttp.
func newTraceProvider(ctx context.Context, endpoint string, res *resource.Resource, dialOpts []grpc.DialOption) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(dialOpts...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(5*time.Second),
			sdktrace.WithMaxExportBatchSize(512),
		),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	), nil
}

// newMeterProvider builds a periodic-push metric pipeline.
func newMeterProvider(ctx context.Context, endpoint string, res *resource.Resource, dialOpts []grpc.DialOption) (*metric.MeterProvider, error) {
	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithDialOption(dialOpts...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	return metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(exporter,
			metric.WithInterval(10*time.Second),
		)),
	), nil
}

// ShutdownOTel flushes and stops both providers. Nil providers (tracing
// disabled) are a no-op.
func ShutdownOTel(ctx context.Context, providers *OTelProviders, logger *Logger) error {
	if providers == nil {
		return nil
	}

	logger.Info("Shutting down OpenTelemetry providers")

	var tracerErr, meterErr error

	if providers.TracerProvider != nil {
		if tracerErr = providers.TracerProvider.Shutdown(ctx); tracerErr != nil {
			logger.WithError(tracerErr).Error("Failed to shutdown tracer provider")
			tracerErr = fmt.Errorf("tracer provider shutdown: %w", tracerErr)
		} else {
			logger.Info("Tracer provider shutdown complete")
		}
	}

	if providers.MeterProvider != nil {
		if meterErr = providers.MeterProvider.Shutdown(ctx); meterErr != nil {
			logger.WithError(meterErr).Error("Failed to shutdown meter provider")
			meterErr = fmt.Errorf("meter provider shutdown: %w", meterErr)
		} else {
			logger.Info("Meter provider shutdown complete")
		}
	}

	if err := errors.Join(tracerErr, meterErr); err != nil {
		return err
	}

	logger.Info("OpenTelemetry shutdown complete")
	return nil
}

// UpdateLoggerWithTraceContext returns the logger with trace_id and
// span_id fields attached when ctx carries a recording span; otherwise
// the logger comes back untouched.
func UpdateLoggerWithTraceContext(ctx context.Context, logger *Logger) *Logger {
	if logger == nil {
		return nil
	}

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return logger
	}

	spanCtx := span.SpanContext()
	return logger.WithFields(map[string]interface{}{
		"trace_id": spanCtx.TraceID().String(),
		"span_id":  spanCtx.SpanID().String(),
	})
}
