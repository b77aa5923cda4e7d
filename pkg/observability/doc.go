// Package observability provides structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// # Overview
//
// This package centralizes observability infrastructure including JSON logging, metrics
// collection, health checks, and distributed tracing integration.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.Infof("Server started on port %d", 8080)
//
// Context-aware logging:
//
//	logger.WithField("request_id", reqID).WithError(err).Error("Request failed")
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.PageViewsTotal.Inc()
//	metrics.StreamClientsActive.Set(float64(clients))
//
// # Health Checks
//
// Configure health checker:
//
//	checker := observability.NewHealthChecker(version)
//	checker.AddCheck("storage", observability.DirWritableCheck(dataDir))
//	status := checker.Check(ctx)
//
// # OpenTelemetry
//
// Initialize tracing:
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:        true,
//		Endpoint:       "otel-collector:4317",
//		ServiceName:    "beacon",
//		ServiceVersion: "v1.0.0",
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/httputil: Request logging middleware
package observability
