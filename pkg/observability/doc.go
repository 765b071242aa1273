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
//	logger.Infof("server started on :%d", 8080)
//
// Context-aware logging:
//
//	logger.WithField("request_id", reqID).WithError(err).Error("request failed")
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/media", "200").Inc()
//	metrics.HTTPRequestDuration.WithLabelValues("GET", "/api/v1/media").Observe(0.123)
//
// Business metrics:
//
//	metrics.MediaTotal.Set(float64(count))
//	metrics.ActiveUsersTotal.Set(float64(activeUsers))
//
// # Health Checks
//
// Configure health checker:
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	status := checker.Check(ctx)
//	fmt.Printf("status: %s\n", status.Status)
//
// # OpenTelemetry
//
// Initialize tracing:
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:        true,
//		Endpoint:       "otel-collector:4317",
//		ServiceName:    "mediacms-engine",
//		ServiceVersion: "v1.0.0",
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/middleware: Rate limiting middleware
package observability
