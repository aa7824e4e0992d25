// Package observability provides structured logging, Prometheus metrics,
// health probes and OpenTelemetry tracing for the console.
//
// # Structured Logging
//
// Logger is a thin wrapper over logrus emitting JSON:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("tenant_id", tenantID).Info("session established")
//
// Request handlers should use FromContext, which picks up the request,
// user and tenant ids placed on the context by the middleware chain.
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.RecordGuard("redirect_login")
//
// All Record helpers are safe on a nil *Metrics.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient, upstreamProbe, version)
//	observability.RegisterHealthRoutes(mux, checker)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, cfg, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
package observability
