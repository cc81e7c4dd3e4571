// Package observability provides structured logging, Prometheus metrics, health
// checks, OpenTelemetry tracing and graceful shutdown for the host.
//
// # Structured Logging
//
//	logger, err := observability.NewLogger("info", "json", os.Stdout)
//	logger.WithField("plugin", "chat").Info("Plugin transitioned")
//
// # Prometheus Metrics
//
// Metrics implements the recorder interfaces of pkg/middleware and observes
// registry transitions:
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	registry := plugins.NewRegistry(plugins.WithObserver(metrics.ObserveTransition))
//	signatures := middleware.NewSignatureMiddleware(verifier, log, metrics)
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient, version)
//	observability.RegisterHealthRoutes(mux, checker)
//
// # OpenTelemetry
//
//	tp, err := observability.InitTracing(ctx, cfg, log)
//	defer observability.ShutdownTracing(ctx, tp)
package observability
