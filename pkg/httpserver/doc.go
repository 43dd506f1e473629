// Package httpserver runs an HTTP server with graceful shutdown.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server failed", logger.Error(err))
//	}
//
// Run returns once ctx is cancelled or SIGINT/SIGTERM arrives and in-flight
// requests have drained, bounded by the shutdown timeout. Handlers keep a
// live request context during the drain.
//
// HealthCheckHandler provides liveness and readiness probes.
package httpserver
