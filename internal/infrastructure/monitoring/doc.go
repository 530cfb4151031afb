/*
Package monitoring provides Prometheus metrics for the server and its fairings.

# Overview

Metrics are registered on an injectable prometheus.Registerer so that tests
and embedding applications can keep their own registries.

# Metrics

- http_requests_total{method,status}, http_request_duration_seconds{method}
- tracing_transactions_started_total
- tracing_transactions_finished_total{status}
- tracing_transactions_missing_total (placeholder substitutions)
- tracing_events_sent_total{kind}
- tracing_panics_total

# Usage

	registry := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(registry)

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
*/
package monitoring
