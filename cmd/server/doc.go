// Package main is the entry point for the ginsentry demo server.
//
// The server mounts a handful of demo routes behind the Sentry tracing
// fairing: slow endpoints that produce performance transactions, and a
// route that panics to produce an error event.
//
// Configuration:
//   - .env file (loaded first, never overrides the environment)
//   - APP_PROFILE, APP_CONFIG, LOG_LEVEL, LOG_DEV bootstrap variables
//   - Profile tables of the configuration file (App.toml by default)
//   - APP_* environment variables (APP_SENTRY_DSN, APP_PORT, ...)
//   - CLI flags (override all of the above)
//
// Usage:
//
//	# Debug profile
//	./server
//
//	# Release profile with Sentry from the environment
//	APP_SENTRY_DSN=https://key@o0.ingest.sentry.io/0 ./server --profile release
//
//	# Development mode (colored logs, debug level)
//	./server --dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
