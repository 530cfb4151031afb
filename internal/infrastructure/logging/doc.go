// Package logging provides structured logging using uber/zap.
//
// Two modes are available:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components receive a *Logger and scope it with Named, so fairings and the
// host server log under their own names ("server", "sentry").
//
// Example Usage:
//
//	logger, err := logging.New(logging.Config{Level: "info"})
//	logger.Info("Server starting", zap.String("port", "8000"))
//	logger.Named("sentry").Error("Sentry did not initialize", zap.Error(err))
package logging
