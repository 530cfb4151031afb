// Package config provides profile-aware, layered configuration for the server.
//
// Configuration is assembled from successive layers, each overriding the
// previous one key by key:
//   - Defaults: built-in values (address, port, shutdown timeout, ...)
//   - [default] table of the configuration file
//   - [<profile>] table of the configuration file (debug, release, staging, ...)
//   - [global] table of the configuration file
//   - APP_* environment variables (APP_SENTRY_DSN sets sentry_dsn)
//
// Configuration files may be TOML or YAML, selected by extension.
//
// Bootstrap settings needed before the layers can be read (profile, file
// path, log level) come from the environment through envconfig.
//
// Example App.toml:
//
//	[debug]
//	sentry_dsn = ""  # Disabled
//
//	[release]
//	sentry_dsn = "https://057006d7dfe5fff0fbed461cfca5f757@sentry.io/1111111"
//	sentry_traces_sample_rate = 0.2
//
// Example Usage:
//
//	settings, err := config.LoadSettings()
//	cfg, err := config.Load(settings)
//	dsn, err := config.String(cfg, "sentry_dsn")
package config
