/*
Package tracing reports errors and request performance to Sentry.

# Overview

The package provides a server fairing that reads its connection settings
from the layered configuration at ignition, initializes a Sentry client and
keeps it alive for the life of the server. While serving, every request is
wrapped in a transaction named "<METHOD> <PATH>" that is finished with a
status derived from the response code.

# Configuration

	[release]
	sentry_dsn = "https://key@o0.ingest.sentry.io/0"
	sentry_traces_sample_rate = 0.2   # optional, default 0
	sentry_release = "ginsentry@1.2.0" # optional

An empty or missing sentry_dsn disables the fairing. With a zero sample rate
and no custom sampler, errors are still reported but no transactions are
started. The Sentry environment is derived from the profile: "debug" becomes
"development", "release" becomes "production" and any other profile name is
used as is.

# Usage

	fairing := tracing.New(logger,
	    tracing.WithMetrics(metrics),
	    tracing.WithSampler(func(name string) float64 {
	        if name == "GET /health" {
	            return 0
	        }
	        return 0.5
	    }),
	)
	_ = srv.Attach(fairing)

Outside the server, Middleware returns the same behavior as a plain gin
handler.

# Request Scope

Each request gets its own clone of the Sentry hub, carried on the request
context. Handlers reach it with sentry.GetHubFromContext to add breadcrumbs
or capture messages. Handler panics and errors attached with c.Error are
reported through that hub. A panic also finishes the request transaction
with an internal error status before the panic is passed on.
*/
package tracing
