// Package server hosts a gin engine with a fairing lifecycle.
//
// A fairing is a component that hooks into the server's lifecycle:
//   - OnIgnite: once, before serving, with the layered configuration
//   - OnRequest / OnResponse: around every request (or Around, to wrap it)
//   - OnShutdown: when the server is dropped
//
// Server Lifecycle:
//  1. New: create the engine with recovery and the fairing dispatcher
//  2. Attach: register fairings
//  3. Ignite: run OnIgnite in attach order, then enable request callbacks
//  4. Run: serve HTTP until the context is cancelled, then drain
//  5. Close: run OnShutdown in reverse attach order
//
// Every request gets its own arena of request-local storage. Fairings keep
// per-request state in a Local slot, which is filled by one callback and read
// back by another callback of the same request.
//
// Example Usage:
//
//	srv := server.New(cfg, logger)
//	_ = srv.Attach(tracing.New(logger))
//	if err := srv.Ignite(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	srv.Router().GET("/", handler)
//	err := srv.Run(ctx)
//	_ = srv.Close(context.Background())
package server
