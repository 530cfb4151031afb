package tracing

import (
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
)

const defaultFlushTimeout = 2 * time.Second

// Guard keeps a Sentry client bound to a hub. Closing the guard flushes
// buffered events and unbinds the client.
type Guard struct {
	hub     *sentry.Hub
	client  *sentry.Client
	timeout time.Duration
	closed  atomic.Bool
}

// newGuard binds client to hub and returns the guard owning it.
func newGuard(hub *sentry.Hub, client *sentry.Client, timeout time.Duration) *Guard {
	hub.BindClient(client)
	return &Guard{
		hub:     hub,
		client:  client,
		timeout: timeout,
	}
}

// Client returns the guarded client.
func (g *Guard) Client() *sentry.Client {
	return g.client
}

// Hub returns the hub the client is bound to.
func (g *Guard) Hub() *sentry.Hub {
	return g.hub
}

// Close flushes the client and unbinds it from the hub unless another client
// was bound since. It reports whether the flush completed in time. Only the
// first call has any effect.
func (g *Guard) Close() bool {
	if !g.closed.CompareAndSwap(false, true) {
		return true
	}

	flushed := g.client.Flush(g.timeout)
	if g.hub.Client() == g.client {
		g.hub.BindClient(nil)
	}
	return flushed
}

// Closed reports whether Close was called.
func (g *Guard) Closed() bool {
	return g.closed.Load()
}
