package server

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/ginsentry/internal/infrastructure/config"
)

// Fairing is a component attached to the server's lifecycle. OnIgnite runs
// once, before any request is served, with the server's configuration.
// Returning an error aborts ignition.
type Fairing interface {
	Name() string
	OnIgnite(ctx context.Context, src config.Source) error
}

// RequestFairing is implemented by fairings that observe inbound requests
// before the route handler runs.
type RequestFairing interface {
	OnRequest(c *gin.Context)
}

// ResponseFairing is implemented by fairings that observe responses after
// the route handler returned.
type ResponseFairing interface {
	OnResponse(c *gin.Context)
}

// AroundFairing is implemented by fairings that need to wrap the rest of the
// request pipeline themselves, e.g. to recover panics. next runs the
// remaining fairings and the route handler. When a fairing implements
// AroundFairing its OnRequest and OnResponse are not called by the server.
type AroundFairing interface {
	Around(c *gin.Context, next func())
}

// ShutdownFairing is implemented by fairings holding resources that must be
// released when the server is dropped.
type ShutdownFairing interface {
	OnShutdown(ctx context.Context) error
}

// around is the per-request step a fairing contributes to the chain.
type around func(c *gin.Context, next func())

// aroundFor adapts a fairing to the request chain. Fairings with no request
// callbacks contribute nothing.
func aroundFor(f Fairing) around {
	if a, ok := f.(AroundFairing); ok {
		return a.Around
	}

	req, hasReq := f.(RequestFairing)
	resp, hasResp := f.(ResponseFairing)
	if !hasReq && !hasResp {
		return nil
	}

	return func(c *gin.Context, next func()) {
		if hasReq {
			req.OnRequest(c)
		}
		next()
		if hasResp {
			resp.OnResponse(c)
		}
	}
}

// chain runs a fixed list of around steps, ending with the gin handler chain.
type chain []around

func (ch chain) serve(c *gin.Context) {
	ch.step(c, 0)
}

func (ch chain) step(c *gin.Context, i int) {
	if i == len(ch) {
		c.Next()
		return
	}
	ch[i](c, func() { ch.step(c, i+1) })
}
