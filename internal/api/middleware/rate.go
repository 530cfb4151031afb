package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/ginsentry/internal/infrastructure/config"
)

// Rate limit scopes.
const (
	ScopeIP     = "ip"
	ScopeGlobal = "global"
)

// RateLimitConfig defines rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
	Scope             string
	// IdleTTL drops per-IP limiters not seen for this long. Zero keeps them.
	IdleTTL time.Duration
}

// Enabled reports whether the configuration limits anything.
func (c RateLimitConfig) Enabled() bool {
	return c.RequestsPerSecond > 0
}

// DefaultRateLimitConfig returns production-ready rate limit configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		Burst:             200,
		Scope:             ScopeIP,
		IdleTTL:           10 * time.Minute,
	}
}

// RateLimitConfigFrom reads "rate_limit_rps", "rate_limit_burst",
// "rate_limit_scope" and "rate_limit_idle_ttl". A zero rate disables
// limiting; a zero burst defaults to the rate.
func RateLimitConfigFrom(src config.Source) (RateLimitConfig, error) {
	cfg := DefaultRateLimitConfig()

	rps, err := intOr(src, "rate_limit_rps", 0)
	if err != nil {
		return cfg, err
	}
	burst, err := intOr(src, "rate_limit_burst", 0)
	if err != nil {
		return cfg, err
	}
	if rps < 0 || burst < 0 {
		return cfg, fmt.Errorf("rate limit must not be negative (rps=%d, burst=%d)", rps, burst)
	}
	if burst == 0 {
		burst = rps
	}

	scope, err := config.String(src, "rate_limit_scope")
	switch {
	case errors.Is(err, config.ErrMissing):
		scope = ScopeIP
	case err != nil:
		return cfg, err
	}
	if scope != ScopeIP && scope != ScopeGlobal {
		return cfg, fmt.Errorf("unknown rate limit scope %q", scope)
	}

	ttl, err := config.Duration(src, "rate_limit_idle_ttl")
	switch {
	case errors.Is(err, config.ErrMissing):
		ttl = cfg.IdleTTL
	case err != nil:
		return cfg, err
	case ttl < 0:
		return cfg, fmt.Errorf("rate limit idle ttl must not be negative (%s)", ttl)
	}

	cfg.RequestsPerSecond = rps
	cfg.IdleTTL = ttl
	cfg.Burst = burst
	cfg.Scope = scope
	return cfg, nil
}

// Limit returns the rate limiting middleware for cfg's scope, or nil when
// cfg is disabled.
func Limit(cfg RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled() {
		return nil
	}
	if cfg.Scope == ScopeGlobal {
		return GlobalRateLimit(cfg)
	}
	return RateLimit(cfg)
}

// RateLimit creates a per-IP rate limiting middleware.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		mu      sync.Mutex
		clients = make(map[string]*client)
		swept   = time.Now()
	)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		if cfg.IdleTTL > 0 && now.Sub(swept) > cfg.IdleTTL {
			for key, cl := range clients {
				if now.Sub(cl.lastSeen) > cfg.IdleTTL {
					delete(clients, key)
				}
			}
			swept = now
		}
		cl, exists := clients[ip]
		if !exists {
			cl = &client{
				limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
			}
			clients[ip] = cl
		}
		cl.lastSeen = now
		limiter := cl.limiter
		mu.Unlock()

		if !limiter.Allow() {
			tooManyRequests(c)
			return
		}

		c.Next()
	}
}

// GlobalRateLimit creates a global rate limiting middleware.
func GlobalRateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			tooManyRequests(c)
			return
		}
		c.Next()
	}
}

func tooManyRequests(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error": "rate limit exceeded",
	})
}

func intOr(src config.Source, key string, def int) (int, error) {
	v, err := config.Int(src, key)
	if errors.Is(err, config.ErrMissing) {
		return def, nil
	}
	return v, err
}
