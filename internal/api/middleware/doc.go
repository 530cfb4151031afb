// Package middleware provides the HTTP middleware mounted in front of the
// traced routes.
//
// Middleware stack includes:
//   - RequestID: X-Request-ID propagation, picked up as a transaction tag
//   - CORS: Cross-origin resource sharing with configurable origins
//   - RateLimit: Per-IP or global token bucket rate limiting
//
// Rejections happen inside the traced pipeline, so a rate limited request
// is still finished with a resource exhausted status.
//
// Configuration keys:
//   - cors_origins: Permitted origin domains (list, or comma separated)
//   - rate_limit_rps: Requests per second, 0 disables limiting
//   - rate_limit_burst: Bucket size, defaults to rate_limit_rps
//   - rate_limit_scope: "ip" or "global"
//
// Example Usage:
//
//	router.Use(middleware.RequestID())
//	router.Use(middleware.CORS(corsCfg))
//	if limit := middleware.Limit(rateCfg); limit != nil {
//	    router.Use(limit)
//	}
package middleware
