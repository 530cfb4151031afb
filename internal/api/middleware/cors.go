package middleware

import (
	"errors"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/ginsentry/internal/infrastructure/config"
	"github.com/GriffinCanCode/ginsentry/internal/infrastructure/tracing"
)

// CORSConfig defines CORS configuration options.
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig returns production-ready CORS configuration.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"}, // Configure specific origins in production
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Content-Length",
			"Accept-Encoding",
			"Authorization",
			"Accept",
			"Origin",
			"Cache-Control",
			"X-Requested-With",
			tracing.RequestIDHeader,
			"sentry-trace",
			"baggage",
		},
		ExposeHeaders:    []string{tracing.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// CORSConfigFrom reads "cors_origins" and "cors_allow_credentials" on top
// of DefaultCORSConfig.
func CORSConfigFrom(src config.Source) (CORSConfig, error) {
	cfg := DefaultCORSConfig()

	origins, err := config.Strings(src, "cors_origins")
	switch {
	case errors.Is(err, config.ErrMissing):
	case err != nil:
		return cfg, err
	case len(origins) > 0:
		cfg.AllowOrigins = origins
	}

	creds, err := config.Bool(src, "cors_allow_credentials")
	switch {
	case errors.Is(err, config.ErrMissing):
	case err != nil:
		return cfg, err
	default:
		cfg.AllowCredentials = creds
	}
	return cfg, nil
}

// CORS creates a CORS middleware with the provided configuration.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     cfg.AllowMethods,
		AllowHeaders:     cfg.AllowHeaders,
		ExposeHeaders:    cfg.ExposeHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})
}
