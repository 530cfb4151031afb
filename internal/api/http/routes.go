package http

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GriffinCanCode/ginsentry/internal/api/middleware"
	"github.com/GriffinCanCode/ginsentry/internal/infrastructure/config"
	"github.com/GriffinCanCode/ginsentry/internal/infrastructure/monitoring"
)

// RouterConfig carries what SetupRoutes mounts besides the handlers.
type RouterConfig struct {
	Config   config.Source
	Metrics  *monitoring.Metrics
	Gatherer prometheus.Gatherer
}

// SetupRoutes mounts the middleware stack and the demo routes on router.
func SetupRoutes(router *gin.Engine, h *Handlers, rc RouterConfig) error {
	corsCfg, err := middleware.CORSConfigFrom(rc.Config)
	if err != nil {
		return fmt.Errorf("invalid CORS configuration: %w", err)
	}
	rateCfg, err := middleware.RateLimitConfigFrom(rc.Config)
	if err != nil {
		return fmt.Errorf("invalid rate limit configuration: %w", err)
	}

	// Middleware
	router.Use(middleware.RequestID())
	if rc.Metrics != nil {
		router.Use(monitoring.Middleware(rc.Metrics))
	}
	router.Use(middleware.CORS(corsCfg))
	if limit := middleware.Limit(rateCfg); limit != nil {
		router.Use(limit)
	}

	// Health check
	router.GET("/", h.Root)
	router.GET("/health", h.Health)

	// Metrics
	if rc.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(rc.Gatherer, promhttp.HandlerOpts{})))
	}

	// Performance
	perf := router.Group("/performance")
	{
		perf.GET("", h.Performance)
		perf.GET("/skip", h.PerformanceSkipped)
		perf.GET("/random", h.PerformanceRandom)
		perf.GET("/:id", h.PerformanceWithID)
	}

	// Errors
	router.GET("/panic", h.Panic)

	return nil
}
