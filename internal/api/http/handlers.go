package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ginsentry/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ginsentry/internal/infrastructure/tracing"
)

// DefaultPanicMessage is raised by Panic when no msg query parameter is given.
const DefaultPanicMessage = "You asked for it!"

// Handlers contains the demo HTTP handlers
type Handlers struct {
	logger  *logging.Logger
	fairing *tracing.Fairing
	sleep   func(ctx context.Context, d time.Duration)
}

// NewHandlers creates a new handler set. fairing may be nil.
func NewHandlers(logger *logging.Logger, fairing *tracing.Fairing) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handlers{
		logger:  logger.Named("handlers"),
		fairing: fairing,
		sleep:   sleepContext,
	}
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "ginsentry demo",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	sentryStatus := gin.H{"enabled": false, "transactions": false}
	if h.fairing != nil {
		sentryStatus = gin.H{
			"enabled":      h.fairing.Enabled(),
			"transactions": h.fairing.TransactionsEnabled(),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"sentry": sentryStatus,
	})
}

// Performance waits 500ms. With param1 and param2 query parameters it
// answers like PerformanceWithParams.
func (h *Handlers) Performance(c *gin.Context) {
	if _, ok := c.GetQuery("param1"); ok {
		h.PerformanceWithParams(c)
		return
	}

	d := 500 * time.Millisecond
	h.wait(c, d)
	c.String(http.StatusOK, "Waited %s", d)
}

// PerformanceWithID waits as many seconds as the id.
func (h *Handlers) PerformanceWithID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 16)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "id must be an integer between 0 and 65535"})
		return
	}

	d := time.Duration(id) * time.Second
	h.wait(c, d)
	c.String(http.StatusOK, "Waited %s for id %d", d, id)
}

// PerformanceWithParams waits 250ms and echoes param1 and the numeric param2.
func (h *Handlers) PerformanceWithParams(c *gin.Context) {
	param1 := c.Query("param1")
	param2, err := strconv.ParseUint(c.Query("param2"), 10, 32)
	if err != nil {
		_ = c.Error(fmt.Errorf("invalid param2 %q: %w", c.Query("param2"), err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "param2 must be a non-negative integer"})
		return
	}

	d := 250 * time.Millisecond
	h.wait(c, d)
	c.String(http.StatusOK, "Waited %s for param %s - %d", d, param1, param2)
}

// PerformanceSkipped waits 100ms. The demo sampler drops its transaction.
func (h *Handlers) PerformanceSkipped(c *gin.Context) {
	d := 100 * time.Millisecond
	h.wait(c, d)
	c.String(http.StatusOK, "Waited %s\nTransaction will be dropped", d)
}

// PerformanceRandom waits 100ms. The demo sampler keeps half of its
// transactions.
func (h *Handlers) PerformanceRandom(c *gin.Context) {
	d := 100 * time.Millisecond
	h.wait(c, d)
	c.String(http.StatusOK, "Waited %s\nTransaction MIGHT be dropped", d)
}

// Panic panics with the msg query parameter.
func (h *Handlers) Panic(c *gin.Context) {
	msg := c.DefaultQuery("msg", DefaultPanicMessage)
	h.logger.Warn("Panicking on request", zap.String("msg", msg))
	panic(msg)
}

// wait sleeps for d, inside a child span when the request is traced.
func (h *Handlers) wait(c *gin.Context, d time.Duration) {
	ctx := c.Request.Context()
	if sentry.TransactionFromContext(ctx) == nil {
		h.sleep(ctx, d)
		return
	}

	span := sentry.StartSpan(ctx, "sleep")
	span.Description = fmt.Sprintf("wait %s", d)
	defer span.Finish()

	h.sleep(span.Context(), d)
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
