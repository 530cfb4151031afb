package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/GriffinCanCode/ginsentry/internal/infrastructure/tracing"
)

// requestIDKey is the gin context key holding the request id.
const requestIDKey = "request_id"

// maxRequestIDLen bounds ids accepted from clients.
const maxRequestIDLen = 128

// RequestID ensures every request carries an X-Request-ID header. A valid
// inbound id is kept; otherwise a UUID is generated. The id is echoed on the
// response and stored on the gin context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(tracing.RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
			c.Request.Header.Set(tracing.RequestIDHeader, id)
		}

		c.Set(requestIDKey, id)
		c.Header(tracing.RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the id set by RequestID, if any.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
