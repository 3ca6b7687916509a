package middleware

import (
	"fmt"
	"time"

	"storefront-checkout/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestID asigna un id por request y lo deja en el logger del context.
func RequestID(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)

		ctx := log.WithField(c.Request.Context(), "request_id", id)
		c.Request = c.Request.WithContext(ctx)
		c.Set("requestID", id)

		start := time.Now()
		c.Next()

		log.Debug(ctx, fmt.Sprintf("%s %s -> %d (%s)", c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start)))
	}
}
