package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arklim/social-platform-authkit/internal/infra/logger"
)

const (
	requestIDHeader = "X-Request-ID"

	// Inbound ids longer than this are replaced; they are attacker-supplied
	// text that ends up in every log line.
	maxInboundIDLength = 64
)

// RequestID tags each request with a correlation id for log stitching. A sane
// inbound id is honored so callers can trace across services; anything else
// gets a freshly minted one. The id is echoed on the response either way.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > maxInboundIDLength {
			id = uuid.NewString()
		}

		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey{}, id)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(requestIDHeader, id)

		c.Next()
	}
}
