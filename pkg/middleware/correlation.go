package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sabuhakaya/Carties/pkg/logger"
)

// CorrelationIDHeader travels on HTTP requests and responses, and on AMQP messages as CorrelationId.
const CorrelationIDHeader = "X-Correlation-ID"

// CorrelationIDKey is the gin context key.
const CorrelationIDKey = "correlation_id"

// CorrelationID tags every request with an id taken from X-Correlation-ID or
// freshly generated. The id is echoed back, kept on the gin context and
// attached to the request context, where store calls and the outbound
// publisher pick it up.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(CorrelationIDKey, id)
		c.Header(CorrelationIDHeader, id)
		c.Request = c.Request.WithContext(logger.ContextWithCorrelationID(c.Request.Context(), id))
		c.Next()
	}
}

// GetCorrelationID returns the request's correlation id. Handlers mounted
// without the middleware fall back to the request context, then to a new id
// so outgoing events are never untagged.
func GetCorrelationID(c *gin.Context) string {
	if id := c.GetString(CorrelationIDKey); id != "" {
		return id
	}
	if id := logger.CorrelationID(c.Request.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}
