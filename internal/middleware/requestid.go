package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader       = "X-Request-ID"
	requestIDContextKey   = "requestID"
	maxClientRequestIDLen = 128
)

func RequestIDFromContext(c *gin.Context) string {
	id, ok := c.Get(requestIDContextKey)
	if !ok {
		return ""
	}
	value, _ := id.(string)
	return value
}

// RequestID reuses a client supplied X-Request-ID when it is short enough and
// otherwise generates one. The id is echoed on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxClientRequestIDLen {
			id = uuid.NewString()
		}
		c.Set(requestIDContextKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
