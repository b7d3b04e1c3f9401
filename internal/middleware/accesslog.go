package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"pixelpaws-server/internal/metrics"
)

// AccessLog writes one log line per request and records request metrics.
// Paths are the matched route templates so device ids do not explode label
// cardinality.
func AccessLog(logger *slog.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)

		if m != nil && path != "/metrics" {
			m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDurationSeconds.WithLabelValues(c.Request.Method, path).Observe(elapsed.Seconds())
		}

		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelError
		}
		logger.LogAttrs(c.Request.Context(), level, "http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("route", path),
			slog.Int("status", status),
			slog.Duration("latency", elapsed),
			slog.String("request_id", RequestIDFromContext(c)),
		)
	}
}
