package api

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/memora/internal/auth"
	"github.com/your-org/memora/internal/observability"
)

// LoggingMiddleware logs each request and feeds the request histogram.
// The metric is labeled with the route template, not the raw path, so
// per-patient URLs don't explode the cardinality. Authenticated
// requests carry the caregiver id in the log line.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", duration.String(),
			"ip", c.ClientIP(),
		}
		if caregiver := auth.CaregiverFrom(c); caregiver != nil {
			fields = append(fields, "caregiver", caregiver.ID)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}
		slog.Info("request", fields...)

		observability.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(status),
		).Observe(duration.Seconds())
	}
}
