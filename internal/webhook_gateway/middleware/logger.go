package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/metrics"
)

// Logger middleware logs HTTP request details including method, path, status,
// latency, client IP, and correlation ID if present. It also feeds the
// request counters and latency histogram.
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		correlationID := GetCorrelationID(c)

		requestLogger := logger
		if correlationID != "" {
			requestLogger = logger.With("correlation_id", correlationID)
		}

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		clientIP := c.ClientIP()
		method := c.Request.Method

		// Route template, not the raw path, keeps metric cardinality bounded
		metricPath := c.FullPath()
		if metricPath == "" {
			metricPath = "unmatched"
		}
		metrics.RecordHTTPRequest(method, metricPath, strconv.Itoa(statusCode), latency.Seconds())

		if raw != "" {
			path = path + "?" + raw
		}

		requestLogger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", statusCode,
			"latency", latency,
			"client_ip", clientIP,
			"user_agent", c.Request.UserAgent(),
		)
	}
}
