package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/falclient/logger"
)

// RequestLogger logs every request with method, path, status and duration.
// Health and version paths are skipped.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isProbeEndpoint(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		fields := logger.Fields(
			logger.FieldMethod, c.Request.Method,
			"path", c.Request.URL.Path,
			logger.FieldStatus, status,
			logger.FieldDuration, latency.Milliseconds(),
			logger.FieldClientIP, c.ClientIP(),
		)
		if id, ok := c.Get(ContextKeyRequestID); ok {
			fields["request_id"] = id
		}
		if target := c.GetString(ContextKeyTargetURL); target != "" {
			fields[logger.FieldTarget] = target
		}
		if latency > 500*time.Millisecond {
			fields["slow"] = true
		}
		logByStatus(log, fields, status)
	}
}

// ContextKeyTargetURL is set by handlers that forward requests so the
// request log shows where they went.
const ContextKeyTargetURL = "target_url"

func isProbeEndpoint(path string) bool {
	switch path {
	case "/health", "/version":
		return true
	}
	return false
}

// logByStatus logs request fields at the appropriate level based on HTTP status code.
func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("request completed", fields)
	case status >= 400:
		log.Warn("request completed", fields)
	default:
		log.Debug("request completed", fields)
	}
}
