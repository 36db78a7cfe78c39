package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/logger"
)

// RequestLog emits one structured line per request. Bodies are never logged;
// inbound payloads carry phone numbers and message content.
func RequestLog(log *logger.Logger) gin.HandlerFunc {
	reqLog := log.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if len(c.Errors) > 0 {
			reqLog.Warn("request failed", append(fields, "errors", c.Errors.String())...)
			return
		}
		reqLog.Info("request", fields...)
	}
}
