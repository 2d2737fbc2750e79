package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/claims-intake/internal/common"
)

// Logging emits one structured line per request and stores a request-scoped
// logger carrying the request id.
func Logging(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		reqLogger := logger.With("request_id", RequestIDFromContext(c))
		c.Request = c.Request.WithContext(common.WithLogger(c.Request.Context(), reqLogger))

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", c.FullPath(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if id := c.GetString("itemId"); id != "" {
			attrs = append(attrs, "item_id", id)
		}
		switch {
		case status >= 500:
			reqLogger.Error("request complete", attrs...)
		case status >= 400:
			reqLogger.Warn("request complete", attrs...)
		default:
			reqLogger.Info("request complete", attrs...)
		}
	}
}
