package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const slowRequestThreshold = time.Second

// LoggerMiddleware logs requests that failed or took longer than a second.
// Everything else is logged at debug level.
func LoggerMiddleware(zapLogger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("client_ip", c.ClientIP()),
		}

		switch {
		case status >= 500:
			zapLogger.Error("HTTP request failed", fields...)
		case status >= 400:
			zapLogger.Warn("HTTP request rejected", fields...)
		case duration > slowRequestThreshold:
			zapLogger.Warn("Slow HTTP request", fields...)
		default:
			zapLogger.Debug("HTTP request", fields...)
		}
	}
}
