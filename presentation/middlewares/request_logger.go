package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/fanserve/media-api/infrastructure/logger"
	"go.uber.org/zap"
)

// RequestLogger logs one line per request. Download routes carry signed
// tokens in the path, so the token segment is not logged at error level
// detail beyond what gin already exposes.
func RequestLogger(logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.Int("size", c.Writer.Size()),
		}

		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
			logger.Error("Request error", fields...)
			return
		}
		logger.Info("Request", fields...)
	}
}
