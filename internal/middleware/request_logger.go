package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs every API request with its latency and status.
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		fields := logrus.Fields{
			"path":        c.Request.URL.Path,
			"method":      c.Request.Method,
			"status":      c.Writer.Status(),
			"latency_ms":  latency.Milliseconds(),
			"remote_addr": c.ClientIP(),
		}

		switch {
		case c.Writer.Status() >= 500:
			logger.WithFields(fields).Error("request failed")
		case c.Writer.Status() >= 400:
			logger.WithFields(fields).Warn("request rejected")
		default:
			logger.WithFields(fields).Debug("request completed")
		}
	}
}
