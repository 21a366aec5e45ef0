package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pmiaudio/audiobook-api/internal/logging"
)

// Logger middleware logs request details through the structured logger
func Logger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.LogHTTPRequest(
			c.Request.Method,
			path,
			c.ClientIP(),
			c.Writer.Status(),
			time.Since(start),
		)
	}
}
