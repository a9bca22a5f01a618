// Package middleware provides shared gin middleware for the HTTP layer.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"painel_leads_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// RequestTimer logs every request with its latency through the structured logger.
func RequestTimer(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := float64(time.Since(start).Microseconds()) / 1000.0
		log.HTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), latency, c.ClientIP())
	}
}

// ServiceKeyAuth protects admin/internal routes with a static service key.
// Callers must send the configured key in the X-Service-Key header. When no
// key is configured the routes are closed entirely.
func ServiceKeyAuth(internalAPIKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if internalAPIKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "internal API key not configured"})
			return
		}

		provided := c.GetHeader("X-Service-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(internalAPIKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid service key"})
			return
		}

		c.Next()
	}
}
