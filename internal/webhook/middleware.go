package webhook

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const keyContextKey = "webhookAPIKey"

// APIKeyAuthMiddleware validates the X-Webhook-API-Key header and sets the
// resolved key record on the gin context.
func APIKeyAuthMiddleware(repo *Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-Webhook-API-Key")
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			return
		}

		key, err := repo.GetByHash(c.Request.Context(), HashKey(apiKey))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}

		c.Set(keyContextKey, key)
		c.Next()
	}
}

// keyFromContext returns the API key record set by APIKeyAuthMiddleware.
func keyFromContext(c *gin.Context) (APIKey, bool) {
	v, ok := c.Get(keyContextKey)
	if !ok {
		return APIKey{}, false
	}
	key, ok := v.(APIKey)
	return key, ok
}
