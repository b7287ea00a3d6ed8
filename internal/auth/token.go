package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/your-org/memora/internal/models"
)

const caregiverKey = "caregiver"

// TokenStore resolves an API token to a caregiver account.
type TokenStore interface {
	CaregiverByToken(ctx context.Context, token string) (*models.Caregiver, error)
}

// TokenMiddleware validates the bearer token from the Authorization
// header and attaches the caregiver to the request context.
func TokenMiddleware(store TokenStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" || token == c.GetHeader("Authorization") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing bearer token",
			})
			return
		}

		caregiver, err := store.CaregiverByToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "token lookup failed",
			})
			return
		}
		if caregiver == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token",
			})
			return
		}

		c.Set(caregiverKey, caregiver)
		c.Next()
	}
}

// CaregiverFrom returns the authenticated caregiver set by
// TokenMiddleware.
func CaregiverFrom(c *gin.Context) *models.Caregiver {
	v, ok := c.Get(caregiverKey)
	if !ok {
		return nil
	}
	caregiver, _ := v.(*models.Caregiver)
	return caregiver
}
