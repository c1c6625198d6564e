package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ContextForecasterID = "forecasterID"
	ContextWallet       = "wallet"
)

// Middleware requires a valid Bearer token and stores the caller's identity
// on the gin context.
func Middleware(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    http.StatusUnauthorized,
				"message": "missing bearer token",
			})
			return
		}
		claims, err := svc.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    http.StatusUnauthorized,
				"message": "invalid token",
			})
			return
		}
		c.Set(ContextForecasterID, claims.ForecasterID)
		c.Set(ContextWallet, claims.Wallet)
		c.Next()
	}
}

// ForecasterID returns the authenticated forecaster id, if any.
func ForecasterID(c *gin.Context) (string, bool) {
	v, ok := c.Get(ContextForecasterID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
