package middleware

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/GasperHribersek/SOA-project-fintech/auth"

	"github.com/gin-gonic/gin"
)

// IdentityKey is the gin context key the verified identity is stored under.
const IdentityKey = "identity"

// AuthRequired gates a route group behind bearer-token verification. The
// verifier strategy (local secret or auth-service delegation) is chosen at
// startup.
func AuthRequired(verifier auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No token provided"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		identity, err := verifier.Verify(c.Request.Context(), tokenString)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":   "Token expired",
					"details": "Your session has expired. Please login again.",
				})
			case errors.Is(err, auth.ErrTokenInvalid):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":   "Invalid token",
					"details": err.Error(),
				})
			default:
				log.Printf("AuthRequired: token verification failed: %v", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   "Token verification failed",
					"details": err.Error(),
				})
			}
			return
		}

		c.Set(IdentityKey, identity)
		c.Next()
	}
}

// IdentityFrom returns the verified identity attached by AuthRequired, if any.
func IdentityFrom(c *gin.Context) (*auth.Identity, bool) {
	value, ok := c.Get(IdentityKey)
	if !ok {
		return nil, false
	}
	identity, ok := value.(*auth.Identity)
	return identity, ok
}
