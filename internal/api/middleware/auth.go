// server/internal/api/middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"smartbin-api-server/internal/auth"
	"smartbin-api-server/internal/models"
)

// Context keys set by Authenticate.
const (
	ContextUserID = "user_id"
	ContextRole   = "user_role"
	ContextName   = "user_name"
)

// TokenParser validates an access token.
type TokenParser interface {
	ParseAccessToken(tokenString string) (*auth.Claims, error)
}

// Authenticate validates the access token and puts the caller into the
// context. The token is read from the Authorization header, or from the
// "token" query parameter for websocket clients that cannot set headers.
func Authenticate(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		claims, err := tokens.ParseAccessToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(ContextUserID, claims.Subject)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextName, claims.Name)

		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header || token == "" {
			return "", false
		}
		return token, true
	}
	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}

// RequireRole lets the request through when the caller's role ranks at
// least as high as required. It must run after Authenticate.
func RequireRole(required models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleClaim, exists := c.Get(ContextRole)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		role, _ := roleClaim.(string)
		if err := auth.Evaluate(required, role); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have permission to access this resource"})
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated caller's id, or "" outside Authenticate.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
