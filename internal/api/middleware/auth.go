package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"roastbot-api/internal/logging"
	"roastbot-api/internal/models"
	"roastbot-api/internal/services/auth"
	"roastbot-api/internal/services/store"
)

const ctxCurrentUser = "current_user"

// RequireAuth validates the bearer token, checks the user still exists, and
// stores the user on the request context.
func RequireAuth(authService *auth.Service, st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			unauthorized(c)
			return
		}

		userID, err := authService.ParseToken(token)
		if err != nil {
			unauthorized(c)
			return
		}

		user, err := st.GetUserByID(userID)
		if err != nil {
			unauthorized(c)
			return
		}

		logging.SetUserID(c, user.ID)
		c.Set(ctxCurrentUser, user)
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
}

// CurrentUser returns the user placed on the context by RequireAuth.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(ctxCurrentUser); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// RequireDeviceKey guards device endpoints with the shared camera API key.
func RequireDeviceKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-API-Key") != key {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid API Key"})
			return
		}
		c.Next()
	}
}
