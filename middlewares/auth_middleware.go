package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-reservation/utils"
)

// AuthMiddleware accepts a bearer token signed with the configured secret and
// stores its user id and role on the context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "authorization header missing")
			c.Abort()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token format")
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			utils.RespondErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
			c.Abort()
			return
		}
		if claims.UserID == 0 {
			utils.RespondErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user id in token")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Next()
	}
}
