package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-reservation/utils"
)

// RequireRoles lets the request through only when the authenticated role is one of roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		role := c.GetString("role")
		if role == "" {
			utils.RespondErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
			c.Abort()
			return
		}
		if !allowed[role] {
			utils.RespondErrorCode(c, http.StatusForbidden, "FORBIDDEN", "role "+role+" may not access this resource")
			c.Abort()
			return
		}
		c.Next()
	}
}
