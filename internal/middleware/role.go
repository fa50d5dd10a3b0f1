package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"waste-fleet-monitor/pkg/utils"
)

func RoleMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(RoleKey)
		if !exists {
			utils.ErrorResponse(c, http.StatusForbidden, "Role not found in context")
			c.Abort()
			return
		}

		userRole, _ := role.(string)
		for _, allowedRole := range allowedRoles {
			if userRole == allowedRole {
				c.Next()
				return
			}
		}

		utils.ErrorResponse(c, http.StatusForbidden, "Insufficient permissions")
		c.Abort()
	}
}

// OperatorOnly admits company staff managing routes and devices.
func OperatorOnly() gin.HandlerFunc {
	return RoleMiddleware("admin", "operator")
}

func AdminOnly() gin.HandlerFunc {
	return RoleMiddleware("admin")
}

func TrashbinOnly() gin.HandlerFunc {
	return RoleMiddleware("trashbin")
}
