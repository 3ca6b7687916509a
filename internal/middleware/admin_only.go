// admin_only.go
package middleware

import (
	"net/http"

	"storefront-checkout/internal/dto"

	"github.com/gin-gonic/gin"
)

// AdminOnly va siempre después de AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentUser(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{Message: "admin privileges required"})
			return
		}
		c.Next()
	}
}
