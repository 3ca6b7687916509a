// auth_middleware.go
package middleware

import (
	"net/http"
	"strings"

	"storefront-checkout/internal/dto"
	"storefront-checkout/internal/service"

	"github.com/gin-gonic/gin"
)

const authUserKey = "authUser"

// Middleware que valida el token y guarda la info del usuario en el contexto
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "missing authorization header"})
			return
		}

		user, err := authService.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "invalid or expired token"})
			return
		}

		setUser(c, user)
		c.Next()
	}
}

// OptionalAuth adjunta el usuario si el token es válido; sin token sigue como invitado.
func OptionalAuth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if user, err := authService.ValidateToken(token); err == nil {
				setUser(c, user)
			}
		}
		c.Next()
	}
}

// CurrentUser devuelve el usuario autenticado o nil.
func CurrentUser(c *gin.Context) *service.AuthUser {
	v, ok := c.Get(authUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*service.AuthUser)
	return user
}

func setUser(c *gin.Context, user *service.AuthUser) {
	c.Set(authUserKey, user)
	c.Set("userID", user.ID)
	c.Set("userEmail", user.Email)
	c.Set("userRole", user.Role)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
