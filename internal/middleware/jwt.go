package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/anton-kx/timetable-api/internal/service"
	appErrors "github.com/anton-kx/timetable-api/pkg/errors"
	"github.com/anton-kx/timetable-api/pkg/response"
)

// ContextAdminKey is the gin context key storing admin JWT claims.
const ContextAdminKey = "currentAdmin"

// AdminJWT protects administrative routes by requiring a valid admin token.
func AdminJWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextAdminKey, claims)
		c.Next()
	}
}
