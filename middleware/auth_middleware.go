// middleware/auth_middleware.go
package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/HSouheill/gym_backend/models"
)

// RequireRole lets through only tokens issued for one of the allowed roles.
// It must run after JWTMiddleware.
func RequireRole(allowed ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := GetClaims(c)
			if claims == nil {
				return c.JSON(http.StatusUnauthorized, models.Response{
					Status:  http.StatusUnauthorized,
					Message: "Unauthorized",
				})
			}

			for _, role := range allowed {
				if claims.Role == role {
					return next(c)
				}
			}

			c.Logger().Warnf("Access denied for role %s on %s", claims.Role, c.Request().URL.Path)
			return c.JSON(http.StatusForbidden, models.Response{
				Status:  http.StatusForbidden,
				Message: "Access denied for your role",
			})
		}
	}
}
