// middleware/jwt_middleware.go
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/HSouheill/gym_backend/models"
	"github.com/HSouheill/gym_backend/services"
)

const (
	// SessionCookieName holds the access token for browser sessions
	SessionCookieName = "session_token"

	claimsContextKey = "claims"
)

// Authenticator verifies a raw access token
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*services.Claims, error)
}

// TokenFromRequest returns the bearer token, or the session cookie when no
// Authorization header is present.
func TokenFromRequest(c echo.Context) string {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// JWTMiddleware rejects requests without a valid, unrevoked access token and
// stores the claims in the context. Rejections are logged at debug only: a
// missing session is the normal state of a logged-out browser.
func JWTMiddleware(auth Authenticator, logger *logrus.Logger) echo.MiddlewareFunc {
	log := logger.WithField("component", "jwt")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := TokenFromRequest(c)
			if raw == "" {
				log.WithField("path", c.Request().URL.Path).Debug("No token provided")
				return unauthorized(c)
			}

			claims, err := auth.Authenticate(c.Request().Context(), raw)
			if err != nil {
				if errors.Is(err, services.ErrUnauthorized) {
					log.WithField("path", c.Request().URL.Path).Debug("Token rejected")
					return unauthorized(c)
				}
				log.WithError(err).Error("Token verification failed")
				return c.JSON(http.StatusInternalServerError, models.Response{
					Status:  http.StatusInternalServerError,
					Message: "Internal server error",
				})
			}

			c.Set(claimsContextKey, claims)
			c.Set("userId", claims.UserID)
			c.Set("role", claims.Role.String())
			return next(c)
		}
	}
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, models.Response{
		Status:  http.StatusUnauthorized,
		Message: services.ErrUnauthorized.Message,
	})
}

// GetClaims returns the claims stored by JWTMiddleware, or nil
func GetClaims(c echo.Context) *services.Claims {
	claims, _ := c.Get(claimsContextKey).(*services.Claims)
	return claims
}

// SetClaims stores claims the way JWTMiddleware does. Used by handlers that
// authenticate on their own, such as the websocket upgrade.
func SetClaims(c echo.Context, claims *services.Claims) {
	c.Set(claimsContextKey, claims)
	c.Set("userId", claims.UserID)
	c.Set("role", claims.Role.String())
}
