package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// The API only serves JSON and uploaded images, so nothing may be framed,
// scripted or fetched from a response.
const apiCSP = "default-src 'none'; img-src 'self'; frame-ancestors 'none'"

type SecurityConfig struct {
	// HSTS should only be sent when the server is reached over TLS
	HSTS bool
}

func SecurityHeaders(config SecurityConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Content-Security-Policy", apiCSP)
			h.Set("Referrer-Policy", "no-referrer")
			if config.HSTS {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			if carriesCredentials(c.Request().URL.Path) {
				h.Set("Cache-Control", "no-store")
				h.Set("Pragma", "no-cache")
			}
			return next(c)
		}
	}
}

// carriesCredentials matches the role auth groups, the unified /auth
// routes and the super-admin user listing.
func carriesCredentials(path string) bool {
	return strings.Contains(path, "-auth/") ||
		strings.HasPrefix(path, "/auth/") ||
		strings.HasPrefix(path, "/super-admin/")
}
