package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

// OriginMatcher reports whether a browser origin belongs to one of the
// dashboards. The REST API and the events socket share it.
func OriginMatcher(allowed []string) func(origin string) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			set[o] = true
		}
	}
	return func(origin string) bool {
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return false
		}
		return set[u.Scheme+"://"+u.Host]
	}
}

// DashboardCORS lets the dashboards call the API with the session cookie.
// Credentials rule out a wildcard, so every origin is matched explicitly.
func DashboardCORS(origins []string) echo.MiddlewareFunc {
	match := OriginMatcher(origins)

	return echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOriginFunc: func(origin string) (bool, error) {
			return match(origin), nil
		},
		AllowMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch,
			http.MethodPost, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept,
			echo.HeaderAuthorization, echo.HeaderXRequestedWith, echo.HeaderXRequestID,
		},
		AllowCredentials: true,
		ExposeHeaders:    []string{echo.HeaderXRequestID},
		MaxAge:           86400,
	})
}
