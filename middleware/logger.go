package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/HSouheill/gym_backend/security"
)

// isSessionProbe reports whether path is one of the /auth/me endpoints the
// frontend calls on every page load to find out whether anyone is logged in
func isSessionProbe(path string) bool {
	return strings.HasSuffix(strings.TrimRight(path, "/"), "/auth/me")
}

// LoggerMiddleware logs every request with a level derived from its status.
// A 401 from a session probe is expected for logged-out visitors and goes to debug.
func LoggerMiddleware(logger *logrus.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			path := req.URL.Path

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			fields := logrus.Fields{
				"status":     status,
				"latency":    time.Since(start).String(),
				"client_ip":  c.RealIP(),
				"method":     req.Method,
				"path":       path,
				"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
			}
			if userID, ok := c.Get("userId").(string); ok && userID != "" {
				fields["user_id"] = userID
			}
			if logger.IsLevelEnabled(logrus.TraceLevel) {
				fields["headers"] = security.SanitizeHeaders(req.Header.Clone())
			}
			entry := logger.WithFields(fields)

			switch {
			case status >= http.StatusInternalServerError:
				entry.Error("Server error")
			case status == http.StatusUnauthorized && isSessionProbe(path):
				entry.Debug("No active session")
			case status >= http.StatusBadRequest:
				entry.Warn("Client error")
			default:
				entry.Info("Request processed")
			}

			return nil
		}
	}
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(echo.HeaderXRequestID)
			if requestID == "" || len(requestID) > 64 {
				requestID = uuid.NewString()
			}

			c.Response().Header().Set(echo.HeaderXRequestID, requestID)
			c.Set("request_id", requestID)

			return next(c)
		}
	}
}
