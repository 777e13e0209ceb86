package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/HSouheill/gym_backend/controllers"
)

// Handlers bundles everything the route tables mount
type Handlers struct {
	Auth    *controllers.AuthController
	Profile *controllers.ProfileController
	Admin   *controllers.AdminController
	Health  *controllers.HealthController
	// Events upgrades GET /auth/events to a websocket
	Events echo.HandlerFunc
	// JWT guards every authenticated route
	JWT echo.MiddlewareFunc
	// UploadsDir is served at /uploads when avatars are stored locally
	UploadsDir string
	Logger     *logrus.Logger
}

// SetupRoutes configures all API routes by calling individual route registration functions
func SetupRoutes(e *echo.Echo, h Handlers) {
	e.GET("/health", h.Health.Health)

	// Unified session routes, role taken from the token
	e.GET("/auth/me", h.Auth.UnifiedMe, h.JWT)
	e.GET("/auth/events", h.Events)

	RegisterAuthRoutes(e, h)
	RegisterAdminRoutes(e, h)
	RegisterFileRoutes(e, h.UploadsDir, h.Logger)
}
