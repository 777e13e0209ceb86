package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/HSouheill/gym_backend/middleware"
	"github.com/HSouheill/gym_backend/models"
)

// RegisterAuthRoutes mounts the same auth surface under every role's prefix
// (/gym-auth, /client-auth, /trainer-auth, /super-admin-auth)
func RegisterAuthRoutes(e *echo.Echo, h Handlers) {
	for _, role := range models.AllRoles {
		g := e.Group(role.RoutePrefix())

		// Public authentication routes
		g.POST("/signup/initiate", h.Auth.SignupInitiate(role))
		g.POST("/signup/complete", h.Auth.SignupComplete(role))
		g.POST("/login", h.Auth.Login(role))
		g.POST("/logout", h.Auth.Logout(role))
		g.POST("/forgot-password/initiate", h.Auth.ForgotPasswordInitiate(role))
		g.POST("/forgot-password/complete", h.Auth.ForgotPasswordComplete(role))
		g.POST("/refresh-token", h.Auth.RefreshToken)

		// Session routes. /auth/me reports a role mismatch as 401 so that
		// probing clients treat it as "not this role".
		g.GET("/auth/me", h.Auth.Me(role), h.JWT)
		g.POST("/change-password", h.Auth.ChangePassword(role), h.JWT)

		ownAccount := middleware.RequireRole(role)
		g.PUT("/auth/me", h.Profile.UpdateProfile, h.JWT, ownAccount)
		g.POST("/auth/me/avatar", h.Profile.UploadAvatar, h.JWT, ownAccount)
	}
}
