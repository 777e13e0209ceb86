package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/HSouheill/gym_backend/middleware"
	"github.com/HSouheill/gym_backend/models"
)

// RegisterAdminRoutes sets up the super-admin user management routes
func RegisterAdminRoutes(e *echo.Echo, h Handlers) {
	superAdminOnly := []echo.MiddlewareFunc{h.JWT, middleware.RequireRole(models.RoleSuperAdmin)}

	e.GET("/super-admin/users/:role", h.Admin.ListUsers, superAdminOnly...)
	e.PATCH("/super-admin/users/:role/:id/block", h.Admin.BlockUser, superAdminOnly...)
	e.PATCH("/super-admin/users/:role/:id/unblock", h.Admin.UnblockUser, superAdminOnly...)
}
