package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/gym_backend/middleware"
	"github.com/HSouheill/gym_backend/models"
	"github.com/HSouheill/gym_backend/services"
)

type UserAdmin interface {
	ListUsers(ctx context.Context, role models.Role, page, pageSize int) (*services.UserPage, error)
	SetBlocked(ctx context.Context, actor *services.Claims, role models.Role, id primitive.ObjectID, blocked bool) error
}

// AdminController serves the super-admin user management endpoints
type AdminController struct {
	admin  UserAdmin
	logger *logrus.Logger
}

func NewAdminController(admin UserAdmin, logger *logrus.Logger) *AdminController {
	return &AdminController{admin: admin, logger: logger}
}

func roleParam(c echo.Context) (models.Role, error) {
	role, err := models.ParseRole(c.Param("role"))
	if err != nil {
		return 0, services.ValidationError("Unknown role")
	}
	return role, nil
}

func queryInt(c echo.Context, name string) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return v
}

// ListUsers handles GET /super-admin/users/:role?page=&pageSize=
func (ac *AdminController) ListUsers(c echo.Context) error {
	role, err := roleParam(c)
	if err != nil {
		return respondError(c, ac.logger, err)
	}

	page, err := ac.admin.ListUsers(c.Request().Context(), role, queryInt(c, "page"), queryInt(c, "pageSize"))
	if err != nil {
		return respondError(c, ac.logger, err)
	}
	return ok(c, http.StatusOK, "Users retrieved successfully", page)
}

// BlockUser handles PATCH /super-admin/users/:role/:id/block
func (ac *AdminController) BlockUser(c echo.Context) error {
	return ac.setBlocked(c, true)
}

// UnblockUser handles PATCH /super-admin/users/:role/:id/unblock
func (ac *AdminController) UnblockUser(c echo.Context) error {
	return ac.setBlocked(c, false)
}

func (ac *AdminController) setBlocked(c echo.Context, blocked bool) error {
	role, err := roleParam(c)
	if err != nil {
		return respondError(c, ac.logger, err)
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return respondError(c, ac.logger, services.ValidationError("Invalid user ID"))
	}

	if err := ac.admin.SetBlocked(c.Request().Context(), middleware.GetClaims(c), role, id, blocked); err != nil {
		return respondError(c, ac.logger, err)
	}

	message := "User unblocked successfully"
	if blocked {
		message = "User blocked successfully"
	}
	return ok(c, http.StatusOK, message, map[string]interface{}{
		"id":        id.Hex(),
		"role":      role,
		"isBlocked": blocked,
	})
}
