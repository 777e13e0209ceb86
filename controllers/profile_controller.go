package controllers

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/HSouheill/gym_backend/middleware"
	"github.com/HSouheill/gym_backend/models"
	"github.com/HSouheill/gym_backend/services"
	"github.com/HSouheill/gym_backend/utils"
)

// maxAvatarUpload bounds how much of a multipart file is read into memory
const maxAvatarUpload = 5<<20 + 1

type ProfileEditor interface {
	UpdateProfile(ctx context.Context, claims *services.Claims, update models.ProfileUpdate) (*models.User, error)
	UploadAvatar(ctx context.Context, claims *services.Claims, filename string, data []byte, crop *utils.CropRect) (*models.User, error)
}

type ProfileController struct {
	profiles ProfileEditor
	logger   *logrus.Logger
}

func NewProfileController(profiles ProfileEditor, logger *logrus.Logger) *ProfileController {
	return &ProfileController{profiles: profiles, logger: logger}
}

// UpdateProfile handles PUT /{role}-auth/auth/me
func (pc *ProfileController) UpdateProfile(c echo.Context) error {
	var update models.ProfileUpdate
	if err := bindAndValidate(c, &update); err != nil {
		return respondError(c, pc.logger, err)
	}

	user, err := pc.profiles.UpdateProfile(c.Request().Context(), middleware.GetClaims(c), update)
	if err != nil {
		return respondError(c, pc.logger, err)
	}
	return ok(c, http.StatusOK, "Profile updated successfully", user)
}

// UploadAvatar handles POST /{role}-auth/auth/me/avatar. The image comes in
// the "avatar" field; x, y, width and height optionally select a crop.
func (pc *ProfileController) UploadAvatar(c echo.Context) error {
	file, err := c.FormFile("avatar")
	if err != nil {
		return respondError(c, pc.logger, services.ValidationError("No image file provided"))
	}

	crop, err := parseCrop(c)
	if err != nil {
		return respondError(c, pc.logger, err)
	}

	src, err := file.Open()
	if err != nil {
		return respondError(c, pc.logger, err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxAvatarUpload))
	if err != nil {
		return respondError(c, pc.logger, err)
	}

	user, err := pc.profiles.UploadAvatar(c.Request().Context(), middleware.GetClaims(c), file.Filename, data, crop)
	if err != nil {
		return respondError(c, pc.logger, err)
	}
	return ok(c, http.StatusOK, "Profile picture updated successfully", user)
}

// parseCrop returns nil when no crop fields were sent
func parseCrop(c echo.Context) (*utils.CropRect, error) {
	fields := []string{"x", "y", "width", "height"}
	values := make([]int, len(fields))
	present := 0
	for i, name := range fields {
		raw := c.FormValue(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, services.ValidationError("Crop values must be whole numbers")
		}
		values[i] = v
		present++
	}

	switch present {
	case 0:
		return nil, nil
	case len(fields):
		return &utils.CropRect{X: values[0], Y: values[1], Width: values[2], Height: values[3]}, nil
	default:
		return nil, services.ValidationError("Crop requires x, y, width and height")
	}
}
