package routes

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/HSouheill/gym_backend/models"
)

// RegisterFileRoutes serves files written by LocalStorage. Nothing is
// mounted when uploads go to S3.
func RegisterFileRoutes(e *echo.Echo, uploadsDir string, logger *logrus.Logger) {
	if uploadsDir == "" {
		return
	}
	e.GET("/uploads/*", ServeFile(uploadsDir, logger))
}

// ServeFile handles serving uploaded files with proper security checks
func ServeFile(uploadsDir string, logger *logrus.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Param("*")
		if path == "" {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "File not found",
			})
		}

		// Clean the path to prevent directory traversal
		cleanPath := filepath.Clean("/" + path)
		if strings.Contains(cleanPath, "..") {
			return c.JSON(http.StatusForbidden, models.Response{
				Status:  http.StatusForbidden,
				Message: "Access denied - invalid path",
			})
		}
		fullPath := filepath.Join(uploadsDir, cleanPath)

		info, err := os.Stat(fullPath)
		if err != nil {
			if os.IsNotExist(err) {
				return c.JSON(http.StatusNotFound, models.Response{
					Status:  http.StatusNotFound,
					Message: "File not found",
				})
			}
			logger.WithError(err).WithField("path", fullPath).Error("Error accessing upload")
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Error accessing file",
			})
		}

		// Don't allow directory listing
		if info.IsDir() {
			return c.JSON(http.StatusForbidden, models.Response{
				Status:  http.StatusForbidden,
				Message: "Access denied - directory listing not allowed",
			})
		}

		// avatar keys are unique per upload, so they never change
		c.Response().Header().Set("Cache-Control", "public, max-age=31536000")
		c.Response().Header().Set("Expires", time.Now().AddDate(1, 0, 0).UTC().Format(http.TimeFormat))

		return c.File(fullPath)
	}
}
