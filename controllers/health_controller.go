package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

type HealthController struct {
	checks map[string]HealthCheck
	logger *logrus.Logger
}

// NewHealthController reports on every named check. A nil check marks a
// dependency the server is running without.
func NewHealthController(checks map[string]HealthCheck, logger *logrus.Logger) *HealthController {
	return &HealthController{checks: checks, logger: logger}
}

// Health handles GET /health. Mongo being down is fatal for the API, anything
// else only degrades it.
func (hc *HealthController) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	components := make(map[string]string, len(hc.checks))
	for name, check := range hc.checks {
		if check == nil {
			components[name] = "disabled"
			continue
		}
		if err := check(ctx); err != nil {
			hc.logger.WithError(err).WithField("component", name).Warn("Health check failed")
			components[name] = "down"
			if name == "mongo" {
				status = "down"
				code = http.StatusServiceUnavailable
			} else if status == "ok" {
				status = "degraded"
			}
			continue
		}
		components[name] = "up"
	}

	return c.JSON(code, map[string]interface{}{
		"status":     status,
		"components": components,
		"time":       time.Now().UTC(),
	})
}
