package controllers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/HSouheill/gym_backend/models"
	"github.com/HSouheill/gym_backend/services"
)

func statusForKind(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation, services.KindOtpExpiredOrInvalid, services.KindPasswordMismatch:
		return http.StatusBadRequest
	case services.KindDuplicateEmail:
		return http.StatusConflict
	case services.KindInvalidCredentials, services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindAccountBlocked, services.KindForbidden:
		return http.StatusForbidden
	case services.KindTooManyAttempts:
		return http.StatusTooManyRequests
	case services.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// respondError writes err as a JSON response. Only *services.AuthError
// messages reach the client; anything else is logged and reported as a 500.
func respondError(c echo.Context, logger *logrus.Logger, err error) error {
	var authErr *services.AuthError
	if errors.As(err, &authErr) {
		status := statusForKind(authErr.Kind)
		return c.JSON(status, models.Response{
			Status:  status,
			Message: authErr.Message,
			Data:    map[string]string{"code": authErr.Kind.String()},
		})
	}

	logger.WithError(err).WithFields(logrus.Fields{
		"method": c.Request().Method,
		"path":   c.Request().URL.Path,
	}).Error("Request failed")
	return c.JSON(http.StatusInternalServerError, models.Response{
		Status:  http.StatusInternalServerError,
		Message: "Internal server error",
	})
}

// bindAndValidate decodes the body into req and runs the struct validator
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return services.ValidationError("Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return services.ValidationError(validationMessage(err))
	}
	return nil
}
