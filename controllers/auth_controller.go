package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/HSouheill/gym_backend/middleware"
	"github.com/HSouheill/gym_backend/models"
	"github.com/HSouheill/gym_backend/services"
)

// AuthFlow is the auth service as seen by the HTTP layer
type AuthFlow interface {
	Authenticate(ctx context.Context, raw string) (*services.Claims, error)
	InitiateSignup(ctx context.Context, role models.Role, req models.SignupInitiateRequest) (*models.OTPDispatch, error)
	CompleteSignup(ctx context.Context, role models.Role, req models.SignupCompleteRequest) (*models.AuthResult, error)
	Login(ctx context.Context, role models.Role, req models.LoginRequest) (*models.AuthResult, error)
	CurrentUser(ctx context.Context, role models.Role, claims *services.Claims) (*models.User, error)
	UnifiedCurrentUser(ctx context.Context, claims *services.Claims) (*models.User, error)
	Logout(ctx context.Context, claims *services.Claims, refreshToken string) error
	InitiatePasswordReset(ctx context.Context, role models.Role, req models.ForgotPasswordInitiateRequest) (*models.OTPDispatch, error)
	CompletePasswordReset(ctx context.Context, role models.Role, req models.ForgotPasswordCompleteRequest) error
	Refresh(ctx context.Context, raw string) (*models.AuthResult, error)
	ChangePassword(ctx context.Context, claims *services.Claims, req models.ChangePasswordRequest) (*models.AuthResult, error)
}

// CookieConfig controls the session cookie set on login
type CookieConfig struct {
	Secure bool
	Domain string
}

// AuthController serves the /{role}-auth endpoints. Each handler method takes
// the role of the route group it is mounted on.
type AuthController struct {
	auth   AuthFlow
	cookie CookieConfig
	logger *logrus.Logger
}

func NewAuthController(auth AuthFlow, cookie CookieConfig, logger *logrus.Logger) *AuthController {
	return &AuthController{auth: auth, cookie: cookie, logger: logger}
}

func (ac *AuthController) setSessionCookie(c echo.Context, result *models.AuthResult) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    result.AccessToken,
		Path:     "/",
		Domain:   ac.cookie.Domain,
		Expires:  result.ExpiresAt,
		HttpOnly: true,
		Secure:   ac.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (ac *AuthController) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   ac.cookie.Domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   ac.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ok(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, models.Response{Status: status, Message: message, Data: data})
}

// SignupInitiate handles POST /{role}-auth/signup/initiate
func (ac *AuthController) SignupInitiate(role models.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.SignupInitiateRequest
		if err := bindAndValidate(c, &req); err != nil {
			return respondError(c, ac.logger, err)
		}

		dispatch, err := ac.auth.InitiateSignup(c.Request().Context(), role, req)
		if err != nil {
			return respondError(c, ac.logger, err)
		}
		return ok(c, http.StatusOK, "OTP sent to your email", dispatch)
	}
}

// SignupComplete handles POST /{role}-auth/signup/complete
func (ac *AuthController) SignupComplete(role models.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.SignupCompleteRequest
		if err := bindAndValidate(c, &req); err != nil {
			return respondError(c, ac.logger, err)
		}

		result, err := ac.auth.CompleteSignup(c.Request().Context(), role, req)
		if err != nil {
			return respondError(c, ac.logger, err)
		}
		ac.setSessionCookie(c, result)
		return ok(c, http.StatusCreated, "Account created successfully", result)
	}
}

// Login handles POST /{role}-auth/login
func (ac *AuthController) Login(role models.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.LoginRequest
		if err := bindAndValidate(c, &req); err != nil {
			return respondError(c, ac.logger, err)
		}

		result, err := ac.auth.Login(c.Request().Context(), role, req)
		if err != nil {
			return respondError(c, ac.logger, err)
		}
		ac.setSessionCookie(c, result)
		return ok(c, http.StatusOK, "Login successful", result)
	}
}

// Me handles GET /{role}-auth/auth/me. Must run behind JWTMiddleware.
func (ac *AuthController) Me(role models.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := ac.auth.CurrentUser(c.Request().Context(), role, middleware.GetClaims(c))
		if err != nil {
			return respondError(c, ac.logger, err)
		}
		return ok(c, http.StatusOK, "User retrieved successfully", user)
	}
}

// UnifiedMe handles GET /auth/me, resolving the role from the token
func (ac *AuthController) UnifiedMe(c echo.Context) error {
	user, err := ac.auth.UnifiedCurrentUser(c.Request().Context(), middleware.GetClaims(c))
	if err != nil {
		return respondError(c, ac.logger, err)
	}
	return ok(c, http.StatusOK, "User retrieved successfully", user)
}

// Logout handles POST /{role}-auth/logout. It always succeeds: a missing or
// already revoked token still gets the cookie cleared. A valid token is
// revoked whichever role prefix received the call.
func (ac *AuthController) Logout(role models.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if c.Request().ContentLength > 0 {
			_ = c.Bind(&body)
		}

		if raw := middleware.TokenFromRequest(c); raw != "" {
			ctx := c.Request().Context()
			claims, err := ac.auth.Authenticate(ctx, raw)
			switch {
			case err == nil:
				if claims.Role != role {
					ac.logger.WithFields(logrus.Fields{
						"prefix": role.String(),
						"role":   claims.Role.String(),
					}).Debug("Logout served by another role's prefix")
				}
				if err := ac.auth.Logout(ctx, claims, body.RefreshToken); err != nil {
					return respondError(c, ac.logger, err)
				}
			case err != nil && !isAuthError(err):
				return respondError(c, ac.logger, err)
			}
		}

		ac.clearSessionCookie(c)
		return ok(c, http.StatusOK, "Logged out successfully", nil)
	}
}

// ForgotPasswordInitiate handles POST /{role}-auth/forgot-password/initiate
func (ac *AuthController) ForgotPasswordInitiate(role models.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.ForgotPasswordInitiateRequest
		if err := bindAndValidate(c, &req); err != nil {
			return respondError(c, ac.logger, err)
		}

		dispatch, err := ac.auth.InitiatePasswordReset(c.Request().Context(), role, req)
		if err != nil {
			return respondError(c, ac.logger, err)
		}
		return ok(c, http.StatusOK, "If an account exists for this email, an OTP has been sent", dispatch)
	}
}

// ForgotPasswordComplete handles POST /{role}-auth/forgot-password/complete
func (ac *AuthController) ForgotPasswordComplete(role models.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.ForgotPasswordCompleteRequest
		if err := bindAndValidate(c, &req); err != nil {
			return respondError(c, ac.logger, err)
		}

		if err := ac.auth.CompletePasswordReset(c.Request().Context(), role, req); err != nil {
			return respondError(c, ac.logger, err)
		}
		return ok(c, http.StatusOK, "Password reset successfully", nil)
	}
}

// RefreshToken handles POST /{role}-auth/refresh-token. The session keeps the
// role carried by the refresh token whichever group the route is mounted on.
func (ac *AuthController) RefreshToken(c echo.Context) error {
	var req models.RefreshTokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, ac.logger, err)
	}

	result, err := ac.auth.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return respondError(c, ac.logger, err)
	}
	ac.setSessionCookie(c, result)
	return ok(c, http.StatusOK, "Token refreshed", result)
}

// ChangePassword handles POST /{role}-auth/change-password. Must run behind JWTMiddleware.
func (ac *AuthController) ChangePassword(role models.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims := middleware.GetClaims(c)
		if claims == nil || claims.Role != role {
			return respondError(c, ac.logger, services.ErrUnauthorized)
		}

		var req models.ChangePasswordRequest
		if err := bindAndValidate(c, &req); err != nil {
			return respondError(c, ac.logger, err)
		}

		result, err := ac.auth.ChangePassword(c.Request().Context(), claims, req)
		if err != nil {
			return respondError(c, ac.logger, err)
		}
		ac.setSessionCookie(c, result)
		return ok(c, http.StatusOK, "Password changed successfully", result)
	}
}

func isAuthError(err error) bool {
	var authErr *services.AuthError
	return errors.As(err, &authErr)
}
