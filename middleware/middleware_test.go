package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/HSouheill/gym_backend/models"
	"github.com/HSouheill/gym_backend/services"
)

type stubAuth struct {
	tokens map[string]*services.Claims
	err    error
}

func (s *stubAuth) Authenticate(_ context.Context, raw string) (*services.Claims, error) {
	if s.err != nil {
		return nil, s.err
	}
	if claims, ok := s.tokens[raw]; ok {
		return claims, nil
	}
	return nil, services.ErrUnauthorized
}

func quietLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestJWTMiddleware(t *testing.T) {
	auth := &stubAuth{tokens: map[string]*services.Claims{
		"good": {UserID: "u1", Role: models.RoleGym},
	}}
	e := echo.New()
	handler := JWTMiddleware(auth, quietLogger())(func(c echo.Context) error {
		claims := GetClaims(c)
		require.NotNil(t, claims)
		return c.String(http.StatusOK, claims.UserID)
	})

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{name: "bearer", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, status: http.StatusOK},
		{name: "lowercase scheme", setup: func(r *http.Request) { r.Header.Set("Authorization", "bearer good") }, status: http.StatusOK},
		{name: "cookie", setup: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "good"}) }, status: http.StatusOK},
		{name: "missing", setup: func(r *http.Request) {}, status: http.StatusUnauthorized},
		{name: "bad token", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer bad") }, status: http.StatusUnauthorized},
		{name: "wrong scheme", setup: func(r *http.Request) { r.Header.Set("Authorization", "Basic good") }, status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/gym-auth/auth/me", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			require.NoError(t, handler(e.NewContext(req, rec)))
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"message":"Unauthorized"`)
			}
		})
	}

	t.Run("store failure is a server error", func(t *testing.T) {
		failing := JWTMiddleware(&stubAuth{err: errors.New("redis down")}, quietLogger())(okHandler)
		req := httptest.NewRequest(http.MethodGet, "/gym-auth/auth/me", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		require.NoError(t, failing(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	handler := RequireRole(models.RoleSuperAdmin)(okHandler)

	for _, tt := range []struct {
		claims *services.Claims
		status int
	}{
		{claims: &services.Claims{Role: models.RoleSuperAdmin}, status: http.StatusOK},
		{claims: &services.Claims{Role: models.RoleGym}, status: http.StatusForbidden},
		{claims: nil, status: http.StatusUnauthorized},
	} {
		req := httptest.NewRequest(http.MethodGet, "/super-admin/users/gym", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if tt.claims != nil {
			SetClaims(c, tt.claims)
		}
		require.NoError(t, handler(c))
		assert.Equal(t, tt.status, rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := NewRateLimiter(ctx)
	limiter.SetEndpointLimit("/gym-auth/login", rate.Every(time.Hour), 2)
	now := time.Now()
	limiter.now = func() time.Time { return now }

	e := echo.New()
	e.Use(limiter.RateLimit())
	e.POST("/gym-auth/login", okHandler)
	e.GET("/health", okHandler)

	call := func(method, path, ip string) int {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set(echo.HeaderXRealIP, ip)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call(http.MethodPost, "/gym-auth/login", "10.0.0.1"))
	assert.Equal(t, http.StatusOK, call(http.MethodPost, "/gym-auth/login", "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, call(http.MethodPost, "/gym-auth/login", "10.0.0.1"))

	// other clients are unaffected
	assert.Equal(t, http.StatusOK, call(http.MethodPost, "/gym-auth/login", "10.0.0.2"))

	for i := 0; i < 50; i++ {
		assert.Equal(t, http.StatusOK, call(http.MethodGet, "/health", "10.0.0.1"))
	}

	now = now.Add(6 * time.Minute)
	assert.Equal(t, http.StatusOK, call(http.MethodPost, "/gym-auth/login", "10.0.0.1"))
}

func TestLoggerMiddleware(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	e := echo.New()
	e.Use(RequestIDMiddleware(), LoggerMiddleware(logger))
	e.GET("/gym-auth/auth/me", func(c echo.Context) error {
		return c.JSON(http.StatusUnauthorized, models.Response{Status: 401, Message: "Unauthorized"})
	})
	e.POST("/gym-auth/login", func(c echo.Context) error {
		return c.JSON(http.StatusUnauthorized, models.Response{Status: 401, Message: "Invalid email or password"})
	})
	e.GET("/boom", func(c echo.Context) error {
		return errors.New("boom")
	})

	serve := func(method, path string) *httptest.ResponseRecorder {
		hook.Reset()
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	rec := serve(http.MethodGet, "/gym-auth/auth/me")
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	serve(http.MethodPost, "/gym-auth/login")
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	rec = serve(http.MethodGet, "/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestRequestIDIsKept(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "abc-123")
	rec := httptest.NewRecorder()
	require.NoError(t, RequestIDMiddleware()(okHandler)(e.NewContext(req, rec)))
	assert.Equal(t, "abc-123", rec.Header().Get(echo.HeaderXRequestID))
}

func TestSecurityAndContentType(t *testing.T) {
	e := echo.New()
	e.Use(SecurityHeaders(SecurityConfig{}), RequireContentType())
	e.POST("/gym-auth/login", okHandler)

	req := httptest.NewRequest(http.MethodPost, "/gym-auth/login", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, "application/json; charset=utf-8")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	req = httptest.NewRequest(http.MethodPost, "/gym-auth/login", strings.NewReader(`<xml/>`))
	req.Header.Set(echo.HeaderContentType, "application/xml")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestDashboardCORS(t *testing.T) {
	e := echo.New()
	e.Use(DashboardCORS([]string{"https://dash.example.com/", " http://localhost:3000"}))
	e.GET("/auth/me", okHandler)

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"https://dash.example.com", true},
		{"http://localhost:3000", true},
		{"http://dash.example.com", false},
		{"https://evil.example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			req.Header.Set(echo.HeaderOrigin, tt.origin)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if tt.allowed {
				assert.Equal(t, tt.origin, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
				assert.Equal(t, "true", rec.Header().Get(echo.HeaderAccessControlAllowCredentials))
			} else {
				assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
			}
		})
	}

	match := OriginMatcher([]string{"https://dash.example.com"})
	assert.False(t, match("not a url"))
	assert.False(t, match(""))
}
