package routes

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HSouheill/gym_backend/controllers"
)

func testHandlers(t *testing.T) Handlers {
	logger, _ := test.NewNullLogger()
	return Handlers{
		Auth:    controllers.NewAuthController(nil, controllers.CookieConfig{}, logger),
		Profile: controllers.NewProfileController(nil, logger),
		Admin:   controllers.NewAdminController(nil, logger),
		Health:  controllers.NewHealthController(nil, logger),
		Events:  func(c echo.Context) error { return c.NoContent(http.StatusSwitchingProtocols) },
		JWT: func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return c.NoContent(http.StatusUnauthorized) }
		},
		UploadsDir: t.TempDir(),
		Logger:     logger,
	}
}

func TestEveryRoleGetsTheSameSurface(t *testing.T) {
	e := echo.New()
	SetupRoutes(e, testHandlers(t))

	registered := map[string]bool{}
	for _, r := range e.Routes() {
		registered[r.Method+" "+r.Path] = true
	}

	for _, prefix := range []string{"/gym-auth", "/client-auth", "/trainer-auth", "/super-admin-auth"} {
		for _, route := range []string{
			"POST /signup/initiate",
			"POST /signup/complete",
			"POST /login",
			"POST /logout",
			"POST /forgot-password/initiate",
			"POST /forgot-password/complete",
			"POST /refresh-token",
			"POST /change-password",
			"GET /auth/me",
			"PUT /auth/me",
			"POST /auth/me/avatar",
		} {
			method, path := splitRoute(route)
			assert.True(t, registered[method+" "+prefix+path], "%s %s%s", method, prefix, path)
		}
	}

	for _, route := range []string{
		"GET /health",
		"GET /auth/me",
		"GET /auth/events",
		"GET /super-admin/users/:role",
		"PATCH /super-admin/users/:role/:id/block",
		"PATCH /super-admin/users/:role/:id/unblock",
		"GET /uploads/*",
	} {
		assert.True(t, registered[route], route)
	}
}

func splitRoute(route string) (string, string) {
	parts := strings.SplitN(route, " ", 2)
	return parts[0], parts[1]
}

func TestProtectedRoutesRunJWT(t *testing.T) {
	e := echo.New()
	SetupRoutes(e, testHandlers(t))

	for _, target := range []struct{ method, path string }{
		{http.MethodGet, "/auth/me"},
		{http.MethodGet, "/gym-auth/auth/me"},
		{http.MethodPut, "/client-auth/auth/me"},
		{http.MethodPost, "/trainer-auth/change-password"},
		{http.MethodGet, "/super-admin/users/gym"},
	} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(target.method, target.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target.path)
	}
}

func TestServeFile(t *testing.T) {
	h := testHandlers(t)
	dir := filepath.Join(h.UploadsDir, "avatars", "gym")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("jpeg"), 0o644))

	e := echo.New()
	RegisterFileRoutes(e, h.UploadsDir, h.Logger)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/uploads/avatars/gym/a.jpg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jpeg", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Cache-Control"), "max-age")

	assert.Equal(t, http.StatusNotFound, get("/uploads/avatars/gym/missing.jpg").Code)
	assert.Equal(t, http.StatusForbidden, get("/uploads/avatars").Code)
}
