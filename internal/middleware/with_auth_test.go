package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-assessment-api/internal/middleware"
	"github.com/noah-isme/gema-assessment-api/internal/viewer"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newViewerApp(captured *viewer.Viewer) *fiber.App {
	app := fiber.New()
	app.Use(middleware.ResolveViewer(viewer.NewJWTResolver(testSecret)))
	app.Get("/", func(c *fiber.Ctx) error {
		*captured = middleware.ViewerFromContext(c)
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestResolveViewerBindsLecturer(t *testing.T) {
	var got viewer.Viewer
	app := newViewerApp(&got)

	token := signToken(t, jwt.MapClaims{"sub": "4", "role": "Lecturer", "exp": time.Now().Add(time.Hour).Unix()})
	resp := perform(t, app, "Bearer "+token)

	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	require.True(t, got.IsLecturer())
	require.Equal(t, uint(4), got.ID)
}

func TestResolveViewerWithoutHeaderIsAnonymous(t *testing.T) {
	var got viewer.Viewer
	app := newViewerApp(&got)

	resp := perform(t, app, "")

	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	require.False(t, got.Authenticated())
}

func TestResolveViewerInvalidTokenIsAnonymous(t *testing.T) {
	var got viewer.Viewer
	app := newViewerApp(&got)

	resp := perform(t, app, "Bearer not-a-token")

	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	require.Equal(t, viewer.Anonymous(), got)
}

func perform(t *testing.T, app *fiber.App, authorization string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}
