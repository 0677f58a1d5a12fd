package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-assessment-api/internal/access"
	"github.com/noah-isme/gema-assessment-api/internal/viewer"
)

func withViewer(v viewer.Viewer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(viewerLocalKey, v)
		return c.Next()
	}
}

func TestAuthorizeAllowsLecturer(t *testing.T) {
	app := fiber.New()
	app.Use(withViewer(viewer.New(1, "lecturer", "")))
	app.Use(Authorize(access.ActionRead, access.ResourceActivity))
	app.Get("/activity", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/activity", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAuthorizeRejectsStudent(t *testing.T) {
	app := fiber.New()
	app.Use(withViewer(viewer.New(7, "student", "")))
	app.Use(Authorize(access.ActionRead, access.ResourceActivity))
	app.Get("/activity", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/activity", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestAuthorizeRejectsAnonymous(t *testing.T) {
	app := fiber.New()
	app.Use(Authorize(access.ActionRead, access.ResourceActivity))
	app.Get("/activity", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/activity", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
