package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-assessment-api/internal/access"
	"github.com/noah-isme/gema-assessment-api/internal/utils"
)

// Authorize gates a route with the access matrix entry for action on resource.
func Authorize(action access.Action, resource access.Resource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := access.Authorize(action, resource, ViewerFromContext(c))
		switch {
		case err == nil:
			return c.Next()
		case errors.Is(err, access.ErrUnauthenticated):
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		default:
			return utils.SendError(c, fiber.StatusForbidden, err.Error())
		}
	}
}
