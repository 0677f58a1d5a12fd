package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-assessment-api/internal/viewer"
)

const viewerLocalKey = "viewer"

// ResolveViewer decodes the optional bearer token once per request and binds
// the resulting Viewer to the request. Requests without a usable token carry
// the anonymous viewer.
func ResolveViewer(resolver viewer.Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v := viewer.Anonymous()
		if resolver != nil {
			if token := viewer.BearerToken(c.Get(fiber.HeaderAuthorization)); token != "" {
				v = resolver.Resolve(token)
			}
		}

		c.Locals(viewerLocalKey, v)
		return c.Next()
	}
}

// ViewerFromContext returns the viewer bound by ResolveViewer, or Anonymous.
func ViewerFromContext(c *fiber.Ctx) viewer.Viewer {
	if c == nil {
		return viewer.Anonymous()
	}
	if v, ok := c.Locals(viewerLocalKey).(viewer.Viewer); ok {
		return v
	}
	return viewer.Anonymous()
}
