package middleware

import (
	"slices"

	"github.com/gofiber/fiber/v2"

	"github.com/terradactile/api/pkg/response"
)

// OriginAllowList gates requests on the Origin header before any pipeline
// work starts. An allow-listed origin is echoed back in the CORS headers; a
// request from anywhere else is rejected with INVALID_ORIGIN.
func OriginAllowList(allowed []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)
		if !slices.Contains(allowed, origin) {
			c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
			return response.InvalidOrigin(c)
		}

		c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
		c.Set(fiber.HeaderAccessControlAllowMethods, "OPTIONS,POST,GET")
		c.Set(fiber.HeaderAccessControlAllowHeaders, "Content-Type")

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}
