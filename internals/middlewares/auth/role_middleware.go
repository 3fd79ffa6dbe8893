package auth

import "github.com/gofiber/fiber/v2"

// OnlyRoles allows the request through only when the role claim matches one
// of the given roles.
func OnlyRoles(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals("role").(string)
		if !ok || role == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing role information")
		}
		for _, allowed := range roles {
			if role == allowed {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "not authorized for this resource")
	}
}
