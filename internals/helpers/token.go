package helper

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// GetUserID reads the authenticated user id stored by the auth middleware.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	raw, ok := c.Locals("user_id").(string)
	if !ok || raw == "" {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "missing user id in token")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "invalid user id in token")
	}
	return id, nil
}

// GetRole reads the role claim stored by the auth middleware.
func GetRole(c *fiber.Ctx) string {
	role, _ := c.Locals("role").(string)
	return role
}
