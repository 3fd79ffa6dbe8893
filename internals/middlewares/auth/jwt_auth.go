package auth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	"universitypoland_backend/internals/configs"
)

// AuthMiddleware parses the bearer token issued by the identity service and
// stores user_id and role into the request locals. Token issuance and session
// management live outside this service.
func AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := extractBearerToken(c)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		secret := configs.JWTSecret
		if secret == "" {
			return fiber.NewError(fiber.StatusInternalServerError, "missing JWT secret")
		}

		claims := jwt.MapClaims{}
		parser := jwt.Parser{SkipClaimsValidation: true}
		if _, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "unexpected signing method")
			}
			return []byte(secret), nil
		}); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "token parse error")
		}

		if err := validateExpiry(claims, 30*time.Second); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "token expired")
		}

		userID, _ := claims["user_id"].(string)
		if userID == "" {
			// some issuers put the user id into sub
			userID, _ = claims["sub"].(string)
		}
		if userID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing user id claim")
		}
		c.Locals("user_id", userID)

		if role, ok := claims["role"].(string); ok {
			c.Locals("role", role)
		}
		return c.Next()
	}
}

func extractBearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && parts[1] != "" {
			return parts[1], nil
		}
		return "", fiber.NewError(fiber.StatusUnauthorized, "malformed Authorization header")
	}
	if cookie := c.Cookies("access_token"); cookie != "" {
		return cookie, nil
	}
	return "", fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
}

func validateExpiry(claims jwt.MapClaims, leeway time.Duration) error {
	exp, ok := claims["exp"].(float64)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "missing exp claim")
	}
	if time.Now().Add(-leeway).Unix() >= int64(exp) {
		return fiber.NewError(fiber.StatusUnauthorized, "expired")
	}
	return nil
}
