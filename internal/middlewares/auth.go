package middlewares

import (
	"strings"

	"github.com/arcane-tl/asset-service/internal/auth"
	"github.com/gofiber/fiber/v2"
)

// JWTAuth verifies the bearer token and stores the user id in c.Locals.
func JWTAuth(verifier *auth.JWTVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization"})
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization"})
		}
		uid, err := verifier.VerifyToken(parts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		c.Locals("user_id", uid)
		return c.Next()
	}
}
