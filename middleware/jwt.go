package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// JWTMiddleware creates a Fiber middleware for bearer token validation.
// On success the authenticated username is stored in the request context
// under "username" for downstream handlers.
func JWTMiddleware(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get("Authorization")
		if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
			return c.Status(401).JSON(fiber.Map{"detail": "Not authenticated"})
		}

		tokenStr := strings.TrimPrefix(authz, "Bearer ")

		parsed, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !parsed.Valid {
			return c.Status(401).JSON(fiber.Map{"detail": "Invalid or expired token"})
		}

		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			return c.Status(401).JSON(fiber.Map{"detail": "Invalid or expired token"})
		}

		// The subject claim carries the username
		username, ok := claims["sub"].(string)
		if !ok || username == "" {
			return c.Status(401).JSON(fiber.Map{"detail": "Invalid token payload"})
		}

		c.Locals("username", username)

		return c.Next()
	}
}

// CurrentUsername extracts the authenticated username from the Fiber context
func CurrentUsername(c *fiber.Ctx) (string, error) {
	username, ok := c.Locals("username").(string)
	if !ok || username == "" {
		return "", fmt.Errorf("username not found in context")
	}
	return username, nil
}
