package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"sdcp-backend/config"
)

// AuthMiddleware validates the Bearer token and stashes the parsed JWT in
// c.Locals("user") for handlers.
func AuthMiddleware(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing Authorization header"})
	}
	tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Expected format: Authorization: Bearer <token>"})
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(config.Cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	c.Locals("user", token)
	return c.Next()
}

// AdminMiddleware restricts a route to the configured admin account. Must
// run after AuthMiddleware.
func AdminMiddleware(c *fiber.Ctx) error {
	email := ClaimEmail(c)
	if email == "" || !strings.EqualFold(email, config.Cfg.AdminEmail) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Admin access required"})
	}
	return c.Next()
}

// ClaimUserID returns the authenticated user id, or "" when unset.
func ClaimUserID(c *fiber.Ctx) string {
	return claimString(c, "user_id")
}

// ClaimEmail returns the authenticated email, or "" when unset.
func ClaimEmail(c *fiber.Ctx) string {
	return claimString(c, "email")
}

func claimString(c *fiber.Ctx, key string) string {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return ""
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	val, _ := claims[key].(string)
	return val
}
