// Package middleware provides HTTP middleware for the fiber application,
// currently JWT authentication and permission checks.
package middleware

import (
	"strings"

	"purse/internal/config"
	"purse/internal/models"
	"purse/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Auth validates the bearer token and stores the user claims in the request
// locals under "claims".
func Auth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return response.Unauthorized(c, "missing authorization header")
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return response.Unauthorized(c, "invalid authorization format")
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.ParseWithClaims(tokenString, &models.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(config.GetEnv("JWT_SECRET", "")), nil
		})
		if err != nil || !token.Valid {
			return response.Unauthorized(c, "invalid token")
		}

		claims, ok := token.Claims.(*models.UserClaims)
		if !ok {
			return response.Unauthorized(c, "invalid claims")
		}

		c.Locals("claims", claims)
		return c.Next()
	}
}

// RequirePermission rejects requests whose claims lack the permission.
func RequirePermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*models.UserClaims)
		if !ok || claims == nil {
			return response.Unauthorized(c, "invalid claims")
		}
		if !claims.HasPermission(permission) {
			return response.Error(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}
