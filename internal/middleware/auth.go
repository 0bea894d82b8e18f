package middleware

import (
	"strings"

	"github.com/coderunner/coderunner/api/internal/config"
	"github.com/coderunner/coderunner/api/pkg/response"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates the bearer JWT and stores the caller's user
// ID in c.Locals("userId"). Identity lives with the upstream auth
// service; the control plane only trusts the signed claims.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := authenticate(c, cfg.JWTSecret)
		if err != nil {
			return response.Unauthorized(c, err.Error())
		}

		c.Locals("userId", claims.UserID)
		c.Locals("claims", claims)
		return c.Next()
	}
}

func authenticate(c *fiber.Ctx, jwtSecret string) (*Claims, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid or missing token")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid or missing token")
	}

	claims, err := parseJWT(parts[1], jwtSecret)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
	}
	if claims.UserID == "" {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
	}

	return claims, nil
}

func parseJWT(tokenString string, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
}

// WebhookApiKeyMiddleware validates the X-Api-Key header against
// WEBHOOK_API_KEY. Used by the metrics collector push endpoint.
func WebhookApiKeyMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := c.Get("X-Api-Key")

		if apiKey == "" {
			return response.Unauthorized(c, "Missing API key header")
		}

		if cfg.WebhookApiKey == "" {
			return response.InternalServerError(c, "Webhook API key is not configured")
		}

		if apiKey != cfg.WebhookApiKey {
			return response.Unauthorized(c, "Invalid API key")
		}

		return c.Next()
	}
}
