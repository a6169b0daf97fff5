package auth

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/fathima-sithara/messaging-service/internal/apperr"
)

// Validator verifies bearer tokens issued by the external auth service and
// extracts the caller identity. This is the only place a user id is ever
// derived from a token; everything downstream consumes the normalized value.
type Validator struct {
	secret []byte
}

func NewValidator(secret string) (*Validator, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is empty")
	}
	return &Validator{secret: []byte(secret)}, nil
}

// Validate returns the canonical user id for the token. Tokens from older
// issuers carry the id under "user_id", "sub" or "id"; the first non-empty
// one wins.
func (v *Validator) Validate(tokenStr string) (string, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return "", apperr.ErrUnauthorized
	}
	for _, key := range []string{"user_id", "sub", "id"} {
		if s, ok := claims[key].(string); ok && s != "" {
			return s, nil
		}
	}
	return "", apperr.ErrUnauthorized
}

// Middleware authenticates REST requests and stores the user id in locals.
func (v *Validator) Middleware(log *zap.SugaredLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization"})
		}
		uid, err := v.Validate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			log.Debugw("jwt rejected", "err", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}
		c.Locals("user_id", uid)
		return c.Next()
	}
}
