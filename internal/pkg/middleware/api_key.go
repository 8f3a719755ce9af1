package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/crypto/bcrypt"
)

// KeyRole is stored in Locals under LocalsKeyRole for authenticated requests.
const LocalsKeyRole = "API_KEY_ROLE"

// APIKey is one accepted credential. Secret is either the raw key or a bcrypt
// hash of it (starting with "$2").
type APIKey struct {
	Role   string
	Secret string
}

func (k APIKey) isHash() bool {
	return strings.HasPrefix(k.Secret, "$2")
}

type apiKeyAuth struct {
	keys     []APIKey
	verified sync.Map // sha256(raw key) -> role, for bcrypt matches
}

// APIKeyAuthMiddleware authenticates requests carrying one of keys in the
// X-API-Key or Authorization: Bearer header. Empty secrets are ignored; with
// no usable key every request is rejected.
func APIKeyAuthMiddleware(keys ...APIKey) fiber.Handler {
	a := &apiKeyAuth{}
	for _, k := range keys {
		if strings.TrimSpace(k.Secret) != "" {
			k.Secret = strings.TrimSpace(k.Secret)
			a.keys = append(a.keys, k)
		}
	}
	if len(a.keys) == 0 {
		log.Warn("api key middleware: no keys configured, all requests will be rejected")
	}

	return func(c *fiber.Ctx) error {
		apiKey := extractAPIKeyFromHeader(c)
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing API key"})
		}

		role, ok := a.match(apiKey)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid API key"})
		}
		c.Locals(LocalsKeyRole, role)
		return c.Next()
	}
}

func (a *apiKeyAuth) match(raw string) (string, bool) {
	sum := sha256.Sum256([]byte(raw))
	if role, ok := a.verified.Load(sum); ok {
		return role.(string), true
	}
	for _, k := range a.keys {
		if k.isHash() {
			if bcrypt.CompareHashAndPassword([]byte(k.Secret), []byte(raw)) == nil {
				a.verified.Store(sum, k.Role)
				return k.Role, true
			}
			continue
		}
		want := sha256.Sum256([]byte(k.Secret))
		if subtle.ConstantTimeCompare(sum[:], want[:]) == 1 {
			return k.Role, true
		}
	}
	return "", false
}

// HashAPIKey returns the bcrypt hash to configure instead of a raw key.
func HashAPIKey(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	apiKey := strings.TrimSpace(c.Get("X-API-Key"))
	if apiKey != "" {
		return apiKey
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
