package middleware

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(keys ...APIKey) *fiber.App {
	app := fiber.New()
	app.Get("/", APIKeyAuthMiddleware(keys...), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(LocalsKeyRole).(string))
	})
	return app
}

func TestAPIKeyAuthMiddleware(t *testing.T) {
	hash, err := HashAPIKey("admin-secret")
	require.NoError(t, err)
	app := newTestApp(
		APIKey{Role: "service", Secret: "service-secret"},
		APIKey{Role: "admin", Secret: hash},
		APIKey{Role: "unused", Secret: " "},
	)

	tests := []struct {
		name   string
		header string
		value  string
		status int
		body   string
	}{
		{name: "missing", status: fiber.StatusUnauthorized},
		{name: "wrong", header: "X-API-Key", value: "nope", status: fiber.StatusUnauthorized},
		{name: "blank secret never matches", header: "X-API-Key", value: " ", status: fiber.StatusUnauthorized},
		{name: "plain", header: "X-API-Key", value: "service-secret", status: fiber.StatusOK, body: "service"},
		{name: "bearer", header: "Authorization", value: "Bearer service-secret", status: fiber.StatusOK, body: "service"},
		{name: "bcrypt", header: "X-API-Key", value: "admin-secret", status: fiber.StatusOK, body: "admin"},
		{name: "bcrypt cached", header: "X-API-Key", value: "admin-secret", status: fiber.StatusOK, body: "admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.body != "" {
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Equal(t, tt.body, string(body))
			}
		})
	}
}

func TestAPIKeyAuthMiddleware_NoKeys(t *testing.T) {
	app := newTestApp()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-API-Key", "anything")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
