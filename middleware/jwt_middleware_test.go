package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hannahgrace-creator/mail-guard-pilot/config"
)

func newProtectedApp(t *testing.T) *fiber.App {
	t.Helper()

	config.AppConfig.JWTSecret = "test-secret"

	app := fiber.New()
	app.Get("/secure", Protected(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"subject": c.Locals("subject")})
	})
	return app
}

func signToken(t *testing.T, secret string, expiry time.Duration) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "service-caller",
		"exp": time.Now().Add(expiry).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestProtected(t *testing.T) {
	app := newProtectedApp(t)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer " + signToken(t, "test-secret", time.Hour), http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc123", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other-secret", time.Hour), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, "test-secret", -time.Hour), http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.token", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/secure", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
