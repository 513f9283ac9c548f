package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/config"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withClaims(claims *Claims) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if claims != nil {
			c.Locals("claims", claims)
		}
		return c.Next()
	}
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name   string
		claims *Claims
		want   int
	}{
		{"tutor allowed", &Claims{UserID: 2, Role: models.RoleTutor}, fiber.StatusOK},
		{"admin allowed", &Claims{UserID: 1, Role: models.RoleAdmin}, fiber.StatusOK},
		{"student forbidden", &Claims{UserID: 3, Role: models.RoleStudent}, fiber.StatusForbidden},
		{"no claims", nil, fiber.StatusUnauthorized},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/reports", withClaims(tc.claims), RequireTutorOrAdmin(), func(c *fiber.Ctx) error {
				return c.SendStatus(fiber.StatusOK)
			})

			resp, err := app.Test(httptest.NewRequest("GET", "/reports", nil))
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	config.AppConfig = &config.Config{JWTSecret: "test-secret-key-123", JWTExpiresIn: time.Hour}

	user := &models.User{Username: "priya", Role: models.RoleStudent}
	user.ID = 42
	token, err := GenerateToken(user)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "priya", claims.Username)
	assert.Equal(t, models.RoleStudent, claims.Role)

	config.AppConfig.JWTSecret = "another-secret-key"
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestJWTMiddlewareRejectsBadHeaders(t *testing.T) {
	config.AppConfig = &config.Config{JWTSecret: "test-secret-key-123", JWTExpiresIn: time.Hour}
	app := fiber.New()
	app.Get("/me", JWTMiddleware(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for _, header := range []string{"", "Token abc", "Bearer not-a-jwt"} {
		req := httptest.NewRequest("GET", "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "header %q", header)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(RequestIDMiddleware())
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString(RequestID(c)) })

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	_, parseErr := uuid.Parse(resp.Header.Get(RequestIDHeader))
	assert.NoError(t, parseErr)

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "upstream-id", resp.Header.Get(RequestIDHeader))
}

func TestActivityHelpers(t *testing.T) {
	assert.Equal(t, "CREATE", activityAction("POST"))
	assert.Equal(t, "UPDATE", activityAction("PATCH"))
	assert.Equal(t, "DELETE", activityAction("DELETE"))
	assert.Equal(t, "", activityAction("GET"))

	assert.Equal(t, "leave-requests", activityResource("/api/leave-requests/12"))
	assert.Equal(t, "", activityResource("/health"))
}
