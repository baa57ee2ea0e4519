package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"amor/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "http://localhost:5173"

func corsApp(t *testing.T, perMinute int) *fiber.App {
	t.Helper()
	srv := &Server{config: &config.Config{
		AllowedOrigins:     testOrigin,
		RateLimitPerMinute: perMinute,
	}}
	app := fiber.New()
	srv.SetupMiddleware(app)
	app.Get("/api/groups/random", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"group": nil}) })
	app.Post("/api/groups", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })
	return app
}

func sendFrom(t *testing.T, app *fiber.App, method, path, origin string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestSetupMiddleware_CORSOrigins(t *testing.T) {
	app := corsApp(t, 0)

	resp := sendFrom(t, app, http.MethodGet, "/api/groups/random", testOrigin)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, testOrigin, resp.Header.Get("Access-Control-Allow-Origin"))

	resp = sendFrom(t, app, http.MethodGet, "/api/groups/random", "http://evil.example")
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestSetupMiddleware_RateLimitedResponseIncludesCORSHeaders(t *testing.T) {
	app := corsApp(t, 3)

	for i := 0; i < 3; i++ {
		resp := sendFrom(t, app, http.MethodGet, "/api/groups/random", testOrigin)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp := sendFrom(t, app, http.MethodGet, "/api/groups/random", testOrigin)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, testOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestSetupMiddleware_PreflightBypassesLimiter(t *testing.T) {
	app := corsApp(t, 2)

	for i := 0; i < 2; i++ {
		resp := sendFrom(t, app, http.MethodPost, "/api/groups", testOrigin)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	resp := sendFrom(t, app, http.MethodPost, "/api/groups", testOrigin)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	req := httptest.NewRequest(http.MethodOptions, "/api/groups", nil)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	preflight, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = preflight.Body.Close() }()

	assert.Equal(t, http.StatusNoContent, preflight.StatusCode)
	assert.Equal(t, testOrigin, preflight.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, preflight.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
}
