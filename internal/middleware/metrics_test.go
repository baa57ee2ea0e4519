package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMetrics_ReturnsSingleton(t *testing.T) {
	a := InitMetrics("amor-test")
	b := InitMetrics("amor-test")
	assert.Same(t, a, b)
}

func TestMetricsMiddleware_PassesThrough(t *testing.T) {
	app := fiber.New()
	app.Use(MetricsMiddleware(InitMetrics("amor-test")))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}
