package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/acadops/assignment-api/internal/validation"
)

func newGatedApp(role string, op validation.Operation) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if role != "" {
			c.Locals("user_role", role)
		}
		return c.Next()
	})
	app.Use(RequireOperation(op))
	app.Get("/assignments", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestRequireOperationAllowsCapableRole(t *testing.T) {
	app := newGatedApp("admin", validation.OpDelete)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/assignments", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireOperationRejectsIncapableRole(t *testing.T) {
	app := newGatedApp("faculty", validation.OpDelete)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/assignments", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireOperationNormalizesRole(t *testing.T) {
	app := newGatedApp("  Program_Director ", validation.OpRollback)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/assignments", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireOperationRejectsMissingRole(t *testing.T) {
	app := newGatedApp("", validation.OpDelete)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/assignments", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
