package mockapi

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/pushover/internal/ratelimit"
)

const readinessTimeout = 2 * time.Second

func registerHealthRoutes(app fiber.Router, quota ratelimit.Quota) {
	app.Get("/livez", livezHandler())
	app.Get("/readyz", readyzHandler(quota))
}

func livezHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	}
}

func readyzHandler(quota ratelimit.Quota) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
		defer cancel()

		if err := quota.Ping(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "not_ready",
				"checks": fiber.Map{"quota": "down"},
			})
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ready",
			"checks": fiber.Map{"quota": "ok"},
		})
	}
}
