package mockapi

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// errorHandler answers unhandled errors in the API's own error shape.
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error("request error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		return c.Status(code).JSON(fiber.Map{
			"status": 0,
			"errors": []string{err.Error()},
		})
	}
}
