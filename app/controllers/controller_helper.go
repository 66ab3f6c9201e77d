package controllers

import "github.com/gofiber/fiber/v2"

// errorJSON writes the uniform error envelope used by the API.
func errorJSON(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": message,
	})
}
