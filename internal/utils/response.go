package utils

import "github.com/gofiber/fiber/v2"

// Envelope is the JSON body every endpoint answers with.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Details any    `json:"details,omitempty"`
}

// SendSuccess answers 200 with data.
func SendSuccess(c *fiber.Ctx, message string, data any) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, data)
}

// SendSuccessWithStatus answers a success envelope with the given status.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data any) error {
	if status == 0 {
		status = fiber.StatusOK
	}
	return respond(c, status, Envelope{Success: true, Message: orDefault(message, "success"), Data: data})
}

// SendError answers a failure envelope without details.
func SendError(c *fiber.Ctx, status int, message string) error {
	return Fail(c, status, message, nil)
}

// Fail answers a failure envelope. details is omitted when nil.
func Fail(c *fiber.Ctx, status int, message string, details any) error {
	return respond(c, status, Envelope{Message: orDefault(message, "error"), Details: details})
}

func respond(c *fiber.Ctx, status int, body Envelope) error {
	return c.Status(status).JSON(body)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
