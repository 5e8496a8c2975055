package utils

import "github.com/gofiber/fiber/v2"

const (
	defaultSuccessMessage = "success"
	defaultErrorMessage   = "error"
)

// APIResponse is the envelope returned by every JSON endpoint.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
	Meta    interface{} `json:"meta,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// Send writes body with the given status, filling in a default message.
func Send(c *fiber.Ctx, status int, body APIResponse) error {
	if status == 0 {
		status = fiber.StatusOK
	}
	if body.Message == "" {
		body.Message = defaultErrorMessage
		if body.Success {
			body.Message = defaultSuccessMessage
		}
	}
	return c.Status(status).JSON(body)
}

// SendSuccess answers 200 with data.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return Send(c, fiber.StatusOK, APIResponse{Success: true, Data: data, Message: message})
}

// Created answers 201 with the newly created resource.
func Created(c *fiber.Ctx, message string, data interface{}) error {
	return Send(c, fiber.StatusCreated, APIResponse{Success: true, Data: data, Message: message})
}

// OK answers 200 with a list and its pagination metadata.
func OK(c *fiber.Ctx, data interface{}, message string, meta interface{}) error {
	return Send(c, fiber.StatusOK, APIResponse{Success: true, Data: data, Message: message, Meta: meta})
}

// SendError answers status with a message only.
func SendError(c *fiber.Ctx, status int, message string) error {
	return Send(c, status, APIResponse{Message: message})
}

// Fail answers status with structured details, such as per-field validation errors.
func Fail(c *fiber.Ctx, status int, message string, details interface{}) error {
	return Send(c, status, APIResponse{Message: message, Details: details})
}
