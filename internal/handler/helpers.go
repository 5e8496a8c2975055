package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/hostel-allocation-api/internal/middleware"
	"github.com/noah-isme/hostel-allocation-api/internal/service"
	"github.com/noah-isme/hostel-allocation-api/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseQueryUint(c *fiber.Ctx, key string) (uint, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(parsed), nil
}

func parseIDParam(c *fiber.Ctx, key string) (uint, error) {
	parsed, err := strconv.ParseUint(strings.TrimSpace(c.Params(key)), 10, 64)
	if err != nil || parsed == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(parsed), nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
		if id, ok := v.(int); ok {
			if id < 0 {
				return 0
			}
			return uint(id)
		}
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_role"); v != nil {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}

func activityActorFromContext(c *fiber.Ctx) service.ActivityActor {
	return service.ActivityActor{
		ID:            userIDFromContext(c),
		Role:          userRoleFromContext(c),
		CorrelationID: middleware.GetCorrelationID(c),
	}
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// validationDetails maps each failing field to the rule it broke.
func validationDetails(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[fieldErr.Field()] = fieldErr.Tag()
	}
	return details
}

func isNotFound(err error) bool {
	return errors.Is(err, service.ErrStudentNotFound) ||
		errors.Is(err, service.ErrHostelNotFound) ||
		errors.Is(err, service.ErrRoomNotFound) ||
		errors.Is(err, service.ErrRequestNotFound) ||
		errors.Is(err, service.ErrNotificationNotFound)
}

// sendServiceError maps service errors onto HTTP statuses. Unexpected errors
// are logged and reported with the fallback message.
func sendServiceError(c *fiber.Ctx, base zerolog.Logger, err error, fallback string) error {
	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	case errors.Is(err, service.ErrRequestRejected):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case isNotFound(err):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNoRoomAvailable), errors.Is(err, service.ErrRequestClosed):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	default:
		requestLogger(base, c).Error().Err(err).Str("path", c.Path()).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
