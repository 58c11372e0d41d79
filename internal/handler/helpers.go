package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/assignment-portal-api/internal/middleware"
	"github.com/noah-isme/assignment-portal-api/internal/service"
	"github.com/noah-isme/assignment-portal-api/internal/storage"
	"github.com/noah-isme/assignment-portal-api/internal/utils"
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

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// handleError maps service and storage errors onto the response envelope.
func handleError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return utils.SendError(c, fiber.StatusUnauthorized, "Unauthorized - Invalid or expired session")
	case errors.Is(err, service.ErrInvalidCredentials):
		return utils.SendError(c, fiber.StatusUnauthorized, "Invalid password")
	case errors.Is(err, service.ErrAssignmentClosed):
		return utils.SendError(c, fiber.StatusForbidden, "Assignment is not active")
	case errors.Is(err, service.ErrAssignmentPastDue):
		return utils.SendError(c, fiber.StatusForbidden, "Assignment deadline has passed")
	case errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "Assignment not found")
	case errors.Is(err, service.ErrClassNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "Class not found")
	case errors.Is(err, service.ErrDuplicateSubmission):
		return utils.SendError(c, fiber.StatusConflict, "You have already submitted this assignment")
	case errors.Is(err, service.ErrClassExists):
		return utils.SendError(c, fiber.StatusConflict, "Class already exists")
	case errors.Is(err, service.ErrInvalidIdentity),
		errors.Is(err, service.ErrNoAnswers),
		errors.Is(err, service.ErrInvalidAssignment),
		errors.Is(err, service.ErrInvalidQuestion):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &validationErrors):
		return utils.Fail(c, fiber.StatusBadRequest, "Validation failed", validationDetails(validationErrors))
	case errors.Is(err, storage.ErrPersistence):
		requestLogger(logger, c).Error().Err(err).Msg("durable write failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "Failed to save data, please try again")
	case errors.Is(err, storage.ErrCorruptData):
		requestLogger(logger, c).Error().Err(err).Msg("stored record is corrupt")
		return utils.SendError(c, fiber.StatusInternalServerError, "Stored data is unreadable")
	default:
		requestLogger(logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "Internal server error")
	}
}

func validationDetails(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		details[fieldErr.Field()] = fieldErr.Tag()
	}
	return details
}

func invalidBody(c *fiber.Ctx) error {
	return utils.SendError(c, fiber.StatusBadRequest, "Invalid request body")
}
