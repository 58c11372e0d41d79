package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/assignment-portal-api/internal/service"
	"github.com/noah-isme/assignment-portal-api/internal/utils"
)

// SystemHandler exposes health and monitoring endpoints.
type SystemHandler struct {
	service service.SystemService
	logger  zerolog.Logger
}

// NewSystemHandler constructs the handler.
func NewSystemHandler(service service.SystemService, logger zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		service: service,
		logger:  logger.With().Str("component", "system_handler").Logger(),
	}
}

// RegisterPublic attaches unauthenticated health and summary endpoints.
func (h *SystemHandler) RegisterPublic(router fiber.Router) {
	router.Get("/health", h.health)
	router.Get("/stats", h.stats)
	router.Get("/validate-assignment/:id", h.validateAssignment)
}

// RegisterAdmin attaches monitoring endpoints to a session protected router.
func (h *SystemHandler) RegisterAdmin(router fiber.Router) {
	router.Get("/system/status", h.status)
	router.Get("/system/failed-operations", h.failedOperations)
}

func (h *SystemHandler) health(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "service healthy", h.service.Health(c.UserContext()))
}

func (h *SystemHandler) stats(c *fiber.Ctx) error {
	response, err := h.service.PublicStats(c.UserContext())
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "Statistics retrieved", response)
}

func (h *SystemHandler) validateAssignment(c *fiber.Ctx) error {
	response, err := h.service.ValidateAssignment(c.UserContext(), c.Params("id"))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "Assignment checked", response)
}

func (h *SystemHandler) status(c *fiber.Ctx) error {
	response, err := h.service.Status(c.UserContext())
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "System status retrieved", response)
}

func (h *SystemHandler) failedOperations(c *fiber.Ctx) error {
	hours, err := parseQueryInt(c, "hours")
	if err != nil || hours < 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "hours must be a positive integer")
	}

	response, err := h.service.FailedOperations(c.UserContext(), hours)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "Failed operations retrieved", response)
}
