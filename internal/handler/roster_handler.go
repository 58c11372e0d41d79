package handler

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/assignment-portal-api/internal/dto"
	"github.com/noah-isme/assignment-portal-api/internal/service"
	"github.com/noah-isme/assignment-portal-api/internal/utils"
)

// RosterHandler exposes the class roster.
type RosterHandler struct {
	service service.RosterService
	logger  zerolog.Logger
}

// NewRosterHandler constructs the handler.
func NewRosterHandler(service service.RosterService, logger zerolog.Logger) *RosterHandler {
	return &RosterHandler{
		service: service,
		logger:  logger.With().Str("component", "roster_handler").Logger(),
	}
}

// RegisterPublic attaches the read-only roster endpoint.
func (h *RosterHandler) RegisterPublic(router fiber.Router) {
	router.Get("/classes", h.list)
}

// RegisterAdmin attaches roster mutations to a session protected router.
func (h *RosterHandler) RegisterAdmin(router fiber.Router) {
	router.Get("/classes", h.list)
	router.Put("/classes", h.replace)
	router.Post("/classes", h.add)
	router.Delete("/classes/:name", h.remove)
}

func (h *RosterHandler) list(c *fiber.Ctx) error {
	response, err := h.service.List(c.UserContext())
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "Classes retrieved", response)
}

func (h *RosterHandler) replace(c *fiber.Ctx) error {
	var payload dto.ClassListRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	response, err := h.service.Replace(c.UserContext(), payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "Classes updated", response)
}

func (h *RosterHandler) add(c *fiber.Ctx) error {
	var payload dto.ClassCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	response, err := h.service.Add(c.UserContext(), payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "Class added", response)
}

func (h *RosterHandler) remove(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "Invalid class name")
	}

	response, err := h.service.Remove(c.UserContext(), name)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "Class removed", response)
}
