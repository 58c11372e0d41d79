package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/assignment-portal-api/internal/dto"
	"github.com/noah-isme/assignment-portal-api/internal/service"
	"github.com/noah-isme/assignment-portal-api/internal/utils"
)

// AdminAssignmentHandler exposes assignment management for administrators.
type AdminAssignmentHandler struct {
	assignments service.AdminAssignmentService
	statistics  service.StatisticsService
	baseURL     string
	logger      zerolog.Logger
}

// NewAdminAssignmentHandler constructs the handler. baseURL prefixes student links.
func NewAdminAssignmentHandler(assignments service.AdminAssignmentService, statistics service.StatisticsService, baseURL string, logger zerolog.Logger) *AdminAssignmentHandler {
	return &AdminAssignmentHandler{
		assignments: assignments,
		statistics:  statistics,
		baseURL:     strings.TrimRight(baseURL, "/"),
		logger:      logger.With().Str("component", "admin_assignment_handler").Logger(),
	}
}

// Register attaches admin assignment endpoints to a session protected router.
func (h *AdminAssignmentHandler) Register(router fiber.Router) {
	router.Get("/assignments", h.list)
	router.Post("/assignments", h.create)
	router.Get("/assignments/:id", h.get)
	router.Put("/assignments/:id", h.update)
	router.Delete("/assignments/:id", h.delete)
	router.Get("/assignments/:id/statistics", h.statisticsFor)
	router.Get("/export/:id", h.export)
	router.Post("/batch", h.batch)
}

func (h *AdminAssignmentHandler) list(c *fiber.Ctx) error {
	index, err := h.assignments.List(c.UserContext())
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "Assignments retrieved", index)
}

func (h *AdminAssignmentHandler) get(c *fiber.Ctx) error {
	assignment, err := h.assignments.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "Assignment retrieved", assignment)
}

func (h *AdminAssignmentHandler) create(c *fiber.Ctx) error {
	var payload dto.AssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	assignment, err := h.assignments.Create(c.UserContext(), payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "Assignment created successfully", dto.AssignmentCreatedResponse{
		AssignmentID: assignment.ID,
		StudentURL:   h.baseURL + "/student/" + assignment.ID,
	})
}

func (h *AdminAssignmentHandler) update(c *fiber.Ctx) error {
	var payload dto.AssignmentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	assignment, err := h.assignments.Update(c.UserContext(), c.Params("id"), payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "Assignment updated successfully", assignment)
}

func (h *AdminAssignmentHandler) delete(c *fiber.Ctx) error {
	if err := h.assignments.Delete(c.UserContext(), c.Params("id")); err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "Assignment deleted successfully", nil)
}

func (h *AdminAssignmentHandler) statisticsFor(c *fiber.Ctx) error {
	response, err := h.statistics.Statistics(c.UserContext(), c.Params("id"))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "Statistics retrieved", response)
}

func (h *AdminAssignmentHandler) export(c *fiber.Ctx) error {
	response, err := h.assignments.Export(c.UserContext(), c.Params("id"))
	if err != nil {
		return handleError(c, h.logger, err)
	}

	c.Set(fiber.HeaderContentDisposition, `attachment; filename="assignment-`+response.Assignment.ID+`.json"`)
	return utils.SendSuccess(c, "Export ready", response)
}

func (h *AdminAssignmentHandler) batch(c *fiber.Ctx) error {
	var payload dto.BatchRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	results, err := h.assignments.Batch(c.UserContext(), payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "Batch operation completed", results)
}
