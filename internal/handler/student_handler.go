package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/assignment-portal-api/internal/dto"
	"github.com/noah-isme/assignment-portal-api/internal/service"
	"github.com/noah-isme/assignment-portal-api/internal/utils"
)

// StudentHandler exposes the assignment view and the submission pipeline.
type StudentHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(service service.SubmissionService, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		service: service,
		logger:  logger.With().Str("component", "student_handler").Logger(),
	}
}

// Register attaches student endpoints to the router group.
func (h *StudentHandler) Register(router fiber.Router) {
	router.Get("/:id", h.view)
	router.Post("/:id/submit", h.submit)
	router.Get("/:id/check-submission", h.check)
}

func (h *StudentHandler) view(c *fiber.Ctx) error {
	view, err := h.service.StudentView(c.UserContext(), c.Params("id"))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "Assignment retrieved", view)
}

func (h *StudentHandler) submit(c *fiber.Ctx) error {
	var payload dto.SubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	result, err := h.service.Submit(c.UserContext(), c.Params("id"), payload, c.IP())
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "Submission received", result)
}

func (h *StudentHandler) check(c *fiber.Ctx) error {
	var query dto.CheckSubmissionQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "Invalid query parameters")
	}

	response, err := h.service.CheckSubmission(c.UserContext(), c.Params("id"), query)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "Submission status retrieved", response)
}
