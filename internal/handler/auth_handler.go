package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/assignment-portal-api/internal/dto"
	"github.com/noah-isme/assignment-portal-api/internal/middleware"
	"github.com/noah-isme/assignment-portal-api/internal/service"
	"github.com/noah-isme/assignment-portal-api/internal/utils"
)

// AuthHandler exposes admin login, logout and session verification.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register attaches auth endpoints. They are reachable without a session.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Post("/login", h.login)
	router.Post("/logout", h.logout)
	router.Get("/verify", h.verify)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	response, err := h.service.Login(c.UserContext(), payload, c.Get(fiber.HeaderUserAgent), c.IP())
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "Login successful", response)
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	sessionID := middleware.SessionID(c)
	if sessionID == "" {
		var payload dto.LogoutRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&payload); err != nil {
				return invalidBody(c)
			}
		}
		sessionID = payload.SessionID
	}

	if err := h.service.Logout(c.UserContext(), sessionID); err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "Logout successful", nil)
}

func (h *AuthHandler) verify(c *fiber.Ctx) error {
	info, err := h.service.Verify(c.UserContext(), middleware.SessionID(c))
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "Session valid", info)
}
