package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-catalog/handlers"
	"github.com/sahilchouksey/course-catalog/services"
	"github.com/sahilchouksey/course-catalog/utils/response"
)

// LoginRequest represents a user login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles user login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	ip := c.IP()
	user, err := h.users.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrBadCredentials) && h.bruteForceProtection != nil {
			h.bruteForceProtection.RecordFailedAttempt(c.UserContext(), ip)
		}
		return handlers.ServiceError(c, h.log, err, "Failed to log in")
	}

	if h.bruteForceProtection != nil {
		h.bruteForceProtection.RecordSuccessfulAttempt(c.UserContext(), ip)
	}
	return h.issue(c, user, fiber.StatusOK)
}
