package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-catalog/handlers"
	"github.com/sahilchouksey/course-catalog/services"
	"github.com/sahilchouksey/course-catalog/utils/middleware"
	"github.com/sahilchouksey/course-catalog/utils/response"
	"github.com/sahilchouksey/course-catalog/utils/validation"
)

// UpdateProfileRequest represents a profile update; omitted fields are kept
type UpdateProfileRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=100"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
}

// GetProfile returns the authenticated user
func (h *AuthHandler) GetProfile(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	return response.Success(c, toUserResponse(user))
}

// UpdateProfile changes name and password. A password change signs out every session.
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	if req.Password != nil {
		if ok, problems := validation.ValidatePassword(*req.Password); !ok {
			return response.ErrorWithDetails(c, fiber.StatusUnprocessableEntity,
				"Password is too weak", "VALIDATION_ERROR", fiber.Map{"password": strings.Join(problems, "; ")})
		}
	}
	if req.Name != nil {
		name := validation.SanitizeString(*req.Name)
		req.Name = &name
	}

	updated, err := h.users.UpdateProfile(c.UserContext(), user.ID, services.ProfileUpdate{
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to update profile")
	}
	return response.Success(c, toUserResponse(updated))
}
