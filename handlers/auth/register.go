package auth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-catalog/handlers"
	"github.com/sahilchouksey/course-catalog/model"
	"github.com/sahilchouksey/course-catalog/services"
	authutil "github.com/sahilchouksey/course-catalog/utils/auth"
	"github.com/sahilchouksey/course-catalog/utils/logger"
	"github.com/sahilchouksey/course-catalog/utils/middleware"
	"github.com/sahilchouksey/course-catalog/utils/response"
	"github.com/sahilchouksey/course-catalog/utils/validation"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	users                *services.UserService
	jwtManager           *authutil.JWTManager
	blacklist            *authutil.Blacklist
	bruteForceProtection *middleware.BruteForceProtection
	validator            *validation.Validator
	log                  *logger.Logger
}

// NewAuthHandler creates a new auth handler; bruteForceProtection may be nil
func NewAuthHandler(users *services.UserService, jwtManager *authutil.JWTManager, blacklist *authutil.Blacklist, bruteForceProtection *middleware.BruteForceProtection, log *logger.Logger) *AuthHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthHandler{
		users:                users,
		jwtManager:           jwtManager,
		blacklist:            blacklist,
		bruteForceProtection: bruteForceProtection,
		validator:            validation.NewValidator(),
		log:                  log,
	}
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	User   UserResponse        `json:"user"`
	Tokens *authutil.TokenPair `json:"tokens"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (h *AuthHandler) issue(c *fiber.Ctx, user *model.User, status int) error {
	tokens, err := h.jwtManager.IssuePair(authutil.Subject{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
	})
	if err != nil {
		return response.InternalServerError(c, "Failed to generate tokens")
	}
	res := AuthResponse{User: toUserResponse(user), Tokens: tokens}
	if status == fiber.StatusCreated {
		return response.Created(c, res)
	}
	return response.Success(c, res)
}

// Register handles user registration
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	if ok, problems := validation.ValidatePassword(req.Password); !ok {
		return response.ErrorWithDetails(c, fiber.StatusUnprocessableEntity,
			"Password is too weak", "VALIDATION_ERROR", fiber.Map{"password": strings.Join(problems, "; ")})
	}

	user, err := h.users.Register(c.UserContext(), req.Email, req.Password, validation.SanitizeString(req.Name))
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to register user")
	}
	return h.issue(c, user, fiber.StatusCreated)
}
