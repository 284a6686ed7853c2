package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-catalog/model"
	"github.com/sahilchouksey/course-catalog/services"
	"github.com/sahilchouksey/course-catalog/utils/auth"
	"github.com/sahilchouksey/course-catalog/utils/response"
	"gorm.io/gorm"
)

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	blacklist  *auth.Blacklist
	db         *gorm.DB
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *auth.JWTManager, blacklist *auth.Blacklist, db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		blacklist:  blacklist,
		db:         db,
	}
}

// authError is a rejected credential; status is 401 unless set
type authError struct {
	status  int
	message string
}

func (e *authError) Error() string { return e.message }

func unauthorized(message string) *authError {
	return &authError{status: fiber.StatusUnauthorized, message: message}
}

// authenticate validates the bearer token and loads its user
func (m *AuthMiddleware) authenticate(c *fiber.Ctx) (*auth.Claims, *model.User, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return nil, nil, unauthorized("Missing authorization token")
	}

	// Extract token from "Bearer <token>"
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, nil, unauthorized("Invalid authorization format")
	}

	claims, err := m.jwtManager.ParseOfType(parts[1], auth.TokenTypeAccess)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, nil, unauthorized("Token has expired")
		}
		return nil, nil, unauthorized("Invalid token")
	}

	revoked, err := m.blacklist.IsRevoked(c.UserContext(), claims.ID)
	if err != nil {
		return nil, nil, &authError{status: fiber.StatusInternalServerError, message: "Failed to check token status"}
	}
	if revoked {
		return nil, nil, unauthorized("Token has been revoked")
	}

	var user model.User
	if err := m.db.WithContext(c.UserContext()).First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, unauthorized("User not found")
		}
		return nil, nil, &authError{status: fiber.StatusInternalServerError, message: "Failed to load user"}
	}

	// A password change or a revoke-all bumps the version
	if user.TokenVersion != claims.TokenVersion {
		return nil, nil, unauthorized("Token has been invalidated")
	}

	return claims, &user, nil
}

func reject(c *fiber.Ctx, err error) error {
	var ae *authError
	if errors.As(err, &ae) && ae.status == fiber.StatusInternalServerError {
		return response.InternalServerError(c, ae.message)
	}
	return response.Unauthorized(c, err.Error())
}

func store(c *fiber.Ctx, claims *auth.Claims, user *model.User) {
	c.Locals("user_id", user.ID)
	c.Locals("user_role", user.Role)
	c.Locals("claims", claims)
	c.Locals("user", user)
}

// Required is middleware that requires a valid JWT token
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, user, err := m.authenticate(c)
		if err != nil {
			return reject(c, err)
		}
		store(c, claims, user)
		return c.Next()
	}
}

// Optional attaches the user when a valid token is present and never rejects
func (m *AuthMiddleware) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			return c.Next()
		}
		if claims, user, err := m.authenticate(c); err == nil {
			store(c, claims, user)
		}
		return c.Next()
	}
}

// RequireAdmin is Required plus an admin role check
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, user, err := m.authenticate(c)
		if err != nil {
			return reject(c, err)
		}
		// role is read from the database so demotions apply immediately
		if !user.IsAdmin() {
			return response.Forbidden(c, "Admin access required")
		}
		store(c, claims, user)
		return c.Next()
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("user_id").(uint)
	return id, ok
}

// GetUser extracts full user object from context
func GetUser(c *fiber.Ctx) (*model.User, bool) {
	u, ok := c.Locals("user").(*model.User)
	return u, ok && u != nil
}

// GetClaims extracts full claims from context
func GetClaims(c *fiber.Ctx) (*auth.Claims, bool) {
	claims, ok := c.Locals("claims").(*auth.Claims)
	return claims, ok && claims != nil
}

// GetActor returns the caller as a service actor; anonymous callers get the zero Actor
func GetActor(c *fiber.Ctx) services.Actor {
	user, ok := GetUser(c)
	if !ok {
		return services.Actor{}
	}
	return services.Actor{UserID: user.ID, IsAdmin: user.IsAdmin()}
}
