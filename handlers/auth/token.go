package auth

import (
	"github.com/gofiber/fiber/v2"
	authutil "github.com/sahilchouksey/course-catalog/utils/auth"
	"github.com/sahilchouksey/course-catalog/utils/middleware"
	"github.com/sahilchouksey/course-catalog/utils/response"
)

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest optionally carries the refresh token to revoke with the access token
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshToken rotates a refresh token: the old one is revoked and a new pair issued
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	claims, err := h.jwtManager.ParseOfType(req.RefreshToken, authutil.TokenTypeRefresh)
	if err != nil {
		return response.Unauthorized(c, "Invalid or expired refresh token")
	}

	revoked, err := h.blacklist.IsRevoked(c.UserContext(), claims.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to check token status")
	}
	if revoked {
		return response.Unauthorized(c, "Token has been revoked")
	}

	user, err := h.users.Get(c.UserContext(), claims.UserID)
	if err != nil {
		return response.Unauthorized(c, "User not found")
	}
	if user.TokenVersion != claims.TokenVersion {
		return response.Unauthorized(c, "Token has been invalidated")
	}

	if err := h.blacklist.Revoke(c.UserContext(), claims, "token_refresh"); err != nil {
		// the old token still expires on its own
		h.log.Warn("failed to revoke rotated refresh token", "user_id", user.ID, "error", err)
	}
	return h.issue(c, user, fiber.StatusOK)
}

// Logout blacklists the access token and, when given, the refresh token
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	if err := h.blacklist.Revoke(c.UserContext(), claims, "logout"); err != nil {
		return response.InternalServerError(c, "Failed to logout")
	}

	var req LogoutRequest
	if len(c.Body()) > 0 && c.BodyParser(&req) == nil && req.RefreshToken != "" {
		refresh, err := h.jwtManager.ParseOfType(req.RefreshToken, authutil.TokenTypeRefresh)
		if err == nil && refresh.UserID == claims.UserID {
			if err := h.blacklist.Revoke(c.UserContext(), refresh, "logout"); err != nil {
				h.log.Warn("failed to revoke refresh token on logout", "user_id", claims.UserID, "error", err)
			}
		}
	}

	return response.SuccessWithMessage(c, "Successfully logged out", nil)
}
