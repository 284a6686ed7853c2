package admin

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-catalog/database"
	"github.com/sahilchouksey/course-catalog/handlers"
	"github.com/sahilchouksey/course-catalog/model"
	"github.com/sahilchouksey/course-catalog/utils/middleware"
	"github.com/sahilchouksey/course-catalog/utils/response"
	"github.com/sahilchouksey/course-catalog/utils/validation"
	"gorm.io/gorm"
)

// ListUsersRequest represents the query parameters for listing users
type ListUsersRequest struct {
	Role    string `query:"role"`
	Search  string `query:"search"`
	Sort    string `query:"sort"`
	SortDir string `query:"sort_dir"`
}

// UpdateRoleRequest represents the request body for changing a user's role
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=student admin"`
}

var sortableUserColumns = map[string]bool{
	"created_at": true,
	"email":      true,
	"name":       true,
}

var roleValidator = validation.NewValidator()

// ListUsers retrieves all users with pagination and filters
// GET /admin/users
func ListUsers(c *fiber.Ctx, store database.Storage) error {
	var req ListUsersRequest
	if err := c.QueryParser(&req); err != nil {
		return response.BadRequest(c, "Invalid query parameters")
	}
	page, limit := response.PageParams(c)

	if !sortableUserColumns[req.Sort] {
		req.Sort = "created_at"
	}
	if req.SortDir != "asc" {
		req.SortDir = "desc"
	}

	query := store.GetDB().WithContext(c.UserContext()).Model(&model.User{})
	if req.Role != "" {
		query = query.Where("role = ?", req.Role)
	}
	if req.Search != "" {
		pattern := "%" + validation.SanitizeString(req.Search) + "%"
		query = query.Where("LOWER(name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?)", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count users")
	}

	var users []model.User
	err := query.Order(req.Sort + " " + req.SortDir).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch users")
	}

	return response.Paginated(c, users, response.CalculatePagination(page, limit, total))
}

// UpdateUserRole promotes or demotes a user and signs them out everywhere
// PUT /admin/users/:id/role
func UpdateUserRole(c *fiber.Ctx, store database.Storage) error {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := roleValidator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if self, ok := middleware.GetUserID(c); ok && self == id && req.Role != model.RoleAdmin {
		return response.BadRequest(c, "Admins cannot demote themselves")
	}

	db := store.GetDB().WithContext(c.UserContext())
	var user model.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to fetch user")
	}

	if user.Role != req.Role {
		err := db.Model(&user).Updates(map[string]interface{}{
			"role":          req.Role,
			"token_version": gorm.Expr("token_version + ?", 1),
		}).Error
		if err != nil {
			return response.InternalServerError(c, "Failed to update role")
		}
		if err := db.First(&user, id).Error; err != nil {
			return response.InternalServerError(c, "Failed to fetch user")
		}
	}

	return response.Success(c, user)
}
