package admin

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-catalog/database"
	"github.com/sahilchouksey/course-catalog/handlers"
	"github.com/sahilchouksey/course-catalog/model"
	"github.com/sahilchouksey/course-catalog/utils/response"
	"gorm.io/gorm"
)

// ListAuditLogs retrieves admin audit logs with pagination
// GET /admin/audit
func ListAuditLogs(c *fiber.Ctx, store database.Storage) error {
	page, limit := response.PageParams(c)

	query := store.GetDB().WithContext(c.UserContext()).Model(&model.AdminAuditLog{})
	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if resource := c.Query("resource"); resource != "" {
		query = query.Where("resource = ?", resource)
	}
	if adminID := c.QueryInt("admin_id", 0); adminID > 0 {
		query = query.Where("admin_id = ?", adminID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count audit logs")
	}

	var logs []model.AdminAuditLog
	err := query.Preload("Admin").
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch audit logs")
	}

	return response.Paginated(c, logs, response.CalculatePagination(page, limit, total))
}

// GetAuditLog retrieves a specific audit log entry
// GET /admin/audit/:id
func GetAuditLog(c *fiber.Ctx, store database.Storage) error {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid audit log ID")
	}

	var entry model.AdminAuditLog
	if err := store.GetDB().WithContext(c.UserContext()).Preload("Admin").First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Audit log not found")
		}
		return response.InternalServerError(c, "Failed to fetch audit log")
	}
	return response.Success(c, entry)
}
