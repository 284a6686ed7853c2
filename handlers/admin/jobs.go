package admin

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-catalog/database"
	"github.com/sahilchouksey/course-catalog/model"
	"github.com/sahilchouksey/course-catalog/utils/response"
)

// ListCronJobLogs pages through background job runs, newest first
// GET /admin/jobs
func ListCronJobLogs(c *fiber.Ctx, store database.Storage) error {
	page, limit := response.PageParams(c)

	query := store.GetDB().WithContext(c.UserContext()).Model(&model.CronJobLog{})
	if name := c.Query("job"); name != "" {
		query = query.Where("job_name = ?", name)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count job logs")
	}

	var logs []model.CronJobLog
	err := query.Order("started_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch job logs")
	}
	return response.Paginated(c, logs, response.CalculatePagination(page, limit, total))
}
