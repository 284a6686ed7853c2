package admin

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-catalog/database"
	"github.com/sahilchouksey/course-catalog/model"
	"github.com/sahilchouksey/course-catalog/services"
	"github.com/sahilchouksey/course-catalog/utils/response"
)

// CatalogOverview is the admin dashboard summary
type CatalogOverview struct {
	Users           int64            `json:"users"`
	Subjects        int64            `json:"subjects"`
	Courses         int64            `json:"courses"`
	Modules         int64            `json:"modules"`
	Contents        int64            `json:"contents"`
	Items           map[string]int64 `json:"items"`
	DanglingContent int              `json:"dangling_content"`
}

// GetCatalogOverview counts catalog rows and dangling content references
// GET /admin/overview
func GetCatalogOverview(c *fiber.Ctx, store database.Storage) error {
	db := store.GetDB().WithContext(c.UserContext())
	overview := CatalogOverview{Items: map[string]int64{}}

	counts := []struct {
		model interface{}
		dest  *int64
	}{
		{&model.User{}, &overview.Users},
		{&model.Subject{}, &overview.Subjects},
		{&model.Course{}, &overview.Courses},
		{&model.Module{}, &overview.Modules},
		{&model.Content{}, &overview.Contents},
	}
	for _, q := range counts {
		if err := db.Model(q.model).Count(q.dest).Error; err != nil {
			return response.InternalServerError(c, "Failed to compute overview")
		}
	}

	items := map[model.ItemType]interface{}{
		model.ItemTypeText:  &model.Text{},
		model.ItemTypeVideo: &model.Video{},
		model.ItemTypeImage: &model.Image{},
		model.ItemTypeFile:  &model.File{},
	}
	for tag, m := range items {
		var n int64
		if err := db.Model(m).Count(&n).Error; err != nil {
			return response.InternalServerError(c, "Failed to compute overview")
		}
		overview.Items[string(tag)] = n
	}

	dangling, err := services.NewItemRegistry(store.GetDB()).Dangling(c.UserContext())
	if err != nil {
		return response.InternalServerError(c, "Failed to compute overview")
	}
	overview.DanglingContent = len(dangling)

	return response.Success(c, overview)
}
