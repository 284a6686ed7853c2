package middleware

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-catalog/model"
	"github.com/sahilchouksey/course-catalog/utils/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditConfig describes one audited route
type AuditConfig struct {
	Action   string // e.g. "subject_update"
	Resource string // e.g. "subjects"
	// Snapshot returns an empty model to load the pre-change row into; nil skips old values
	Snapshot func() interface{}
}

// AdminAuditLog records mutations made by admins. It must run after an auth
// middleware; requests from non-admin users pass through unrecorded.
func AdminAuditLog(db *gorm.DB, log *logger.Logger, cfg AuditConfig) fiber.Handler {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *fiber.Ctx) error {
		admin, ok := GetUser(c)
		if !ok || !admin.IsAdmin() {
			return c.Next()
		}

		var resourceID uint
		if id, err := strconv.ParseUint(c.Params("id"), 10, 64); err == nil {
			resourceID = uint(id)
		}

		var oldValue datatypes.JSON
		if cfg.Snapshot != nil && resourceID > 0 {
			row := cfg.Snapshot()
			if err := db.WithContext(c.UserContext()).First(row, resourceID).Error; err == nil {
				oldValue = marshalJSON(row)
			}
		}

		var newValue datatypes.JSON
		if body := c.Body(); len(body) > 0 && json.Valid(body) {
			// fasthttp reuses the body buffer after the handler returns
			newValue = datatypes.JSON(append([]byte(nil), body...))
		}

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}
		if resourceID == 0 && status < fiber.StatusBadRequest {
			resourceID = createdID(c.Response().Body())
		}

		entry := model.AdminAuditLog{
			AdminID:     admin.ID,
			Action:      cfg.Action,
			Resource:    cfg.Resource,
			ResourceID:  resourceID,
			OldValue:    oldValue,
			NewValue:    newValue,
			StatusCode:  status,
			IPAddress:   c.IP(),
			UserAgent:   c.Get(fiber.HeaderUserAgent),
			Description: c.Method() + " " + c.Path(),
		}
		if dbErr := db.WithContext(c.UserContext()).Create(&entry).Error; dbErr != nil {
			log.Error("failed to write audit log", "action", cfg.Action, "error", dbErr)
		}

		return err
	}
}

// createdID reads data.id from a success envelope
func createdID(body []byte) uint {
	var envelope struct {
		Data struct {
			ID uint `json:"id"`
		} `json:"data"`
	}
	if json.Unmarshal(body, &envelope) != nil {
		return 0
	}
	return envelope.Data.ID
}

func marshalJSON(v interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}
