package content

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-catalog/handlers"
	"github.com/sahilchouksey/course-catalog/handlers/item"
	"github.com/sahilchouksey/course-catalog/model"
	"github.com/sahilchouksey/course-catalog/services"
	"github.com/sahilchouksey/course-catalog/utils/logger"
	"github.com/sahilchouksey/course-catalog/utils/middleware"
	"github.com/sahilchouksey/course-catalog/utils/response"
	"github.com/sahilchouksey/course-catalog/utils/validation"
)

// ContentHandler handles the ordered content rows of a module
type ContentHandler struct {
	validator      *validation.Validator
	contentService *services.ContentService
	items          *item.ItemHandler
	log            *logger.Logger
}

// NewContentHandler creates a new content handler. items parses the payload
// for content created together with a new item.
func NewContentHandler(contentService *services.ContentService, items *item.ItemHandler, log *logger.Logger) *ContentHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ContentHandler{
		validator:      validation.NewValidator(),
		contentService: contentService,
		items:          items,
		log:            log,
	}
}

// CreateContentRequest attaches an existing item. Omitting order appends.
type CreateContentRequest struct {
	ItemType string `json:"item_type" validate:"required,max=20"`
	ItemID   uint   `json:"item_id" validate:"required,min=1"`
	Order    *uint  `json:"order" validate:"omitempty,max=2147483647"`
}

// ReorderRequest lists content ids in their new display order
type ReorderRequest struct {
	IDs []uint `json:"ids" validate:"required,min=1,dive,min=1"`
}

// ListContents handles GET /api/v1/modules/:module_id/contents
func (h *ContentHandler) ListContents(c *fiber.Ctx) error {
	moduleID, ok := handlers.ParamID(c, "module_id")
	if !ok {
		return response.BadRequest(c, "Invalid module ID")
	}

	contents, err := h.contentService.List(c.UserContext(), moduleID)
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to fetch contents")
	}
	return response.Success(c, contents)
}

// GetContent handles GET /api/v1/contents/:id; a missing item is a 404
func (h *ContentHandler) GetContent(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid content ID")
	}

	content, err := h.contentService.Get(c.UserContext(), id)
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to fetch content")
	}
	return response.Success(c, content)
}

// CreateContent handles POST /api/v1/modules/:module_id/contents
func (h *ContentHandler) CreateContent(c *fiber.Ctx) error {
	moduleID, ok := handlers.ParamID(c, "module_id")
	if !ok {
		return response.BadRequest(c, "Invalid module ID")
	}

	var req CreateContentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	content, err := h.contentService.Create(c.UserContext(), middleware.GetActor(c), moduleID, services.ContentInput{
		ItemType: model.ItemType(req.ItemType),
		ItemID:   req.ItemID,
		Order:    req.Order,
	})
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to create content")
	}
	return response.Created(c, content)
}

// CreateContentWithItem handles POST /api/v1/modules/:module_id/contents/:item_type.
// The body is the new item; an optional order field places the content row.
func (h *ContentHandler) CreateContentWithItem(c *fiber.Ctx) error {
	moduleID, ok := handlers.ParamID(c, "module_id")
	if !ok {
		return response.BadRequest(c, "Invalid module ID")
	}
	tag, err := h.items.Tag(c)
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to create content")
	}

	in, order, err := h.items.ParseItemInput(c, tag)
	if err != nil {
		return h.items.RequestError(c, err)
	}

	content, err := h.contentService.CreateWithItem(c.UserContext(), middleware.GetActor(c), moduleID, tag, in, order)
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to create content")
	}
	return response.Created(c, content)
}

// DeleteContent handles DELETE /api/v1/contents/:id; the item is kept
func (h *ContentHandler) DeleteContent(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid content ID")
	}

	if err := h.contentService.Delete(c.UserContext(), middleware.GetActor(c), id); err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to delete content")
	}
	return response.SuccessWithMessage(c, "Content deleted successfully", nil)
}

// ReorderContents handles PUT /api/v1/modules/:module_id/contents/order
func (h *ContentHandler) ReorderContents(c *fiber.Ctx) error {
	moduleID, ok := handlers.ParamID(c, "module_id")
	if !ok {
		return response.BadRequest(c, "Invalid module ID")
	}

	var req ReorderRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	contents, err := h.contentService.Reorder(c.UserContext(), middleware.GetActor(c), moduleID, req.IDs)
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to reorder contents")
	}
	return response.Success(c, contents)
}
