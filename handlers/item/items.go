package item

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-catalog/handlers"
	"github.com/sahilchouksey/course-catalog/model"
	"github.com/sahilchouksey/course-catalog/services"
	"github.com/sahilchouksey/course-catalog/utils/logger"
	"github.com/sahilchouksey/course-catalog/utils/middleware"
	"github.com/sahilchouksey/course-catalog/utils/response"
	"github.com/sahilchouksey/course-catalog/utils/validation"
	"gorm.io/datatypes"
)

// ItemHandler handles the text, video, image and file items behind content rows
type ItemHandler struct {
	validator   *validation.Validator
	itemService *services.ItemService
	registry    *services.ItemRegistry
	maxUpload   int64
	log         *logger.Logger
}

// NewItemHandler creates a new item handler; maxUpload caps uploaded file size in bytes
func NewItemHandler(itemService *services.ItemService, registry *services.ItemRegistry, maxUpload int64, log *logger.Logger) *ItemHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ItemHandler{
		validator:   validation.NewValidator(),
		itemService: itemService,
		registry:    registry,
		maxUpload:   maxUpload,
		log:         log,
	}
}

// ItemRequest is the body for a new item: JSON for text and video,
// multipart/form-data with a "file" part for image and file.
type ItemRequest struct {
	Title    string          `json:"title" form:"title" validate:"required,min=1,max=250"`
	Content  string          `json:"content" form:"content"`
	URL      string          `json:"url" form:"url" validate:"omitempty,url,max=2048"`
	Metadata json.RawMessage `json:"metadata" form:"-"`
	Order    *uint           `json:"order" form:"-" validate:"omitempty,max=2147483647"`
}

// UpdateItemRequest carries the JSON fields to change; omitted fields are kept
type UpdateItemRequest struct {
	Title    *string         `json:"title" validate:"omitempty,min=1,max=250"`
	Content  *string         `json:"content"`
	URL      *string         `json:"url" validate:"omitempty,url,max=2048"`
	Metadata json.RawMessage `json:"metadata"`
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}

// Tag reads and checks the :item_type route parameter
func (h *ItemHandler) Tag(c *fiber.Ctx) (model.ItemType, error) {
	tag := model.ItemType(strings.ToLower(c.Params("item_type")))
	if !h.registry.Known(tag) {
		return "", fmt.Errorf("%w: %q", services.ErrUnknownItemType, tag)
	}
	return tag, nil
}

// readUpload returns the "file" part, or nil when the request has none
func (h *ItemHandler) readUpload(c *fiber.Ctx) (*services.Upload, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	header, err := c.FormFile("file")
	if err != nil {
		return nil, nil
	}
	if h.maxUpload > 0 && header.Size > h.maxUpload {
		return nil, fiber.NewError(fiber.StatusRequestEntityTooLarge, fmt.Sprintf("File exceeds %d bytes", h.maxUpload))
	}

	f, err := header.Open()
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Could not read uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Could not read uploaded file")
	}
	return &services.Upload{Filename: header.Filename, Data: data}, nil
}

// ParseItemInput reads a new item of type tag from the request body. It is
// shared with the create-content-with-item endpoint, which also honours order.
func (h *ItemHandler) ParseItemInput(c *fiber.Ctx, tag model.ItemType) (services.ItemInput, *uint, error) {
	var req ItemRequest
	if err := c.BodyParser(&req); err != nil {
		return services.ItemInput{}, nil, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if isMultipart(c) {
		req.Metadata = json.RawMessage(c.FormValue("metadata"))
		if raw := c.FormValue("order"); raw != "" {
			order, err := strconv.ParseUint(raw, 10, 32)
			if err != nil {
				return services.ItemInput{}, nil, fiber.NewError(fiber.StatusBadRequest, "Invalid order")
			}
			o := uint(order)
			req.Order = &o
		}
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return services.ItemInput{}, nil, err
	}

	in := services.ItemInput{Title: validation.SanitizeString(req.Title)}
	switch tag {
	case model.ItemTypeText:
		if strings.TrimSpace(req.Content) == "" {
			return in, nil, fiber.NewError(fiber.StatusUnprocessableEntity, "content is required for text items")
		}
		in.Content = req.Content
	case model.ItemTypeVideo:
		if req.URL == "" {
			return in, nil, fiber.NewError(fiber.StatusUnprocessableEntity, "url is required for video items")
		}
		in.URL = req.URL
		if len(req.Metadata) > 0 {
			if !json.Valid(req.Metadata) {
				return in, nil, fiber.NewError(fiber.StatusBadRequest, "metadata must be JSON")
			}
			in.Metadata = datatypes.JSON(req.Metadata)
		}
	default:
		upload, err := h.readUpload(c)
		if err != nil {
			return in, nil, err
		}
		in.File = upload
	}
	return in, req.Order, nil
}

// RequestError writes a parse or validation error from ParseItemInput
func (h *ItemHandler) RequestError(c *fiber.Ctx, err error) error {
	if fe, ok := err.(*fiber.Error); ok {
		code := "BAD_REQUEST"
		switch fe.Code {
		case fiber.StatusUnprocessableEntity:
			code = "VALIDATION_ERROR"
		case fiber.StatusRequestEntityTooLarge:
			code = "PAYLOAD_TOO_LARGE"
		}
		return response.Error(c, fe.Code, fe.Message, code)
	}
	return response.ValidationError(c, err)
}

// ListItems handles GET /api/v1/items/:item_type
func (h *ItemHandler) ListItems(c *fiber.Ctx) error {
	tag, err := h.Tag(c)
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to fetch items")
	}
	page, limit := response.PageParams(c)

	items, total, err := h.itemService.List(c.UserContext(), middleware.GetActor(c), tag, page, limit)
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to fetch items")
	}
	return response.Paginated(c, items, response.CalculatePagination(page, limit, total))
}

// GetItem handles GET /api/v1/items/:item_type/:id
func (h *ItemHandler) GetItem(c *fiber.Ctx) error {
	tag, err := h.Tag(c)
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to fetch item")
	}
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid item ID")
	}

	item, err := h.itemService.Get(c.UserContext(), tag, id)
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to fetch item")
	}
	return response.Success(c, item)
}

// CreateItem handles POST /api/v1/items/:item_type
func (h *ItemHandler) CreateItem(c *fiber.Ctx) error {
	tag, err := h.Tag(c)
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to create item")
	}
	in, _, err := h.ParseItemInput(c, tag)
	if err != nil {
		return h.RequestError(c, err)
	}

	item, err := h.itemService.Create(c.UserContext(), middleware.GetActor(c), tag, in)
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to create item")
	}
	return response.Created(c, item)
}

// UpdateItem handles PUT /api/v1/items/:item_type/:id. A multipart request
// with a "file" part replaces the stored object.
func (h *ItemHandler) UpdateItem(c *fiber.Ctx) error {
	tag, err := h.Tag(c)
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to update item")
	}
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid item ID")
	}

	var in services.ItemUpdate
	if isMultipart(c) {
		if title := c.FormValue("title"); title != "" {
			title = validation.SanitizeString(title)
			in.Title = &title
		}
		if in.File, err = h.readUpload(c); err != nil {
			return h.RequestError(c, err)
		}
	} else {
		var req UpdateItemRequest
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
		if err := h.validator.ValidateStruct(req); err != nil {
			return response.ValidationError(c, err)
		}
		if req.Title != nil {
			title := validation.SanitizeString(*req.Title)
			req.Title = &title
		}
		if len(req.Metadata) > 0 {
			in.Metadata = datatypes.JSON(req.Metadata)
		}
		in.Title, in.Content, in.URL = req.Title, req.Content, req.URL
	}

	item, err := h.itemService.Update(c.UserContext(), middleware.GetActor(c), tag, id, in)
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to update item")
	}
	return response.Success(c, item)
}

// DeleteItem handles DELETE /api/v1/items/:item_type/:id. Content rows that
// point at the item are left in place.
func (h *ItemHandler) DeleteItem(c *fiber.Ctx) error {
	tag, err := h.Tag(c)
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to delete item")
	}
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid item ID")
	}

	if err := h.itemService.Delete(c.UserContext(), middleware.GetActor(c), tag, id); err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to delete item")
	}
	return response.SuccessWithMessage(c, "Item deleted successfully", nil)
}
