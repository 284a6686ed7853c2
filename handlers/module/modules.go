package module

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-catalog/handlers"
	"github.com/sahilchouksey/course-catalog/services"
	"github.com/sahilchouksey/course-catalog/utils/logger"
	"github.com/sahilchouksey/course-catalog/utils/middleware"
	"github.com/sahilchouksey/course-catalog/utils/response"
	"github.com/sahilchouksey/course-catalog/utils/validation"
)

// ModuleHandler handles module-related requests
type ModuleHandler struct {
	validator     *validation.Validator
	moduleService *services.ModuleService
	log           *logger.Logger
}

// NewModuleHandler creates a new module handler
func NewModuleHandler(moduleService *services.ModuleService, log *logger.Logger) *ModuleHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ModuleHandler{
		validator:     validation.NewValidator(),
		moduleService: moduleService,
		log:           log,
	}
}

// CreateModuleRequest represents the request body for creating a module.
// Omitting order appends the module after its siblings.
type CreateModuleRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"omitempty,max=5000"`
	Order       *uint  `json:"order" validate:"omitempty,max=2147483647"`
}

// UpdateModuleRequest represents the request body for updating a module
type UpdateModuleRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Order       *uint   `json:"order" validate:"omitempty,max=2147483647"`
}

// ReorderRequest lists child ids in their new display order
type ReorderRequest struct {
	IDs []uint `json:"ids" validate:"required,min=1,dive,min=1"`
}

// ListModules handles GET /api/v1/courses/:course_id/modules
func (h *ModuleHandler) ListModules(c *fiber.Ctx) error {
	courseID, ok := handlers.ParamID(c, "course_id")
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	modules, err := h.moduleService.List(c.UserContext(), courseID)
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to fetch modules")
	}
	return response.Success(c, modules)
}

// GetModule handles GET /api/v1/modules/:id
func (h *ModuleHandler) GetModule(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid module ID")
	}

	module, err := h.moduleService.Get(c.UserContext(), id)
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to fetch module")
	}
	return response.Success(c, module)
}

// CreateModule handles POST /api/v1/courses/:course_id/modules
func (h *ModuleHandler) CreateModule(c *fiber.Ctx) error {
	courseID, ok := handlers.ParamID(c, "course_id")
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req CreateModuleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	module, err := h.moduleService.Create(c.UserContext(), middleware.GetActor(c), courseID, services.ModuleInput{
		Title:       validation.SanitizeString(req.Title),
		Description: req.Description,
		Order:       req.Order,
	})
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to create module")
	}
	return response.Created(c, module)
}

// UpdateModule handles PUT /api/v1/modules/:id
func (h *ModuleHandler) UpdateModule(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid module ID")
	}

	var req UpdateModuleRequest
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

	module, err := h.moduleService.Update(c.UserContext(), middleware.GetActor(c), id, services.ModuleUpdate{
		Title:       req.Title,
		Description: req.Description,
		Order:       req.Order,
	})
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to update module")
	}
	return response.Success(c, module)
}

// DeleteModule handles DELETE /api/v1/modules/:id. Contents go with it; items stay.
func (h *ModuleHandler) DeleteModule(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid module ID")
	}

	if err := h.moduleService.Delete(c.UserContext(), middleware.GetActor(c), id); err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to delete module")
	}
	return response.SuccessWithMessage(c, "Module deleted successfully", nil)
}

// ReorderModules handles PUT /api/v1/courses/:course_id/modules/order
func (h *ModuleHandler) ReorderModules(c *fiber.Ctx) error {
	courseID, ok := handlers.ParamID(c, "course_id")
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req ReorderRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	modules, err := h.moduleService.Reorder(c.UserContext(), middleware.GetActor(c), courseID, req.IDs)
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to reorder modules")
	}
	return response.Success(c, modules)
}
