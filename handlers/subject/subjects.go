package subject

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-catalog/handlers"
	"github.com/sahilchouksey/course-catalog/services"
	"github.com/sahilchouksey/course-catalog/utils/logger"
	"github.com/sahilchouksey/course-catalog/utils/response"
	"github.com/sahilchouksey/course-catalog/utils/validation"
)

// SubjectHandler handles subject-related requests
type SubjectHandler struct {
	validator      *validation.Validator
	subjectService *services.SubjectService
	log            *logger.Logger
}

// NewSubjectHandler creates a new subject handler
func NewSubjectHandler(subjectService *services.SubjectService, log *logger.Logger) *SubjectHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &SubjectHandler{
		validator:      validation.NewValidator(),
		subjectService: subjectService,
		log:            log,
	}
}

// CreateSubjectRequest represents the request body for creating a subject
type CreateSubjectRequest struct {
	Title string `json:"title" validate:"required,min=2,max=200"`
	Slug  string `json:"slug" validate:"omitempty,slug,max=200"` // derived from title when empty
}

// UpdateSubjectRequest represents the request body for updating a subject
type UpdateSubjectRequest struct {
	Title *string `json:"title" validate:"omitempty,min=2,max=200"`
	Slug  *string `json:"slug" validate:"omitempty,slug,max=200"`
}

// ListSubjects handles GET /api/v1/subjects
func (h *SubjectHandler) ListSubjects(c *fiber.Ctx) error {
	page, limit := response.PageParams(c)

	subjects, total, err := h.subjectService.List(c.UserContext(), c.Query("search"), page, limit)
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to fetch subjects")
	}
	return response.Paginated(c, subjects, response.CalculatePagination(page, limit, total))
}

// GetSubject handles GET /api/v1/subjects/:id
func (h *SubjectHandler) GetSubject(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid subject ID")
	}

	subject, err := h.subjectService.Get(c.UserContext(), id)
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to fetch subject")
	}
	return response.Success(c, subject)
}

// CreateSubject handles POST /api/v1/subjects (admin)
func (h *SubjectHandler) CreateSubject(c *fiber.Ctx) error {
	var req CreateSubjectRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	subject, err := h.subjectService.Create(c.UserContext(), services.SubjectInput{
		Title: validation.SanitizeString(req.Title),
		Slug:  req.Slug,
	})
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to create subject")
	}
	return response.Created(c, subject)
}

// UpdateSubject handles PUT /api/v1/subjects/:id (admin)
func (h *SubjectHandler) UpdateSubject(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid subject ID")
	}

	var req UpdateSubjectRequest
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

	subject, err := h.subjectService.Update(c.UserContext(), id, services.SubjectUpdate{
		Title: req.Title,
		Slug:  req.Slug,
	})
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to update subject")
	}
	return response.Success(c, subject)
}

// DeleteSubject handles DELETE /api/v1/subjects/:id (admin)
func (h *SubjectHandler) DeleteSubject(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid subject ID")
	}

	if err := h.subjectService.Delete(c.UserContext(), id); err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to delete subject")
	}
	return response.SuccessWithMessage(c, "Subject deleted successfully", nil)
}
