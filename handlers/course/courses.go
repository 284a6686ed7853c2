package course

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-catalog/handlers"
	"github.com/sahilchouksey/course-catalog/services"
	"github.com/sahilchouksey/course-catalog/utils/logger"
	"github.com/sahilchouksey/course-catalog/utils/middleware"
	"github.com/sahilchouksey/course-catalog/utils/response"
	"github.com/sahilchouksey/course-catalog/utils/validation"
)

// CourseHandler handles course-related requests
type CourseHandler struct {
	validator     *validation.Validator
	courseService *services.CourseService
	log           *logger.Logger
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(courseService *services.CourseService, log *logger.Logger) *CourseHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &CourseHandler{
		validator:     validation.NewValidator(),
		courseService: courseService,
		log:           log,
	}
}

// InlineModuleRequest is one module row edited together with its course
type InlineModuleRequest struct {
	ID          *uint  `json:"id" validate:"omitempty,min=1"`
	Title       string `json:"title" validate:"required_without=Delete,max=200"`
	Description string `json:"description" validate:"omitempty,max=5000"`
	Order       *uint  `json:"order" validate:"omitempty,max=2147483647"`
	Delete      bool   `json:"delete"`
}

// CreateCourseRequest represents the request body for creating a course
type CreateCourseRequest struct {
	SubjectID uint                  `json:"subject_id" validate:"required,min=1"`
	Title     string                `json:"title" validate:"required,min=2,max=200"`
	Slug      string                `json:"slug" validate:"omitempty,slug,max=200"`
	Overview  string                `json:"overview" validate:"omitempty,max=20000"`
	Modules   []InlineModuleRequest `json:"modules" validate:"omitempty,dive"`
}

// UpdateCourseRequest represents the request body for updating a course
type UpdateCourseRequest struct {
	SubjectID *uint                 `json:"subject_id" validate:"omitempty,min=1"`
	Title     *string               `json:"title" validate:"omitempty,min=2,max=200"`
	Slug      *string               `json:"slug" validate:"omitempty,slug,max=200"`
	Overview  *string               `json:"overview" validate:"omitempty,max=20000"`
	Modules   []InlineModuleRequest `json:"modules" validate:"omitempty,dive"`
}

func inlineModules(rows []InlineModuleRequest) []services.InlineModule {
	out := make([]services.InlineModule, 0, len(rows))
	for _, r := range rows {
		out = append(out, services.InlineModule{
			ID:          r.ID,
			Title:       validation.SanitizeString(r.Title),
			Description: r.Description,
			Order:       r.Order,
			Delete:      r.Delete,
		})
	}
	return out
}

// parseTime accepts a date (2006-01-02) or an RFC 3339 timestamp
func parseTime(value string) (*time.Time, bool) {
	if value == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, true
		}
	}
	return nil, false
}

// ListCourses handles GET /api/v1/courses
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	page, limit := response.PageParams(c)

	after, ok := parseTime(c.Query("created_after"))
	if !ok {
		return response.BadRequest(c, "Invalid created_after; use YYYY-MM-DD or RFC 3339")
	}
	before, ok := parseTime(c.Query("created_before"))
	if !ok {
		return response.BadRequest(c, "Invalid created_before; use YYYY-MM-DD or RFC 3339")
	}

	filter := services.CourseFilter{
		SubjectID:     uint(c.QueryInt("subject_id", 0)),
		OwnerID:       uint(c.QueryInt("owner_id", 0)),
		CreatedAfter:  after,
		CreatedBefore: before,
		Search:        c.Query("search"),
		Page:          page,
		Limit:         limit,
	}

	courses, total, err := h.courseService.List(c.UserContext(), filter)
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to fetch courses")
	}
	return response.Paginated(c, courses, response.CalculatePagination(page, limit, total))
}

// GetCourse handles GET /api/v1/courses/:id
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	course, err := h.courseService.Get(c.UserContext(), id)
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to fetch course")
	}
	return response.Success(c, course)
}

// CreateCourse handles POST /api/v1/courses
func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	var req CreateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	course, err := h.courseService.Create(c.UserContext(), middleware.GetActor(c), services.CourseInput{
		SubjectID: req.SubjectID,
		Title:     validation.SanitizeString(req.Title),
		Slug:      req.Slug,
		Overview:  req.Overview,
		Modules:   inlineModules(req.Modules),
	})
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to create course")
	}
	return response.Created(c, course)
}

// UpdateCourse handles PUT /api/v1/courses/:id, including inline module edits
func (h *CourseHandler) UpdateCourse(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req UpdateCourseRequest
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

	course, err := h.courseService.Update(c.UserContext(), middleware.GetActor(c), id, services.CourseUpdate{
		SubjectID: req.SubjectID,
		Title:     req.Title,
		Slug:      req.Slug,
		Overview:  req.Overview,
		Modules:   inlineModules(req.Modules),
	})
	if err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to update course")
	}
	return response.Success(c, course)
}

// DeleteCourse handles DELETE /api/v1/courses/:id
func (h *CourseHandler) DeleteCourse(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	if err := h.courseService.Delete(c.UserContext(), middleware.GetActor(c), id); err != nil {
		return handlers.ServiceError(c, h.log, err, "Failed to delete course")
	}
	return response.SuccessWithMessage(c, "Course deleted successfully", nil)
}
