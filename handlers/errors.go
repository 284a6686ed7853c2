package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-catalog/services"
	"github.com/sahilchouksey/course-catalog/utils/logger"
	"github.com/sahilchouksey/course-catalog/utils/response"
)

// ServiceError writes the response for an error returned by a catalog service.
// Unrecognized errors are logged and reported as 500 with fallback as message.
func ServiceError(c *fiber.Ctx, log *logger.Logger, err error, fallback string) error {
	switch {
	case errors.Is(err, services.ErrSubjectNotFound),
		errors.Is(err, services.ErrCourseNotFound),
		errors.Is(err, services.ErrModuleNotFound),
		errors.Is(err, services.ErrContentNotFound),
		errors.Is(err, services.ErrItemNotFound),
		errors.Is(err, services.ErrUserNotFound):
		return response.NotFound(c, capitalize(err.Error()))

	case errors.Is(err, services.ErrUnknownItemType),
		errors.Is(err, services.ErrInvalidOrder),
		errors.Is(err, services.ErrOrderOutOfRange),
		errors.Is(err, services.ErrInvalidSlug),
		errors.Is(err, services.ErrEmptyUpload):
		return response.BadRequest(c, capitalize(err.Error()))

	case errors.Is(err, services.ErrSlugTaken),
		errors.Is(err, services.ErrSubjectHasCourses),
		errors.Is(err, services.ErrEmailTaken):
		return response.Conflict(c, capitalize(err.Error()))

	case errors.Is(err, services.ErrForbidden):
		return response.Forbidden(c, capitalize(err.Error()))

	case errors.Is(err, services.ErrBadCredentials):
		return response.Unauthorized(c, capitalize(err.Error()))

	case errors.Is(err, services.ErrUnsupportedMedia):
		return response.UnsupportedMediaType(c, capitalize(err.Error()))

	case errors.Is(err, services.ErrStorageDisabled):
		return response.ServiceUnavailable(c, capitalize(err.Error()))
	}

	if log != nil {
		log.Error(fallback, "path", c.Path(), "error", err)
	}
	return response.InternalServerError(c, fallback)
}

// ParamID reads a positive integer route parameter
func ParamID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
