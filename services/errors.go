package services

import "errors"

var (
	ErrSubjectNotFound   = errors.New("subject not found")
	ErrCourseNotFound    = errors.New("course not found")
	ErrModuleNotFound    = errors.New("module not found")
	ErrContentNotFound   = errors.New("content not found")
	ErrItemNotFound      = errors.New("item not found")
	ErrUnknownItemType   = errors.New("unknown item type")
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailTaken        = errors.New("email already registered")
	ErrBadCredentials    = errors.New("invalid email or password")
	ErrSlugTaken         = errors.New("slug already in use")
	ErrInvalidSlug       = errors.New("slug must contain at least one letter or digit")
	ErrSubjectHasCourses = errors.New("subject still has courses")
	ErrForbidden         = errors.New("not allowed to modify this resource")
	ErrInvalidOrder      = errors.New("order list does not match the parent's children")
	ErrOrderOutOfRange   = errors.New("order is out of range")
	ErrStorageDisabled   = errors.New("object storage is not configured")
	ErrUnsupportedMedia  = errors.New("unsupported media type")
	ErrEmptyUpload       = errors.New("uploaded file is empty")
)
