package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sahilchouksey/course-catalog/model"
	"github.com/sahilchouksey/course-catalog/utils/validation"
	"gorm.io/gorm"
)

// first loads one row by id and maps a missing row to notFound
func first(ctx context.Context, db *gorm.DB, dest interface{}, id uint, notFound error) error {
	return mapNotFound(db.WithContext(ctx).First(dest, id).Error, notFound)
}

func mapNotFound(err, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}

// editableCourse loads a course and checks the actor may change it
func editableCourse(ctx context.Context, db *gorm.DB, actor Actor, courseID uint) (*model.Course, error) {
	var course model.Course
	if err := first(ctx, db, &course, courseID, ErrCourseNotFound); err != nil {
		return nil, err
	}
	if !actor.CanEdit(course.OwnerID) {
		return nil, ErrForbidden
	}
	return &course, nil
}

// editableModule loads a module and checks the actor may change its course
func editableModule(ctx context.Context, db *gorm.DB, actor Actor, moduleID uint) (*model.Module, error) {
	var module model.Module
	if err := first(ctx, db, &module, moduleID, ErrModuleNotFound); err != nil {
		return nil, err
	}
	if _, err := editableCourse(ctx, db, actor, module.CourseID); err != nil {
		return nil, err
	}
	return &module, nil
}

// resolveSlug returns the explicit slug or one derived from title
func resolveSlug(slug, title string) (string, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		slug = validation.Slugify(title)
	}
	if slug == "" {
		return "", ErrInvalidSlug
	}
	return slug, nil
}

// slugAvailable reports ErrSlugTaken when another row of model already uses slug
func slugAvailable(ctx context.Context, db *gorm.DB, m interface{}, slug string, exceptID uint) error {
	var count int64
	query := db.WithContext(ctx).Model(m).Where("slug = ?", slug)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check slug: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", ErrSlugTaken, slug)
	}
	return nil
}

// translateWriteError maps storage-level uniqueness violations onto ErrSlugTaken
func translateWriteError(err error, action string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrSlugTaken
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// likePattern builds a case-insensitive LIKE pattern portable across postgres and sqlite
func likePattern(search string) string {
	search = strings.ToLower(strings.TrimSpace(search))
	search = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(search)
	return "%" + search + "%"
}
