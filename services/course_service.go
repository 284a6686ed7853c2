package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sahilchouksey/course-catalog/model"
	"github.com/sahilchouksey/course-catalog/utils/logger"
	"gorm.io/gorm"
)

// CourseFilter narrows the course list; zero values are ignored
type CourseFilter struct {
	SubjectID     uint
	OwnerID       uint
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Search        string
	Page          int
	Limit         int
}

// InlineModule is one module row edited together with its course.
// Rows without ID are created; rows with Delete set are removed.
type InlineModule struct {
	ID          *uint
	Title       string
	Description string
	Order       *uint
	Delete      bool
}

// CourseInput is the payload for creating a course
type CourseInput struct {
	SubjectID uint
	Title     string
	Slug      string
	Overview  string
	Modules   []InlineModule
}

// CourseUpdate carries the fields to change; nil means keep
type CourseUpdate struct {
	SubjectID *uint
	Title     *string
	Slug      *string
	Overview  *string
	Modules   []InlineModule
}

// CourseService manages courses and the modules edited inline with them
type CourseService struct {
	db       *gorm.DB
	subjects *SubjectService
	order    orderScope
	log      *logger.Logger
}

// NewCourseService creates a new course service; locker may be nil
func NewCourseService(db *gorm.DB, subjects *SubjectService, locker OrderLocker, log *logger.Logger) *CourseService {
	if log == nil {
		log = logger.Nop()
	}
	return &CourseService{
		db:       db,
		subjects: subjects,
		order:    orderScope{locker: locker, log: log},
		log:      log,
	}
}

// List returns courses newest first
func (s *CourseService) List(ctx context.Context, f CourseFilter) ([]model.Course, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.Course{})
	if f.SubjectID != 0 {
		query = query.Where("subject_id = ?", f.SubjectID)
	}
	if f.OwnerID != 0 {
		query = query.Where("owner_id = ?", f.OwnerID)
	}
	if f.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		query = query.Where("created_at < ?", *f.CreatedBefore)
	}
	if f.Search != "" {
		pattern := likePattern(f.Search)
		query = query.Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(overview) LIKE ? ESCAPE '\'`, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count courses: %w", err)
	}

	var courses []model.Course
	err := query.
		Preload("Subject").
		Order("created_at DESC, id DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&courses).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, total, nil
}

// Get returns a course with its subject and modules in order
func (s *CourseService) Get(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	err := s.db.WithContext(ctx).
		Preload("Subject").
		Preload("Modules", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"order" ASC, id ASC`)
		}).
		First(&course, id).Error
	if err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound)
	}
	return &course, nil
}

// Create adds a course owned by the actor together with any inline modules
func (s *CourseService) Create(ctx context.Context, actor Actor, in CourseInput) (*model.Course, error) {
	slug, err := resolveSlug(in.Slug, in.Title)
	if err != nil {
		return nil, err
	}
	if err := s.requireSubject(ctx, in.SubjectID); err != nil {
		return nil, err
	}
	if err := slugAvailable(ctx, s.db, &model.Course{}, slug, 0); err != nil {
		return nil, err
	}

	course := model.Course{
		OwnerID:   actor.UserID,
		SubjectID: in.SubjectID,
		Title:     in.Title,
		Slug:      slug,
		Overview:  in.Overview,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&course).Error; err != nil {
			return translateWriteError(err, "create course")
		}
		return s.applyInlineModules(ctx, tx, course.ID, in.Modules)
	})
	if err != nil {
		return nil, err
	}

	s.subjects.Invalidate(ctx, course.SubjectID)
	return s.Get(ctx, course.ID)
}

// Update edits course fields and inline modules in one transaction
func (s *CourseService) Update(ctx context.Context, actor Actor, id uint, in CourseUpdate) (*model.Course, error) {
	course, err := editableCourse(ctx, s.db, actor, id)
	if err != nil {
		return nil, err
	}
	previousSubject := course.SubjectID

	if in.SubjectID != nil && *in.SubjectID != course.SubjectID {
		if err := s.requireSubject(ctx, *in.SubjectID); err != nil {
			return nil, err
		}
		course.SubjectID = *in.SubjectID
	}
	if in.Title != nil {
		course.Title = *in.Title
	}
	if in.Overview != nil {
		course.Overview = *in.Overview
	}
	if in.Slug != nil {
		slug, err := resolveSlug(*in.Slug, course.Title)
		if err != nil {
			return nil, err
		}
		if err := slugAvailable(ctx, s.db, &model.Course{}, slug, id); err != nil {
			return nil, err
		}
		course.Slug = slug
	}

	err = s.order.run(ctx, "modules", id, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Omit("Owner", "Subject", "Modules").Save(course).Error; err != nil {
				return translateWriteError(err, "update course")
			}
			return s.applyInlineModules(ctx, tx, id, in.Modules)
		})
	})
	if err != nil {
		return nil, err
	}

	s.subjects.Invalidate(ctx, previousSubject)
	if previousSubject != course.SubjectID {
		s.subjects.Invalidate(ctx, course.SubjectID)
	}
	return s.Get(ctx, id)
}

// Delete removes a course with its modules and their content rows. Items survive.
func (s *CourseService) Delete(ctx context.Context, actor Actor, id uint) error {
	course, err := editableCourse(ctx, s.db, actor, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		modules := tx.Model(&model.Module{}).Select("id").Where("course_id = ?", id)
		if err := tx.Where("module_id IN (?)", modules).Delete(&model.Content{}).Error; err != nil {
			return fmt.Errorf("failed to delete contents: %w", err)
		}
		if err := tx.Where("course_id = ?", id).Delete(&model.Module{}).Error; err != nil {
			return fmt.Errorf("failed to delete modules: %w", err)
		}
		if err := tx.Delete(course).Error; err != nil {
			return fmt.Errorf("failed to delete course: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.subjects.Invalidate(ctx, course.SubjectID)
	return nil
}

func (s *CourseService) requireSubject(ctx context.Context, subjectID uint) error {
	var subject model.Subject
	return first(ctx, s.db, &subject, subjectID, ErrSubjectNotFound)
}

// applyInlineModules runs deletes and updates first so new rows rank after the survivors
func (s *CourseService) applyInlineModules(ctx context.Context, tx *gorm.DB, courseID uint, rows []InlineModule) error {
	var created []InlineModule
	for _, row := range rows {
		if row.ID == nil {
			if !row.Delete {
				created = append(created, row)
			}
			continue
		}

		var module model.Module
		err := tx.WithContext(ctx).Where("id = ? AND course_id = ?", *row.ID, courseID).First(&module).Error
		if err != nil {
			return fmt.Errorf("module %d: %w", *row.ID, mapNotFound(err, ErrModuleNotFound))
		}

		if row.Delete {
			if err := deleteModule(ctx, tx, module.ID); err != nil {
				return err
			}
			continue
		}

		module.Title = row.Title
		module.Description = row.Description
		if row.Order != nil {
			if *row.Order > MaxOrder {
				return fmt.Errorf("module %d: %w: %d", module.ID, ErrOrderOutOfRange, *row.Order)
			}
			module.Order = *row.Order
		}
		if err := tx.WithContext(ctx).Omit("Contents").Save(&module).Error; err != nil {
			return fmt.Errorf("failed to update module %d: %w", module.ID, err)
		}
	}

	for _, row := range created {
		if _, err := createModule(ctx, tx, courseID, row.Title, row.Description, row.Order); err != nil {
			return err
		}
	}
	return nil
}
