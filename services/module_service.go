package services

import (
	"context"
	"fmt"

	"github.com/sahilchouksey/course-catalog/model"
	"github.com/sahilchouksey/course-catalog/utils/logger"
	"gorm.io/gorm"
)

// ModuleInput is the payload for creating a module. A nil Order appends.
type ModuleInput struct {
	Title       string
	Description string
	Order       *uint
}

// ModuleUpdate carries the fields to change; nil means keep
type ModuleUpdate struct {
	Title       *string
	Description *string
	Order       *uint
}

// ModuleService manages the ordered modules of a course
type ModuleService struct {
	db    *gorm.DB
	items *ItemRegistry
	order orderScope
}

// NewModuleService creates a new module service; locker may be nil
func NewModuleService(db *gorm.DB, items *ItemRegistry, locker OrderLocker, log *logger.Logger) *ModuleService {
	if log == nil {
		log = logger.Nop()
	}
	return &ModuleService{db: db, items: items, order: orderScope{locker: locker, log: log}}
}

// List returns a course's modules in display order
func (s *ModuleService) List(ctx context.Context, courseID uint) ([]model.Module, error) {
	var course model.Course
	if err := first(ctx, s.db, &course, courseID, ErrCourseNotFound); err != nil {
		return nil, err
	}

	var modules []model.Module
	err := s.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order(`"order" ASC, id ASC`).
		Find(&modules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	return modules, nil
}

// Get returns a module with its contents in order and their items resolved
func (s *ModuleService) Get(ctx context.Context, id uint) (*model.Module, error) {
	var module model.Module
	err := s.db.WithContext(ctx).
		Preload("Contents", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"order" ASC, id ASC`)
		}).
		First(&module, id).Error
	if err != nil {
		return nil, mapNotFound(err, ErrModuleNotFound)
	}
	if err := s.items.ResolveContents(ctx, module.Contents); err != nil {
		return nil, err
	}
	return &module, nil
}

// Create appends a module to a course unless an explicit order is given
func (s *ModuleService) Create(ctx context.Context, actor Actor, courseID uint, in ModuleInput) (*model.Module, error) {
	if _, err := editableCourse(ctx, s.db, actor, courseID); err != nil {
		return nil, err
	}

	var module *model.Module
	err := s.order.run(ctx, "modules", courseID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			module, err = createModule(ctx, tx, courseID, in.Title, in.Description, in.Order)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return module, nil
}

// Update changes a module's fields
func (s *ModuleService) Update(ctx context.Context, actor Actor, id uint, in ModuleUpdate) (*model.Module, error) {
	module, err := editableModule(ctx, s.db, actor, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		module.Title = *in.Title
	}
	if in.Description != nil {
		module.Description = *in.Description
	}
	if in.Order != nil {
		if *in.Order > MaxOrder {
			return nil, fmt.Errorf("%w: %d", ErrOrderOutOfRange, *in.Order)
		}
		module.Order = *in.Order
	}

	if err := s.db.WithContext(ctx).Omit("Contents").Save(module).Error; err != nil {
		return nil, fmt.Errorf("failed to update module: %w", err)
	}
	return module, nil
}

// Delete removes a module and its content rows; the items they pointed at remain
func (s *ModuleService) Delete(ctx context.Context, actor Actor, id uint) error {
	if _, err := editableModule(ctx, s.db, actor, id); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteModule(ctx, tx, id)
	})
}

// Reorder puts the listed modules first, in the given sequence
func (s *ModuleService) Reorder(ctx context.Context, actor Actor, courseID uint, ids []uint) ([]model.Module, error) {
	if _, err := editableCourse(ctx, s.db, actor, courseID); err != nil {
		return nil, err
	}

	err := s.order.run(ctx, "modules", courseID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return reorderScope(ctx, tx, &model.Module{}, "course_id", courseID, ids)
		})
	})
	if err != nil {
		return nil, err
	}
	return s.List(ctx, courseID)
}

func createModule(ctx context.Context, tx *gorm.DB, courseID uint, title, description string, explicit *uint) (*model.Module, error) {
	order, err := resolveOrder(ctx, tx, &model.Module{}, "course_id", courseID, explicit)
	if err != nil {
		return nil, err
	}

	module := model.Module{
		CourseID:    courseID,
		Title:       title,
		Description: description,
		Order:       order,
	}
	if err := tx.WithContext(ctx).Create(&module).Error; err != nil {
		return nil, fmt.Errorf("failed to create module: %w", err)
	}
	return &module, nil
}

func deleteModule(ctx context.Context, tx *gorm.DB, moduleID uint) error {
	if err := tx.WithContext(ctx).Where("module_id = ?", moduleID).Delete(&model.Content{}).Error; err != nil {
		return fmt.Errorf("failed to delete contents: %w", err)
	}
	if err := tx.WithContext(ctx).Delete(&model.Module{}, moduleID).Error; err != nil {
		return fmt.Errorf("failed to delete module: %w", err)
	}
	return nil
}
