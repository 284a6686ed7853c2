package services

import (
	"context"
	"fmt"

	"github.com/sahilchouksey/course-catalog/model"
	"github.com/sahilchouksey/course-catalog/utils/logger"
	"gorm.io/gorm"
)

// ContentInput attaches an existing item to a module. A nil Order appends.
type ContentInput struct {
	ItemType model.ItemType
	ItemID   uint
	Order    *uint
}

// ContentService manages the ordered content rows of a module
type ContentService struct {
	db       *gorm.DB
	registry *ItemRegistry
	items    *ItemService
	order    orderScope
}

// NewContentService creates a new content service; locker may be nil
func NewContentService(db *gorm.DB, registry *ItemRegistry, items *ItemService, locker OrderLocker, log *logger.Logger) *ContentService {
	if log == nil {
		log = logger.Nop()
	}
	return &ContentService{
		db:       db,
		registry: registry,
		items:    items,
		order:    orderScope{locker: locker, log: log},
	}
}

// List returns a module's contents in display order with their items resolved.
// Dangling rows are included with a nil item.
func (s *ContentService) List(ctx context.Context, moduleID uint) ([]model.Content, error) {
	var module model.Module
	if err := first(ctx, s.db, &module, moduleID, ErrModuleNotFound); err != nil {
		return nil, err
	}

	var contents []model.Content
	err := s.db.WithContext(ctx).
		Where("module_id = ?", moduleID).
		Order(`"order" ASC, id ASC`).
		Find(&contents).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list contents: %w", err)
	}
	if err := s.registry.ResolveContents(ctx, contents); err != nil {
		return nil, err
	}
	return contents, nil
}

// Get returns one content row with its item; a dangling reference yields ErrItemNotFound
func (s *ContentService) Get(ctx context.Context, id uint) (*model.Content, error) {
	var content model.Content
	if err := first(ctx, s.db, &content, id, ErrContentNotFound); err != nil {
		return nil, err
	}
	item, err := s.registry.Resolve(ctx, content.ItemType, content.ItemID)
	if err != nil {
		return nil, err
	}
	content.Item = item
	return &content, nil
}

// Create attaches an existing item the actor owns (any item, for admins)
func (s *ContentService) Create(ctx context.Context, actor Actor, moduleID uint, in ContentInput) (*model.Content, error) {
	if _, err := editableModule(ctx, s.db, actor, moduleID); err != nil {
		return nil, err
	}

	item, err := s.registry.Resolve(ctx, in.ItemType, in.ItemID)
	if err != nil {
		return nil, err
	}
	if !actor.CanEdit(item.ItemOwnerID()) {
		return nil, ErrForbidden
	}

	var content *model.Content
	err = s.order.run(ctx, "contents", moduleID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			content, err = createContent(ctx, tx, moduleID, item, in.Order)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return content, nil
}

// CreateWithItem creates a new item and appends it to the module in one step
func (s *ContentService) CreateWithItem(ctx context.Context, actor Actor, moduleID uint, tag model.ItemType, in ItemInput, order *uint) (*model.Content, error) {
	if _, err := editableModule(ctx, s.db, actor, moduleID); err != nil {
		return nil, err
	}

	item, err := s.items.build(ctx, actor, tag, in)
	if err != nil {
		return nil, err
	}

	var content *model.Content
	err = s.order.run(ctx, "contents", moduleID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(item).Error; err != nil {
				return fmt.Errorf("failed to create %s item: %w", tag, err)
			}
			content, err = createContent(ctx, tx, moduleID, item, order)
			return err
		})
	})
	if err != nil {
		s.items.discard(ctx, item)
		return nil, err
	}
	return content, nil
}

// Delete removes a content row; its item is kept
func (s *ContentService) Delete(ctx context.Context, actor Actor, id uint) error {
	var content model.Content
	if err := first(ctx, s.db, &content, id, ErrContentNotFound); err != nil {
		return err
	}
	if _, err := editableModule(ctx, s.db, actor, content.ModuleID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&content).Error; err != nil {
		return fmt.Errorf("failed to delete content: %w", err)
	}
	return nil
}

// Reorder puts the listed contents first, in the given sequence
func (s *ContentService) Reorder(ctx context.Context, actor Actor, moduleID uint, ids []uint) ([]model.Content, error) {
	if _, err := editableModule(ctx, s.db, actor, moduleID); err != nil {
		return nil, err
	}

	err := s.order.run(ctx, "contents", moduleID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return reorderScope(ctx, tx, &model.Content{}, "module_id", moduleID, ids)
		})
	})
	if err != nil {
		return nil, err
	}
	return s.List(ctx, moduleID)
}

func createContent(ctx context.Context, tx *gorm.DB, moduleID uint, item model.Item, explicit *uint) (*model.Content, error) {
	order, err := resolveOrder(ctx, tx, &model.Content{}, "module_id", moduleID, explicit)
	if err != nil {
		return nil, err
	}

	content := model.Content{
		ModuleID: moduleID,
		ItemType: item.ItemType(),
		ItemID:   item.ItemID(),
		Order:    order,
	}
	if err := tx.WithContext(ctx).Create(&content).Error; err != nil {
		return nil, fmt.Errorf("failed to create content: %w", err)
	}
	content.Item = item
	return &content, nil
}
