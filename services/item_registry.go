package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sahilchouksey/course-catalog/model"
	"gorm.io/gorm"
)

type itemLoader interface {
	load(ctx context.Context, db *gorm.DB, id uint) (model.Item, error)
	loadMany(ctx context.Context, db *gorm.DB, ids []uint) (map[uint]model.Item, error)
	list(ctx context.Context, db *gorm.DB, ownerID uint, page, limit int) ([]model.Item, int64, error)
	model() interface{}
}

type modelLoader[T any, PT interface {
	*T
	model.Item
}] struct{}

func (modelLoader[T, PT]) load(ctx context.Context, db *gorm.DB, id uint) (model.Item, error) {
	var row T
	err := db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return PT(&row), nil
}

func (modelLoader[T, PT]) loadMany(ctx context.Context, db *gorm.DB, ids []uint) (map[uint]model.Item, error) {
	var rows []T
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]model.Item, len(rows))
	for i := range rows {
		item := PT(&rows[i])
		out[item.ItemID()] = item
	}
	return out, nil
}

// list pages through one owner's items, or everyone's when ownerID is 0
func (l modelLoader[T, PT]) list(ctx context.Context, db *gorm.DB, ownerID uint, page, limit int) ([]model.Item, int64, error) {
	query := db.WithContext(ctx).Model(l.model())
	if ownerID != 0 {
		query = query.Where("owner_id = ?", ownerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []T
	if err := query.Order("created_at DESC, id DESC").Offset((page - 1) * limit).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]model.Item, len(rows))
	for i := range rows {
		out[i] = PT(&rows[i])
	}
	return out, total, nil
}

func (modelLoader[T, PT]) model() interface{} {
	return PT(new(T))
}

// ItemRegistry maps item type tags to the table that stores them
type ItemRegistry struct {
	db      *gorm.DB
	loaders map[model.ItemType]itemLoader
}

// NewItemRegistry returns a registry with text, video, image and file registered
func NewItemRegistry(db *gorm.DB) *ItemRegistry {
	r := &ItemRegistry{db: db, loaders: make(map[model.ItemType]itemLoader)}
	Register[model.Text](r, model.ItemTypeText)
	Register[model.Video](r, model.ItemTypeVideo)
	Register[model.Image](r, model.ItemTypeImage)
	Register[model.File](r, model.ItemTypeFile)
	return r
}

// Register adds or replaces the loader for tag
func Register[T any, PT interface {
	*T
	model.Item
}](r *ItemRegistry, tag model.ItemType) {
	r.loaders[tag] = modelLoader[T, PT]{}
}

// Types lists registered tags in lexical order
func (r *ItemRegistry) Types() []model.ItemType {
	types := make([]model.ItemType, 0, len(r.loaders))
	for tag := range r.loaders {
		types = append(types, tag)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Known reports whether tag is registered
func (r *ItemRegistry) Known(tag model.ItemType) bool {
	_, ok := r.loaders[tag]
	return ok
}

func (r *ItemRegistry) loader(tag model.ItemType) (itemLoader, error) {
	l, ok := r.loaders[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownItemType, tag)
	}
	return l, nil
}

// Resolve loads the item a (type, id) pair points at
func (r *ItemRegistry) Resolve(ctx context.Context, tag model.ItemType, id uint) (model.Item, error) {
	return r.resolve(ctx, r.db, tag, id)
}

func (r *ItemRegistry) resolve(ctx context.Context, db *gorm.DB, tag model.ItemType, id uint) (model.Item, error) {
	l, err := r.loader(tag)
	if err != nil {
		return nil, err
	}
	item, err := l.load(ctx, db, id)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, fmt.Errorf("%w: %s #%d", ErrItemNotFound, tag, id)
		}
		return nil, fmt.Errorf("failed to load %s item: %w", tag, err)
	}
	return item, nil
}

// ResolveContents fills Item on every content with one query per item type.
// Dangling references and unknown tags are left with a nil Item.
func (r *ItemRegistry) ResolveContents(ctx context.Context, contents []model.Content) error {
	idsByType := make(map[model.ItemType][]uint)
	for _, c := range contents {
		idsByType[c.ItemType] = append(idsByType[c.ItemType], c.ItemID)
	}

	items := make(map[model.ItemType]map[uint]model.Item, len(idsByType))
	for tag, ids := range idsByType {
		l, ok := r.loaders[tag]
		if !ok {
			continue
		}
		loaded, err := l.loadMany(ctx, r.db, ids)
		if err != nil {
			return fmt.Errorf("failed to load %s items: %w", tag, err)
		}
		items[tag] = loaded
	}

	for i := range contents {
		if item, ok := items[contents[i].ItemType][contents[i].ItemID]; ok {
			contents[i].Item = item
		}
	}
	return nil
}

// Dangling returns content rows whose item no longer resolves, oldest first
func (r *ItemRegistry) Dangling(ctx context.Context) ([]model.Content, error) {
	db := r.db.WithContext(ctx)
	types := r.Types()

	// rows tagged with a type nobody registered
	query := db.Where("item_type NOT IN ?", types)
	for _, tag := range types {
		l := r.loaders[tag]
		query = query.Or("item_type = ? AND item_id NOT IN (?)", tag, db.Model(l.model()).Select("id"))
	}

	var dangling []model.Content
	if err := query.Order("id ASC").Find(&dangling).Error; err != nil {
		return nil, fmt.Errorf("failed to find dangling content: %w", err)
	}
	return dangling, nil
}
