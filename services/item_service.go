package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sahilchouksey/course-catalog/model"
	"github.com/sahilchouksey/course-catalog/services/digitalocean"
	"github.com/sahilchouksey/course-catalog/utils/logger"
	"github.com/sahilchouksey/course-catalog/utils/pdfvalidation"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ObjectStore keeps uploaded image and file payloads
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Upload is a file received from a multipart form
type Upload struct {
	Filename string
	Data     []byte
}

// ItemInput is the payload for a new item; which fields apply depends on the type
type ItemInput struct {
	Title    string
	Content  string         // text
	URL      string         // video
	Metadata datatypes.JSON // video
	File     *Upload        // image, file
}

// ItemUpdate carries the fields to change; nil means keep
type ItemUpdate struct {
	Title    *string
	Content  *string
	URL      *string
	Metadata datatypes.JSON
	File     *Upload
}

// ItemService manages the payload items content rows point at
type ItemService struct {
	db       *gorm.DB
	registry *ItemRegistry
	store    ObjectStore
	log      *logger.Logger
}

// NewItemService creates a new item service; store may be nil when uploads are disabled
func NewItemService(db *gorm.DB, registry *ItemRegistry, store ObjectStore, log *logger.Logger) *ItemService {
	if log == nil {
		log = logger.Nop()
	}
	return &ItemService{db: db, registry: registry, store: store, log: log}
}

// List pages through the actor's items of one type; admins see every owner's
func (s *ItemService) List(ctx context.Context, actor Actor, tag model.ItemType, page, limit int) ([]model.Item, int64, error) {
	l, err := s.registry.loader(tag)
	if err != nil {
		return nil, 0, err
	}
	ownerID := actor.UserID
	if actor.IsAdmin {
		ownerID = 0
	}
	items, total, err := l.list(ctx, s.db, ownerID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list %s items: %w", tag, err)
	}
	return items, total, nil
}

// Get loads one item by type and id
func (s *ItemService) Get(ctx context.Context, tag model.ItemType, id uint) (model.Item, error) {
	return s.registry.Resolve(ctx, tag, id)
}

// Create builds and stores a new item owned by the actor
func (s *ItemService) Create(ctx context.Context, actor Actor, tag model.ItemType, in ItemInput) (model.Item, error) {
	item, err := s.build(ctx, actor, tag, in)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		s.discard(ctx, item)
		return nil, fmt.Errorf("failed to create %s item: %w", tag, err)
	}
	return item, nil
}

// Update edits an item owned by the actor. A new upload replaces the stored object.
func (s *ItemService) Update(ctx context.Context, actor Actor, tag model.ItemType, id uint, in ItemUpdate) (model.Item, error) {
	item, err := s.editable(ctx, actor, tag, id)
	if err != nil {
		return nil, err
	}

	var replaced *model.StoredObject
	switch v := item.(type) {
	case *model.Text:
		setString(&v.Title, in.Title)
		setString(&v.Content, in.Content)
	case *model.Video:
		setString(&v.Title, in.Title)
		setString(&v.URL, in.URL)
		if in.Metadata != nil {
			v.Metadata = in.Metadata
		}
	case *model.Image:
		setString(&v.Title, in.Title)
		if in.File != nil {
			old := v.StoredObject
			if v.StoredObject, err = s.storeUpload(ctx, "images", in.File, true); err != nil {
				return nil, err
			}
			replaced = &old
		}
	case *model.File:
		setString(&v.Title, in.Title)
		if in.File != nil {
			old := v.StoredObject
			if v.StoredObject, err = s.storeUpload(ctx, "files", in.File, false); err != nil {
				return nil, err
			}
			replaced = &old
			if v.PageCount, err = s.pageCount(v.StoredObject, in.File.Data); err != nil {
				s.deleteObject(ctx, v.StorageKey)
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownItemType, tag)
	}

	if err := s.db.WithContext(ctx).Save(item).Error; err != nil {
		if replaced != nil {
			s.discard(ctx, item)
		}
		return nil, fmt.Errorf("failed to update %s item: %w", tag, err)
	}
	if replaced != nil {
		s.deleteObject(ctx, replaced.StorageKey)
	}
	return item, nil
}

// Delete removes an item. Content rows referencing it are kept and become dangling.
func (s *ItemService) Delete(ctx context.Context, actor Actor, tag model.ItemType, id uint) error {
	item, err := s.editable(ctx, actor, tag, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(item).Error; err != nil {
		return fmt.Errorf("failed to delete %s item: %w", tag, err)
	}
	s.discard(ctx, item)
	return nil
}

func (s *ItemService) editable(ctx context.Context, actor Actor, tag model.ItemType, id uint) (model.Item, error) {
	item, err := s.registry.Resolve(ctx, tag, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanEdit(item.ItemOwnerID()) {
		return nil, ErrForbidden
	}
	return item, nil
}

// build returns an unsaved item; image and file payloads are uploaded already
func (s *ItemService) build(ctx context.Context, actor Actor, tag model.ItemType, in ItemInput) (model.Item, error) {
	base := model.ItemBase{OwnerID: actor.UserID, Title: in.Title}

	switch tag {
	case model.ItemTypeText:
		return &model.Text{ItemBase: base, Content: in.Content}, nil
	case model.ItemTypeVideo:
		return &model.Video{ItemBase: base, URL: in.URL, Metadata: in.Metadata}, nil
	case model.ItemTypeImage:
		stored, err := s.storeUpload(ctx, "images", in.File, true)
		if err != nil {
			return nil, err
		}
		return &model.Image{ItemBase: base, StoredObject: stored}, nil
	case model.ItemTypeFile:
		stored, err := s.storeUpload(ctx, "files", in.File, false)
		if err != nil {
			return nil, err
		}
		pages, err := s.pageCount(stored, in.File.Data)
		if err != nil {
			s.deleteObject(ctx, stored.StorageKey)
			return nil, err
		}
		return &model.File{ItemBase: base, StoredObject: stored, PageCount: pages}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownItemType, tag)
}

func (s *ItemService) storeUpload(ctx context.Context, prefix string, up *Upload, imageOnly bool) (model.StoredObject, error) {
	if up == nil || len(up.Data) == 0 {
		return model.StoredObject{}, ErrEmptyUpload
	}
	if s.store == nil {
		return model.StoredObject{}, ErrStorageDisabled
	}

	mt := mimetype.Detect(up.Data)
	if imageOnly && !strings.HasPrefix(mt.String(), "image/") {
		return model.StoredObject{}, fmt.Errorf("%w: %s is not an image", ErrUnsupportedMedia, mt.String())
	}

	filename := up.Filename
	if path.Ext(filename) == "" {
		filename += mt.Extension()
	}
	key := digitalocean.GenerateKey(prefix, filename)

	url, err := s.store.Upload(ctx, key, up.Data, mt.String())
	if err != nil {
		return model.StoredObject{}, err
	}
	return model.StoredObject{
		StorageKey:  key,
		URL:         url,
		ContentType: mt.String(),
		Size:        int64(len(up.Data)),
	}, nil
}

// pageCount reads the page total of a PDF upload; other types count as 0.
// An unreadable PDF is stored with 0 pages, an oversized one is rejected.
func (s *ItemService) pageCount(stored model.StoredObject, data []byte) (int, error) {
	if !strings.HasPrefix(stored.ContentType, "application/pdf") {
		return 0, nil
	}
	pages, err := pdfvalidation.ValidatePDFBytes(data, pdfvalidation.FileItemLimits)
	if errors.Is(err, pdfvalidation.ErrTooMany) {
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedMedia, err)
	}
	if err != nil {
		s.log.Warn("could not read pdf page count", "key", stored.StorageKey, "error", err)
		return 0, nil
	}
	return pages, nil
}

// discard deletes the stored object behind an item, if it has one
func (s *ItemService) discard(ctx context.Context, item model.Item) {
	switch v := item.(type) {
	case *model.Image:
		s.deleteObject(ctx, v.StorageKey)
	case *model.File:
		s.deleteObject(ctx, v.StorageKey)
	}
}

func (s *ItemService) deleteObject(ctx context.Context, key string) {
	if s.store == nil || key == "" {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		s.log.Warn("failed to delete stored object", "key", key, "error", err)
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
