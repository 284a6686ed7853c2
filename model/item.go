package model

import (
	"time"

	"github.com/sahilchouksey/course-catalog/utils/textutil"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ItemType tags the concrete payload a Content row points at
type ItemType string

const (
	ItemTypeText  ItemType = "text"
	ItemTypeVideo ItemType = "video"
	ItemTypeImage ItemType = "image"
	ItemTypeFile  ItemType = "file"
)

// Item is implemented by every payload a Content can reference
type Item interface {
	ItemID() uint
	ItemTitle() string
	ItemOwnerID() uint
	ItemType() ItemType
}

// ItemBase holds the columns shared by all item tables
type ItemBase struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerID   uint      `gorm:"not null;index" json:"owner_id"`
	Title     string    `gorm:"type:varchar(250);not null" json:"title"`
	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"updated"`
}

func (b ItemBase) ItemID() uint      { return b.ID }
func (b ItemBase) ItemTitle() string { return b.Title }
func (b ItemBase) ItemOwnerID() uint { return b.OwnerID }

// StoredObject describes an uploaded blob in object storage
type StoredObject struct {
	StorageKey  string `gorm:"type:varchar(500);not null" json:"storage_key"`
	URL         string `gorm:"type:text;not null" json:"url"`
	ContentType string `gorm:"type:varchar(100)" json:"content_type"`
	Size        int64  `gorm:"default:0" json:"size"`
}

type Text struct {
	ItemBase
	Content string `gorm:"type:text;not null" json:"content"`
	Excerpt string `gorm:"-" json:"excerpt,omitempty"`
}

func (Text) ItemType() ItemType { return ItemTypeText }

const excerptLength = 160

// AfterFind fills the plain-text excerpt used by list views
func (t *Text) AfterFind(tx *gorm.DB) error {
	t.Excerpt = textutil.Excerpt(t.Content, excerptLength)
	return nil
}

// AfterSave keeps the excerpt in step with content written by create or update
func (t *Text) AfterSave(tx *gorm.DB) error {
	t.Excerpt = textutil.Excerpt(t.Content, excerptLength)
	return nil
}

type Video struct {
	ItemBase
	URL      string         `gorm:"type:text;not null" json:"url"`
	Metadata datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
}

func (Video) ItemType() ItemType { return ItemTypeVideo }

type Image struct {
	ItemBase
	StoredObject
}

func (Image) ItemType() ItemType { return ItemTypeImage }

type File struct {
	ItemBase
	StoredObject
	PageCount int `gorm:"default:0" json:"page_count"`
}

func (File) ItemType() ItemType { return ItemTypeFile }
