package model

import (
	"fmt"
	"time"
)

// Content is an ordered slot inside a module pointing at exactly one item.
// The item is referenced by (ItemType, ItemID) rather than a foreign key, so
// deleting the item leaves the row in place.
type Content struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ModuleID  uint      `gorm:"not null;index" json:"module_id"`
	ItemType  ItemType  `gorm:"type:varchar(20);not null;index:idx_content_item,priority:1" json:"item_type"`
	ItemID    uint      `gorm:"not null;index:idx_content_item,priority:2" json:"item_id"`
	Order     uint      `gorm:"column:order;not null" json:"order"`

	// Resolved lazily through the item registry
	Item Item `gorm:"-" json:"item,omitempty"`
}

func (c Content) String() string {
	if c.Item != nil {
		return fmt.Sprintf("%d. %s", c.Order, c.Item.ItemTitle())
	}
	return fmt.Sprintf("%d. %s #%d", c.Order, c.ItemType, c.ItemID)
}
