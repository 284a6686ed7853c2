package model

import (
	"time"

	"gorm.io/datatypes"
)

// AdminAuditLog represents audit trail for catalog mutations made by admins
type AdminAuditLog struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	AdminID     uint           `gorm:"not null;index" json:"admin_id"`
	Action      string         `gorm:"type:varchar(100);not null" json:"action"` // e.g., "subject_create", "course_delete"
	Resource    string         `gorm:"type:varchar(100)" json:"resource"`        // e.g., "subjects", "courses"
	ResourceID  uint           `json:"resource_id"`
	OldValue    datatypes.JSON `gorm:"type:jsonb" json:"old_value,omitempty"`
	NewValue    datatypes.JSON `gorm:"type:jsonb" json:"new_value,omitempty"`
	StatusCode  int            `json:"status_code"`
	IPAddress   string         `gorm:"type:varchar(45)" json:"ip_address"`
	UserAgent   string         `gorm:"type:text" json:"user_agent"`
	Description string         `gorm:"type:text" json:"description"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`

	// Relationships
	Admin *User `gorm:"foreignKey:AdminID;constraint:OnDelete:CASCADE" json:"admin,omitempty"`
}

// TableName specifies the table name for AdminAuditLog
func (AdminAuditLog) TableName() string {
	return "admin_audit_logs"
}
