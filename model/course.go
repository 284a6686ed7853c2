package model

import (
	"fmt"
	"time"
)

// Course is a curriculum owned by a user and filed under one subject
type Course struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created"`
	UpdatedAt time.Time `json:"updated_at"`
	OwnerID   uint      `gorm:"not null;index" json:"owner_id"`
	SubjectID uint      `gorm:"not null;index" json:"subject_id"`
	Title     string    `gorm:"type:varchar(200);not null" json:"title"`
	Slug      string    `gorm:"type:varchar(200);uniqueIndex;not null" json:"slug"`
	Overview  string    `gorm:"type:text" json:"overview"`

	// Relationships
	Owner   *User    `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"owner,omitempty"`
	Subject *Subject `gorm:"foreignKey:SubjectID" json:"subject,omitempty"`
	Modules []Module `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"modules,omitempty"`
}

func (c Course) String() string {
	return c.Title
}

// Module is an ordered section of a course. Order is scoped to CourseID.
type Module struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CourseID    uint      `gorm:"not null;index" json:"course_id"`
	Title       string    `gorm:"type:varchar(200);not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Order       uint      `gorm:"column:order;not null" json:"order"`

	// Relationships
	Contents []Content `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE" json:"contents,omitempty"`
}

func (m Module) String() string {
	return fmt.Sprintf("%d. %s", m.Order, m.Title)
}
