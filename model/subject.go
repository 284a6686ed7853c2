package model

import "time"

// Subject is a top-level category that groups courses
type Subject struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Title     string    `gorm:"type:varchar(200);not null" json:"title"`
	Slug      string    `gorm:"type:varchar(200);uniqueIndex;not null" json:"slug"`

	// Relationships
	Courses []Course `gorm:"foreignKey:SubjectID" json:"courses,omitempty"`
}

func (s Subject) String() string {
	return s.Title
}
