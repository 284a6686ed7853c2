package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sahilchouksey/course-catalog/model"
	"github.com/sahilchouksey/course-catalog/utils/auth"
	"github.com/sahilchouksey/course-catalog/utils/logger"
	"gorm.io/gorm"
)

// DefaultSubjects are created on first seed; slugs are stable across runs
var DefaultSubjects = []model.Subject{
	{Title: "Mathematics", Slug: "mathematics"},
	{Title: "Physics", Slug: "physics"},
	{Title: "Programming", Slug: "programming"},
	{Title: "Music", Slug: "music"},
	{Title: "Languages", Slug: "languages"},
}

// SeedOptions controls what the seeder creates
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
	SampleCourse  bool
}

// Seeder handles database seeding operations
type Seeder struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, log *logger.Logger) *Seeder {
	if log == nil {
		log = logger.Nop()
	}
	return &Seeder{db: db, log: log}
}

// SeedAll runs all seed functions. Every step is idempotent.
func (s *Seeder) SeedAll(opts SeedOptions) error {
	s.log.Info("starting database seeding")

	admin, err := s.SeedAdminUser(opts.AdminEmail, opts.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	if err := s.SeedSubjects(); err != nil {
		return fmt.Errorf("failed to seed subjects: %w", err)
	}

	if opts.SampleCourse {
		if admin == nil {
			s.log.Warn("sample course needs an admin owner, skipping")
		} else if err := s.SeedSampleCourse(admin); err != nil {
			return fmt.Errorf("failed to seed sample course: %w", err)
		}
	}

	s.log.Info("database seeding completed")
	return nil
}

// SeedAdminUser creates the admin account unless one exists. With no
// credentials it returns the existing admin, if any.
func (s *Seeder) SeedAdminUser(email, password string) (*model.User, error) {
	var admin model.User
	err := s.db.Where("role = ?", model.RoleAdmin).Order("id").First(&admin).Error
	if err == nil {
		s.log.Info("admin user already exists, skipping", "email", admin.Email)
		return &admin, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if email == "" || password == "" {
		s.log.Warn("ADMIN_EMAIL and ADMIN_PASSWORD not set, skipping admin user creation")
		return nil, nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin = model.User{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Name:         "Administrator",
		Role:         model.RoleAdmin,
	}
	if err := s.db.Create(&admin).Error; err != nil {
		return nil, err
	}
	s.log.Info("admin user created", "email", admin.Email)
	return &admin, nil
}

// SeedSubjects creates any default subject whose slug is missing
func (s *Seeder) SeedSubjects() error {
	for _, subject := range DefaultSubjects {
		subject := subject
		result := s.db.Where(model.Subject{Slug: subject.Slug}).FirstOrCreate(&subject)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			s.log.Info("subject created", "slug", subject.Slug)
		}
	}
	return nil
}

// SeedSampleCourse creates a small course with two modules and text content
func (s *Seeder) SeedSampleCourse(owner *model.User) error {
	const slug = "getting-started"

	var existing int64
	if err := s.db.Model(&model.Course{}).Where("slug = ?", slug).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		s.log.Info("sample course already exists, skipping")
		return nil
	}

	var subject model.Subject
	if err := s.db.Where("slug = ?", "programming").First(&subject).Error; err != nil {
		return err
	}

	lessons := []struct {
		module string
		texts  []string
	}{
		{"Welcome", []string{"About this course", "How modules are ordered"}},
		{"First steps", []string{"Setting up", "Your first program"}},
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		course := model.Course{
			OwnerID:   owner.ID,
			SubjectID: subject.ID,
			Title:     "Getting Started",
			Slug:      slug,
			Overview:  "A sample course created by the seeder.",
		}
		if err := tx.Create(&course).Error; err != nil {
			return err
		}

		for i, lesson := range lessons {
			module := model.Module{CourseID: course.ID, Title: lesson.module, Order: uint(i)}
			if err := tx.Create(&module).Error; err != nil {
				return err
			}
			for j, title := range lesson.texts {
				text := model.Text{
					ItemBase: model.ItemBase{OwnerID: owner.ID, Title: title},
					Content:  "<p>" + title + "</p>",
				}
				if err := tx.Create(&text).Error; err != nil {
					return err
				}
				content := model.Content{
					ModuleID: module.ID,
					ItemType: model.ItemTypeText,
					ItemID:   text.ID,
					Order:    uint(j),
				}
				if err := tx.Create(&content).Error; err != nil {
					return err
				}
			}
		}
		s.log.Info("sample course created", "course_id", course.ID)
		return nil
	})
}
