package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/sahilchouksey/course-catalog/database"
	"github.com/sahilchouksey/course-catalog/model"
	"github.com/sahilchouksey/course-catalog/utils/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// DB returns a fresh migrated in-memory SQLite database private to the test
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		tb.Fatalf("failed to open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("failed to get sql db: %v", err)
	}
	// one connection keeps the in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		tb.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

// Logger returns a logger that discards output
func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.Nop()
}

// SeedUser inserts a user with an unusable password hash
func SeedUser(tb testing.TB, db *gorm.DB, role string) *model.User {
	tb.Helper()
	user := &model.User{
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "!",
		Name:         "Test " + role,
		Role:         role,
	}
	mustCreate(tb, db, user)
	return user
}

// SeedSubject inserts a subject whose slug is derived from title
func SeedSubject(tb testing.TB, db *gorm.DB, title string) *model.Subject {
	tb.Helper()
	subject := &model.Subject{Title: title, Slug: slugFor(title)}
	mustCreate(tb, db, subject)
	return subject
}

// SeedCourse inserts a course under subject owned by owner
func SeedCourse(tb testing.TB, db *gorm.DB, owner *model.User, subject *model.Subject, title string) *model.Course {
	tb.Helper()
	course := &model.Course{
		OwnerID:   owner.ID,
		SubjectID: subject.ID,
		Title:     title,
		Slug:      slugFor(title),
	}
	mustCreate(tb, db, course)
	return course
}

// SeedModule inserts a module with an explicit order
func SeedModule(tb testing.TB, db *gorm.DB, course *model.Course, title string, order uint) *model.Module {
	tb.Helper()
	module := &model.Module{CourseID: course.ID, Title: title, Order: order}
	mustCreate(tb, db, module)
	return module
}

// SeedText inserts a text item owned by owner
func SeedText(tb testing.TB, db *gorm.DB, owner *model.User, title, content string) *model.Text {
	tb.Helper()
	text := &model.Text{ItemBase: model.ItemBase{OwnerID: owner.ID, Title: title}, Content: content}
	mustCreate(tb, db, text)
	return text
}

// SeedContent inserts a content row pointing at item
func SeedContent(tb testing.TB, db *gorm.DB, module *model.Module, item model.Item, order uint) *model.Content {
	tb.Helper()
	content := &model.Content{
		ModuleID: module.ID,
		ItemType: item.ItemType(),
		ItemID:   item.ItemID(),
		Order:    order,
	}
	mustCreate(tb, db, content)
	return content
}

func mustCreate(tb testing.TB, db *gorm.DB, value interface{}) {
	tb.Helper()
	if err := db.Create(value).Error; err != nil {
		tb.Fatalf("failed to seed %T: %v", value, err)
	}
}

// slugs only need to be unique inside one test database
func slugFor(title string) string {
	return fmt.Sprintf("%s-%s", uuid.NewString()[:8], title)
}
