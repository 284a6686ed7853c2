package services

import (
	"context"
	"sync"
	"testing"

	"github.com/sahilchouksey/course-catalog/model"
	"github.com/sahilchouksey/course-catalog/utils/testutil"
	"gorm.io/gorm"
)

type testCatalog struct {
	db       *gorm.DB
	registry *ItemRegistry
	subjects *SubjectService
	courses  *CourseService
	modules  *ModuleService
	contents *ContentService
	items    *ItemService
	store    *memoryStore
}

func newTestCatalog(t *testing.T) *testCatalog {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	registry := NewItemRegistry(db)
	store := newMemoryStore()
	subjects := NewSubjectService(db, nil, log)
	items := NewItemService(db, registry, store, log)
	return &testCatalog{
		db:       db,
		registry: registry,
		subjects: subjects,
		courses:  NewCourseService(db, subjects, nil, log),
		modules:  NewModuleService(db, registry, nil, log),
		contents: NewContentService(db, registry, items, nil, log),
		items:    items,
		store:    store,
	}
}

func ownerOf(user *model.User) Actor {
	return Actor{UserID: user.ID, IsAdmin: user.IsAdmin()}
}

func uintPtr(v uint) *uint { return &v }

func strPtr(v string) *string { return &v }

// memoryStore is an in-process ObjectStore
type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryStore) Upload(_ context.Context, key string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return "https://cdn.test/" + key, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	delete(m.types, key)
	return nil
}

func (m *memoryStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}
