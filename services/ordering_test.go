package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/sahilchouksey/course-catalog/model"
	"github.com/sahilchouksey/course-catalog/utils/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextOrderEmptyScope(t *testing.T) {
	db := testutil.DB(t)

	next, err := NextOrder(context.Background(), db, &model.Module{}, "course_id", 42)
	require.NoError(t, err)
	assert.Equal(t, uint(0), next)
}

func TestModulesAutoIncrementPerCourse(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, c.db, model.RoleStudent)
	subject := testutil.SeedSubject(t, c.db, "Programming")
	actor := ownerOf(owner)

	python, err := c.courses.Create(ctx, actor, CourseInput{SubjectID: subject.ID, Title: "Python", Slug: "python"})
	require.NoError(t, err)

	intro, err := c.modules.Create(ctx, actor, python.ID, ModuleInput{Title: "Intro"})
	require.NoError(t, err)
	basics, err := c.modules.Create(ctx, actor, python.ID, ModuleInput{Title: "Basics"})
	require.NoError(t, err)

	assert.Equal(t, uint(0), intro.Order)
	assert.Equal(t, uint(1), basics.Order)

	django, err := c.courses.Create(ctx, actor, CourseInput{SubjectID: subject.ID, Title: "Django"})
	require.NoError(t, err)
	djangoIntro, err := c.modules.Create(ctx, actor, django.ID, ModuleInput{Title: "Intro"})
	require.NoError(t, err)

	assert.Equal(t, uint(0), djangoIntro.Order)
	assert.Equal(t, "django", django.Slug)

	// creating under Django left Python untouched
	modules, err := c.modules.List(ctx, python.ID)
	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.Equal(t, "0. Intro", modules[0].String())
	assert.Equal(t, "1. Basics", modules[1].String())
}

func TestNthChildGetsNMinusOne(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, c.db, model.RoleStudent)
	course := testutil.SeedCourse(t, c.db, owner, testutil.SeedSubject(t, c.db, "Math"), "Algebra")

	for n := 1; n <= 5; n++ {
		module, err := c.modules.Create(ctx, ownerOf(owner), course.ID, ModuleInput{Title: "Chapter"})
		require.NoError(t, err)
		assert.Equal(t, uint(n-1), module.Order)
	}
}

func TestExplicitOrderStoredVerbatim(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, c.db, model.RoleStudent)
	course := testutil.SeedCourse(t, c.db, owner, testutil.SeedSubject(t, c.db, "Math"), "Algebra")
	actor := ownerOf(owner)

	first, err := c.modules.Create(ctx, actor, course.ID, ModuleInput{Title: "A"})
	require.NoError(t, err)
	assert.Equal(t, uint(0), first.Order)

	explicit, err := c.modules.Create(ctx, actor, course.ID, ModuleInput{Title: "B", Order: uintPtr(10)})
	require.NoError(t, err)
	assert.Equal(t, uint(10), explicit.Order)

	after, err := c.modules.Create(ctx, actor, course.ID, ModuleInput{Title: "C"})
	require.NoError(t, err)
	assert.Equal(t, uint(11), after.Order)

	// an explicit zero is a value, not "unset"
	zero, err := c.modules.Create(ctx, actor, course.ID, ModuleInput{Title: "D", Order: uintPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, uint(0), zero.Order)
}

func TestContentsAutoIncrementPerModule(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, c.db, model.RoleStudent)
	course := testutil.SeedCourse(t, c.db, owner, testutil.SeedSubject(t, c.db, "Math"), "Algebra")
	m1 := testutil.SeedModule(t, c.db, course, "One", 0)
	m2 := testutil.SeedModule(t, c.db, course, "Two", 1)
	text := testutil.SeedText(t, c.db, owner, "Notes", "body")
	actor := ownerOf(owner)

	for i := 0; i < 3; i++ {
		content, err := c.contents.Create(ctx, actor, m1.ID, ContentInput{ItemType: model.ItemTypeText, ItemID: text.ID})
		require.NoError(t, err)
		assert.Equal(t, uint(i), content.Order)
	}

	other, err := c.contents.Create(ctx, actor, m2.ID, ContentInput{ItemType: model.ItemTypeText, ItemID: text.ID})
	require.NoError(t, err)
	assert.Equal(t, uint(0), other.Order)
	assert.Equal(t, "0. Notes", other.String())
}

type recordingLocker struct {
	keys     []string
	released int
	err      error
}

func (l *recordingLocker) Lock(_ context.Context, key string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.keys = append(l.keys, key)
	return func() { l.released++ }, nil
}

func TestOrderLockIsScopedToParent(t *testing.T) {
	db := testutil.DB(t)
	owner := testutil.SeedUser(t, db, model.RoleStudent)
	course := testutil.SeedCourse(t, db, owner, testutil.SeedSubject(t, db, "Math"), "Algebra")
	locker := &recordingLocker{}
	modules := NewModuleService(db, NewItemRegistry(db), locker, testutil.Logger(t))

	_, err := modules.Create(context.Background(), ownerOf(owner), course.ID, ModuleInput{Title: "A"})
	require.NoError(t, err)

	assert.Equal(t, []string{fmt.Sprintf("order_lock:modules:%d", course.ID)}, locker.keys)
	assert.Equal(t, 1, locker.released)
}

func TestOrderLockFailureFallsBackToUnlocked(t *testing.T) {
	db := testutil.DB(t)
	owner := testutil.SeedUser(t, db, model.RoleStudent)
	course := testutil.SeedCourse(t, db, owner, testutil.SeedSubject(t, db, "Math"), "Algebra")
	modules := NewModuleService(db, NewItemRegistry(db), &recordingLocker{err: errors.New("redis down")}, testutil.Logger(t))

	module, err := modules.Create(context.Background(), ownerOf(owner), course.ID, ModuleInput{Title: "A"})
	require.NoError(t, err)
	assert.Equal(t, uint(0), module.Order)
}

func TestReorderModules(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, c.db, model.RoleStudent)
	course := testutil.SeedCourse(t, c.db, owner, testutil.SeedSubject(t, c.db, "Math"), "Algebra")
	a := testutil.SeedModule(t, c.db, course, "A", 0)
	b := testutil.SeedModule(t, c.db, course, "B", 1)
	d := testutil.SeedModule(t, c.db, course, "D", 7)

	modules, err := c.modules.Reorder(ctx, ownerOf(owner), course.ID, []uint{d.ID, a.ID})
	require.NoError(t, err)

	require.Len(t, modules, 3)
	assert.Equal(t, []string{"0. D", "1. A", "2. B"}, []string{modules[0].String(), modules[1].String(), modules[2].String()})
	assert.Equal(t, b.ID, modules[2].ID)
}

func TestReorderRejectsForeignIDs(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, c.db, model.RoleStudent)
	subject := testutil.SeedSubject(t, c.db, "Math")
	course := testutil.SeedCourse(t, c.db, owner, subject, "Algebra")
	other := testutil.SeedCourse(t, c.db, owner, subject, "Geometry")
	a := testutil.SeedModule(t, c.db, course, "A", 0)
	stranger := testutil.SeedModule(t, c.db, other, "X", 0)

	_, err := c.modules.Reorder(ctx, ownerOf(owner), course.ID, []uint{stranger.ID, a.ID})
	assert.ErrorIs(t, err, ErrInvalidOrder)

	_, err = c.modules.Reorder(ctx, ownerOf(owner), course.ID, []uint{a.ID, a.ID})
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

// mutexLocker holds one in-process mutex per key
type mutexLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	held  int
	max   int
}

func (l *mutexLocker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	l.mu.Lock()
	l.held++
	if l.held > l.max {
		l.max = l.held
	}
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		l.held--
		l.mu.Unlock()
		m.Unlock()
	}, nil
}

func TestConcurrentModuleCreateGetsDistinctRanks(t *testing.T) {
	db := testutil.DB(t)
	owner := testutil.SeedUser(t, db, model.RoleStudent)
	course := testutil.SeedCourse(t, db, owner, testutil.SeedSubject(t, db, "Math"), "Algebra")
	locker := &mutexLocker{locks: map[string]*sync.Mutex{}}
	modules := NewModuleService(db, NewItemRegistry(db), locker, testutil.Logger(t))

	const n = 8
	var wg sync.WaitGroup
	orders := make([]uint, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := modules.Create(context.Background(), ownerOf(owner), course.ID, ModuleInput{Title: fmt.Sprintf("M%d", i)})
			errs[i] = err
			if err == nil {
				orders[i] = m.Order
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	sort.Slice(orders, func(a, b int) bool { return orders[a] < orders[b] })
	for i, order := range orders {
		assert.Equal(t, uint(i), order)
	}
	assert.Equal(t, 1, locker.max)
}

func TestExplicitOrderOutOfRange(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, c.db, model.RoleStudent)
	course := testutil.SeedCourse(t, c.db, owner, testutil.SeedSubject(t, c.db, "Math"), "Algebra")

	_, err := c.modules.Create(ctx, ownerOf(owner), course.ID, ModuleInput{Title: "Huge", Order: uintPtr(MaxOrder + 1)})
	assert.ErrorIs(t, err, ErrOrderOutOfRange)

	last, err := c.modules.Create(ctx, ownerOf(owner), course.ID, ModuleInput{Title: "Last", Order: uintPtr(MaxOrder)})
	require.NoError(t, err)
	assert.Equal(t, uint(MaxOrder), last.Order)

	// no rank is left after MaxOrder
	_, err = c.modules.Create(ctx, ownerOf(owner), course.ID, ModuleInput{Title: "After"})
	assert.ErrorIs(t, err, ErrOrderOutOfRange)

	_, err = c.modules.Update(ctx, ownerOf(owner), last.ID, ModuleUpdate{Order: uintPtr(MaxOrder + 1)})
	assert.ErrorIs(t, err, ErrOrderOutOfRange)
}
