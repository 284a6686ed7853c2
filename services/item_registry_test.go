package services

import (
	"context"
	"testing"

	"github.com/sahilchouksey/course-catalog/model"
	"github.com/sahilchouksey/course-catalog/utils/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestResolveReturnsExactInstance(t *testing.T) {
	db := testutil.DB(t)
	owner := testutil.SeedUser(t, db, model.RoleStudent)
	registry := NewItemRegistry(db)

	testutil.SeedText(t, db, owner, "Other", "nope")
	text := testutil.SeedText(t, db, owner, "Welcome", "<p>Hello <b>there</b></p>")
	video := &model.Video{ItemBase: model.ItemBase{OwnerID: owner.ID, Title: "Lecture"}, URL: "https://video.test/1", Metadata: datatypes.JSON(`{"duration":90}`)}
	require.NoError(t, db.Create(video).Error)

	item, err := registry.Resolve(context.Background(), model.ItemTypeText, text.ID)
	require.NoError(t, err)
	got, ok := item.(*model.Text)
	require.True(t, ok)
	assert.Equal(t, text.ID, got.ID)
	assert.Equal(t, "Welcome", got.ItemTitle())
	assert.Equal(t, "Hello there", got.Excerpt)

	item, err = registry.Resolve(context.Background(), model.ItemTypeVideo, video.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ItemTypeVideo, item.ItemType())
	assert.Equal(t, "https://video.test/1", item.(*model.Video).URL)
}

func TestResolveErrors(t *testing.T) {
	db := testutil.DB(t)
	registry := NewItemRegistry(db)

	_, err := registry.Resolve(context.Background(), "quiz", 1)
	assert.ErrorIs(t, err, ErrUnknownItemType)

	_, err = registry.Resolve(context.Background(), model.ItemTypeImage, 999)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestResolveContentsBatchesAndSkipsDangling(t *testing.T) {
	db := testutil.DB(t)
	owner := testutil.SeedUser(t, db, model.RoleStudent)
	course := testutil.SeedCourse(t, db, owner, testutil.SeedSubject(t, db, "Art"), "Drawing")
	module := testutil.SeedModule(t, db, course, "Lines", 0)
	a := testutil.SeedText(t, db, owner, "A", "a")
	b := testutil.SeedText(t, db, owner, "B", "b")

	contents := []model.Content{
		*testutil.SeedContent(t, db, module, a, 0),
		*testutil.SeedContent(t, db, module, b, 1),
		{ModuleID: module.ID, ItemType: model.ItemTypeFile, ItemID: 404, Order: 2},
		{ModuleID: module.ID, ItemType: "quiz", ItemID: 1, Order: 3},
	}

	require.NoError(t, NewItemRegistry(db).ResolveContents(context.Background(), contents))
	assert.Equal(t, "0. A", contents[0].String())
	assert.Equal(t, "1. B", contents[1].String())
	assert.Nil(t, contents[2].Item)
	assert.Equal(t, "2. file #404", contents[2].String())
	assert.Nil(t, contents[3].Item)
}

func TestDeletingItemLeavesDanglingContent(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, c.db, model.RoleStudent)
	course := testutil.SeedCourse(t, c.db, owner, testutil.SeedSubject(t, c.db, "Art"), "Drawing")
	module := testutil.SeedModule(t, c.db, course, "Lines", 0)
	kept := testutil.SeedText(t, c.db, owner, "Kept", "k")
	gone := testutil.SeedText(t, c.db, owner, "Gone", "g")
	testutil.SeedContent(t, c.db, module, kept, 0)
	dangling := testutil.SeedContent(t, c.db, module, gone, 1)

	require.NoError(t, c.items.Delete(ctx, ownerOf(owner), model.ItemTypeText, gone.ID))

	// the content row survives the item
	var count int64
	require.NoError(t, c.db.Model(&model.Content{}).Where("id = ?", dangling.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err := c.contents.Get(ctx, dangling.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)

	found, err := c.registry.Dangling(ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, dangling.ID, found[0].ID)
}

type quiz struct {
	model.ItemBase
	Question string
}

func (quiz) ItemType() model.ItemType { return "quiz" }

func TestRegisterCustomType(t *testing.T) {
	db := testutil.DB(t)
	require.NoError(t, db.AutoMigrate(&quiz{}))
	owner := testutil.SeedUser(t, db, model.RoleStudent)
	q := &quiz{ItemBase: model.ItemBase{OwnerID: owner.ID, Title: "Pop quiz"}, Question: "2+2?"}
	require.NoError(t, db.Create(q).Error)

	registry := NewItemRegistry(db)
	assert.False(t, registry.Known("quiz"))

	Register[quiz](registry, "quiz")
	assert.True(t, registry.Known("quiz"))
	assert.Equal(t, []model.ItemType{"file", "image", "quiz", "text", "video"}, registry.Types())

	item, err := registry.Resolve(context.Background(), "quiz", q.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pop quiz", item.ItemTitle())
}
