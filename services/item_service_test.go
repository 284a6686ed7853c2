package services

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/sahilchouksey/course-catalog/model"
	"github.com/sahilchouksey/course-catalog/utils/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 transparent PNG
var pngBytes, _ = base64.StdEncoding.DecodeString("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII=")

func TestCreateImageUploadsAndSniffs(t *testing.T) {
	c := newTestCatalog(t)
	owner := testutil.SeedUser(t, c.db, model.RoleStudent)

	item, err := c.items.Create(context.Background(), ownerOf(owner), model.ItemTypeImage, ItemInput{
		Title: "Pixel",
		File:  &Upload{Filename: "pixel", Data: pngBytes},
	})
	require.NoError(t, err)

	image := item.(*model.Image)
	assert.Equal(t, "image/png", image.ContentType)
	assert.True(t, strings.HasPrefix(image.StorageKey, "images/"))
	assert.True(t, strings.HasSuffix(image.StorageKey, ".png"))
	assert.Equal(t, "https://cdn.test/"+image.StorageKey, image.URL)
	assert.Equal(t, int64(len(pngBytes)), image.Size)
	assert.True(t, c.store.has(image.StorageKey))
}

func TestCreateImageRejectsNonImages(t *testing.T) {
	c := newTestCatalog(t)
	owner := testutil.SeedUser(t, c.db, model.RoleStudent)

	_, err := c.items.Create(context.Background(), ownerOf(owner), model.ItemTypeImage, ItemInput{
		Title: "Not a picture",
		File:  &Upload{Filename: "fake.png", Data: []byte("just some text")},
	})
	assert.ErrorIs(t, err, ErrUnsupportedMedia)
	assert.Empty(t, c.store.objects)

	_, err = c.items.Create(context.Background(), ownerOf(owner), model.ItemTypeFile, ItemInput{Title: "Empty"})
	assert.ErrorIs(t, err, ErrEmptyUpload)
}

func TestCreateFileWithoutStorage(t *testing.T) {
	db := testutil.DB(t)
	owner := testutil.SeedUser(t, db, model.RoleStudent)
	items := NewItemService(db, NewItemRegistry(db), nil, nil)

	_, err := items.Create(context.Background(), ownerOf(owner), model.ItemTypeFile, ItemInput{
		Title: "Syllabus",
		File:  &Upload{Filename: "syllabus.txt", Data: []byte("week 1")},
	})
	assert.ErrorIs(t, err, ErrStorageDisabled)
}

func TestCreateFileNonPDFHasNoPages(t *testing.T) {
	c := newTestCatalog(t)
	owner := testutil.SeedUser(t, c.db, model.RoleStudent)

	item, err := c.items.Create(context.Background(), ownerOf(owner), model.ItemTypeFile, ItemInput{
		Title: "Syllabus",
		File:  &Upload{Filename: "syllabus.txt", Data: []byte("week 1: intro\nweek 2: loops\n")},
	})
	require.NoError(t, err)

	file := item.(*model.File)
	assert.True(t, strings.HasPrefix(file.ContentType, "text/plain"))
	assert.Zero(t, file.PageCount)
}

func TestUpdateImageReplacesStoredObject(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, c.db, model.RoleStudent)

	item, err := c.items.Create(ctx, ownerOf(owner), model.ItemTypeImage, ItemInput{Title: "Pixel", File: &Upload{Filename: "a.png", Data: pngBytes}})
	require.NoError(t, err)
	oldKey := item.(*model.Image).StorageKey

	updated, err := c.items.Update(ctx, ownerOf(owner), model.ItemTypeImage, item.ItemID(), ItemUpdate{
		Title: strPtr("Pixel v2"),
		File:  &Upload{Filename: "b.png", Data: pngBytes},
	})
	require.NoError(t, err)

	newKey := updated.(*model.Image).StorageKey
	assert.NotEqual(t, oldKey, newKey)
	assert.False(t, c.store.has(oldKey))
	assert.True(t, c.store.has(newKey))
	assert.Equal(t, "Pixel v2", updated.ItemTitle())
}

func TestItemOwnershipAndListing(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	alice := testutil.SeedUser(t, c.db, model.RoleStudent)
	bob := testutil.SeedUser(t, c.db, model.RoleStudent)
	admin := testutil.SeedUser(t, c.db, model.RoleAdmin)
	testutil.SeedText(t, c.db, alice, "A1", "a")
	testutil.SeedText(t, c.db, alice, "A2", "a")
	bobs := testutil.SeedText(t, c.db, bob, "B1", "b")

	mine, total, err := c.items.List(ctx, ownerOf(alice), model.ItemTypeText, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, mine, 2)

	_, total, err = c.items.List(ctx, ownerOf(admin), model.ItemTypeText, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	_, err = c.items.Update(ctx, ownerOf(alice), model.ItemTypeText, bobs.ID, ItemUpdate{Title: strPtr("stolen")})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, c.items.Delete(ctx, ownerOf(alice), model.ItemTypeText, bobs.ID), ErrForbidden)

	_, _, err = c.items.List(ctx, ownerOf(alice), "quiz", 1, 10)
	assert.ErrorIs(t, err, ErrUnknownItemType)
}

func TestUpdateTextRefreshesExcerpt(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, c.db, model.RoleStudent)

	created, err := c.items.Create(ctx, ownerOf(owner), model.ItemTypeText, ItemInput{Title: "Notes", Content: "<p>First draft</p>"})
	require.NoError(t, err)
	assert.Equal(t, "First draft", created.(*model.Text).Excerpt)

	updated, err := c.items.Update(ctx, ownerOf(owner), model.ItemTypeText, created.ItemID(), ItemUpdate{Content: strPtr("<p>Second <b>draft</b></p>")})
	require.NoError(t, err)
	assert.Equal(t, "Second draft", updated.(*model.Text).Excerpt)
}
