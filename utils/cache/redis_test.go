package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r, err := NewRedisCache("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func TestJSONRoundTripAndMiss(t *testing.T) {
	r, _ := newTestCache(t)
	ctx := context.Background()

	type subject struct {
		Title string `json:"title"`
	}
	var got subject
	assert.ErrorIs(t, r.GetJSON(ctx, "subject:1", &got), ErrNotFound)

	require.NoError(t, r.SetJSON(ctx, "subject:1", subject{Title: "Music"}, time.Minute))
	require.NoError(t, r.GetJSON(ctx, "subject:1", &got))
	assert.Equal(t, "Music", got.Title)

	require.NoError(t, r.Delete(ctx, "subject:1"))
	assert.ErrorIs(t, r.GetJSON(ctx, "subject:1", &got), ErrNotFound)
}

func TestDeletePrefix(t *testing.T) {
	r, mr := newTestCache(t)
	ctx := context.Background()
	for _, key := range []string{"subject:1", "subject:2", "course:1"} {
		require.NoError(t, mr.Set(key, "x"))
	}

	require.NoError(t, r.DeletePrefix(ctx, "subject:"))
	assert.False(t, mr.Exists("subject:1"))
	assert.False(t, mr.Exists("subject:2"))
	assert.True(t, mr.Exists("course:1"))
}

func TestIncrementStartsWindowOnce(t *testing.T) {
	r, mr := newTestCache(t)
	ctx := context.Background()

	n, err := r.Increment(ctx, "attempts", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	mr.FastForward(30 * time.Second)
	n, err = r.Increment(ctx, "attempts", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 30*time.Second, mr.TTL("attempts"))

	mr.FastForward(31 * time.Second)
	assert.False(t, mr.Exists("attempts"))
}

func TestMarkAndTTL(t *testing.T) {
	r, mr := newTestCache(t)
	ctx := context.Background()

	ttl, err := r.TTL(ctx, "lock")
	require.NoError(t, err)
	assert.Zero(t, ttl)

	require.NoError(t, r.Mark(ctx, "lock", 2*time.Minute))
	ttl, err = r.TTL(ctx, "lock")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, ttl)

	mr.FastForward(3 * time.Minute)
	ttl, err = r.TTL(ctx, "lock")
	require.NoError(t, err)
	assert.Zero(t, ttl)
}
