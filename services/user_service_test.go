package services

import (
	"context"
	"testing"

	"github.com/sahilchouksey/course-catalog/model"
	"github.com/sahilchouksey/course-catalog/utils/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	users := NewUserService(testutil.DB(t))
	ctx := context.Background()

	user, err := users.Register(ctx, "  Ada@Example.com ", "correct-horse-1", "Ada")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, model.RoleStudent, user.Role)
	assert.NotEqual(t, "correct-horse-1", user.PasswordHash)

	_, err = users.Register(ctx, "ada@example.com", "another-pass-2", "Ada Again")
	assert.ErrorIs(t, err, ErrEmailTaken)

	got, err := users.Authenticate(ctx, "ADA@example.com", "correct-horse-1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = users.Authenticate(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = users.Authenticate(ctx, "nobody@example.com", "correct-horse-1")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestUpdateProfilePasswordBumpsTokenVersion(t *testing.T) {
	users := NewUserService(testutil.DB(t))
	ctx := context.Background()
	user, err := users.Register(ctx, "grace@example.com", "first-pass-1", "Grace")
	require.NoError(t, err)

	renamed, err := users.UpdateProfile(ctx, user.ID, ProfileUpdate{Name: strPtr("Grace H")})
	require.NoError(t, err)
	assert.Equal(t, "Grace H", renamed.Name)
	assert.Equal(t, user.TokenVersion, renamed.TokenVersion)

	changed, err := users.UpdateProfile(ctx, user.ID, ProfileUpdate{Password: strPtr("second-pass-2")})
	require.NoError(t, err)
	assert.Equal(t, user.TokenVersion+1, changed.TokenVersion)

	_, err = users.Authenticate(ctx, "grace@example.com", "second-pass-2")
	assert.NoError(t, err)

	_, err = users.UpdateProfile(ctx, 9999, ProfileUpdate{})
	assert.ErrorIs(t, err, ErrUserNotFound)
}
