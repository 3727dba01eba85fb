package application

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduviet/eduviet-server/internal/domain/entity"
	"github.com/eduviet/eduviet-server/pkg/apperror"
)

func newTestUsers(store *memStore) *UserService {
	return NewUserService(store, nil, "", nil, quietLogger(), nil, "")
}

func TestUpdateProfileMutableFieldsOnly(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestUsers(store)
	u := seedUser(t, store, "u1", entity.RoleStudent, "student@example.com")

	updated, err := svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{
		Fullname: "New Name",
		School:   "THPT Le Hong Phong",
	})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Fullname)
	assert.Equal(t, "THPT Le Hong Phong", updated.School)

	// Untouched fields survive, empty inputs do not clear.
	assert.Equal(t, u.Email, updated.Email)
	assert.Equal(t, u.Slug, updated.Slug)

	again, err := svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{})
	require.NoError(t, err)
	assert.Equal(t, "New Name", again.Fullname)
}

func TestSoftDeleteHidesUserFromList(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestUsers(store)
	u := seedUser(t, store, "u1", entity.RoleStudent, "gone@example.com")
	seedUser(t, store, "u2", entity.RoleStudent, "stays@example.com")

	require.NoError(t, svc.SoftDelete(ctx, u.ID))

	// The row survives with deleted status.
	stored, err := store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDeleted, stored.Status)

	users, total, err := svc.List(ctx, pageAll())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "stays@example.com", users[0].Email)
}

func TestUploadAvatarWithoutStorageConfigured(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestUsers(store)
	u := seedUser(t, store, "u1", entity.RoleStudent, "student@example.com")

	_, err := svc.UploadAvatar(ctx, u.ID, strings.NewReader("png-bytes"), "me.png", "image/png")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindUnavailable))
}

func TestSearchUsersWithoutESConfigured(t *testing.T) {
	svc := newTestUsers(newMemStore())
	hits, err := svc.SearchUsers(context.Background(), "duc", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestNotificationLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewNotificationService(store)
	u := seedUser(t, store, "u1", entity.RoleStudent, "student@example.com")

	_, err := svc.Create(ctx, NotifyInput{UserID: u.ID, Body: "no title"})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindInvalidInput))

	_, err = svc.Create(ctx, NotifyInput{UserID: "ghost", Title: "Hi"})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	n, err := svc.Create(ctx, NotifyInput{UserID: u.ID, Title: "Welcome", Body: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "system", n.Kind)

	require.NoError(t, svc.MarkRead(ctx, n.ID, u.ID))
	list, _, err := svc.ListForUser(ctx, u.ID, pageAll())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsRead)

	// Another user cannot touch it.
	err = svc.Delete(ctx, n.ID, "someone-else")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	require.NoError(t, svc.Delete(ctx, n.ID, u.ID))
	list, _, err = svc.ListForUser(ctx, u.ID, pageAll())
	require.NoError(t, err)
	assert.Empty(t, list)
}
