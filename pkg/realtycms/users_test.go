package realtycms_test

import (
	"context"
	"testing"

	"github.com/indrealty/realty-cms/pkg/realtycms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("RegisterNeverAdmin", func(t *testing.T) {
		assert.False(t, f.user.IsAdmin)
	})

	t.Run("DuplicateUID", func(t *testing.T) {
		_, err := f.svc.Users.Register(ctx, realtycms.RegisterUserRequest{UID: "uid-user", Email: "x@example.org", Username: "other"})
		assert.ErrorIs(t, err, realtycms.ErrConflict)
		assert.Equal(t, "User already exists", realtycms.Message(err))
	})

	t.Run("Validation", func(t *testing.T) {
		_, err := f.svc.Users.Register(ctx, realtycms.RegisterUserRequest{UID: "u", Email: "not-an-email", Username: "n"})
		assert.ErrorIs(t, err, realtycms.ErrValidation)
		assert.Equal(t, "email must be a valid email address", realtycms.Message(err))
	})

	t.Run("UpsertProviderUser", func(t *testing.T) {
		created, err := f.svc.Users.UpsertProviderUser(ctx, realtycms.RegisterUserRequest{
			UID: "google-1", Email: "g@example.org", Username: "gina", ProviderID: "google.com",
		})
		require.NoError(t, err)

		updated, err := f.svc.Users.UpsertProviderUser(ctx, realtycms.RegisterUserRequest{
			UID: "google-1", Email: "gina@example.org", Username: "gina", DisplayName: "Gina",
		})
		require.NoError(t, err)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "gina@example.org", updated.Email)
		assert.Equal(t, "Gina", updated.DisplayName)
		assert.Equal(t, "google.com", updated.ProviderID)
		assert.False(t, updated.IsAdmin)
	})

	t.Run("SetAdminUnlocksWrites", func(t *testing.T) {
		_, err := f.svc.Properties.Create(ctx, propertyRequest("Before promotion"), "reader")
		require.ErrorIs(t, err, realtycms.ErrForbidden)

		promoted, err := f.svc.Users.SetAdmin(ctx, "reader", true)
		require.NoError(t, err)
		assert.True(t, promoted.IsAdmin)

		_, err = f.svc.Properties.Create(ctx, propertyRequest("After promotion"), "reader")
		assert.NoError(t, err)
	})

	t.Run("GetByUIDNotFound", func(t *testing.T) {
		_, err := f.svc.Users.GetByUID(ctx, "missing")
		assert.ErrorIs(t, err, realtycms.ErrNotFound)
		assert.Equal(t, "User not found", realtycms.Message(err))
	})
}
