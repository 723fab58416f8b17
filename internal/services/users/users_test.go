package users_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/bitforex-academy/internal/kvstore"
	"github.com/magabrotheeeer/bitforex-academy/internal/models"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/users"
)

func seed(t *testing.T) (*users.Service, *kvstore.Store) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := kvstore.New(kvstore.NewMemory(0), kvstore.NewHub(8), log)
	require.NoError(t, store.Write(context.Background(), kvstore.KeyUsers, []models.User{
		{Name: "Ann", Email: "ann@example.com", Password: "hash-a", Status: models.StatusInactive, Plan: models.PlanNone},
		{Name: "Bob", Email: "bob@example.com", Password: "hash-b", Status: models.StatusActive, Plan: "pro"},
	}))
	return users.NewService(store), store
}

func TestService_ListHidesPasswords(t *testing.T) {
	svc, _ := seed(t)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, u := range list {
		assert.Empty(t, u.Password)
	}
}

func TestService_Get(t *testing.T) {
	svc, _ := seed(t)

	u, err := svc.Get(context.Background(), "BOB@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Bob", u.Name)

	_, err = svc.Get(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, users.ErrUserNotFound)
}

func TestService_SetStatus(t *testing.T) {
	ctx := context.Background()
	svc, store := seed(t)

	u, err := svc.SetStatus(ctx, "ann@example.com", models.StatusBlocked)
	require.NoError(t, err)
	assert.Equal(t, models.StatusBlocked, u.Status)

	_, err = svc.SetStatus(ctx, "ann@example.com", "Deleted")
	assert.ErrorIs(t, err, users.ErrInvalidStatus)

	_, err = svc.SetStatus(ctx, "ghost@example.com", models.StatusActive)
	assert.ErrorIs(t, err, users.ErrUserNotFound)

	raw, err := kvstore.ReadOr(ctx, store, kvstore.KeyUsers, []models.User{})
	require.NoError(t, err)
	assert.Equal(t, "hash-a", raw[0].Password, "status change keeps the password hash")
}

func TestService_ActivateAndPassword(t *testing.T) {
	ctx := context.Background()
	svc, store := seed(t)

	u, err := svc.Activate(ctx, "ann@example.com", "vip")
	require.NoError(t, err)
	assert.Equal(t, "vip", u.Plan)
	assert.Equal(t, models.StatusActive, u.Status)

	require.NoError(t, svc.SetPasswordHash(ctx, "ann@example.com", "hash-new"))
	raw, err := kvstore.ReadOr(ctx, store, kvstore.KeyUsers, []models.User{})
	require.NoError(t, err)
	assert.Equal(t, "hash-new", raw[0].Password)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, _ := seed(t)

	require.NoError(t, svc.Delete(ctx, "ann@example.com"))
	assert.ErrorIs(t, svc.Delete(ctx, "ann@example.com"), users.ErrUserNotFound)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "bob@example.com", list[0].Email)
}
