package passwords_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/bitforex-academy/internal/kvstore"
	"github.com/magabrotheeeer/bitforex-academy/internal/lib/password"
	"github.com/magabrotheeeer/bitforex-academy/internal/models"
	"github.com/magabrotheeeer/bitforex-academy/internal/rabbitmq"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/passwords"
)

type UserUpdaterMock struct {
	mock.Mock
}

func (m *UserUpdaterMock) SetPasswordHash(ctx context.Context, email, hash string) error {
	args := m.Called(ctx, email, hash)
	return args.Error(0)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, msg any) error {
	args := m.Called(ctx, routingKey, msg)
	return args.Error(0)
}

func setup(t *testing.T) (*passwords.Service, *kvstore.Store, *UserUpdaterMock, *PublisherMock) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := kvstore.New(kvstore.NewMemory(0), kvstore.NewHub(8), log)
	require.NoError(t, store.Write(context.Background(), kvstore.KeyPasswordRequests, []models.PasswordRequest{
		{ID: "r1", Email: "ann@example.com", Status: models.PasswordRequestOpen, Created: 1},
		{ID: "r2", Email: "bob@example.com", Status: models.PasswordRequestResolved, Created: 2, Resolved: 3},
	}))
	users := new(UserUpdaterMock)
	pub := new(PublisherMock)
	return passwords.NewService(store, users, pub, log), store, users, pub
}

func TestService_List(t *testing.T) {
	svc, _, _, _ := setup(t)
	ctx := context.Background()

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	open, err := svc.List(ctx, models.PasswordRequestOpen)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "r1", open[0].ID)
}

func TestService_Resolve(t *testing.T) {
	svc, store, users, pub := setup(t)
	ctx := context.Background()

	users.On("SetPasswordHash", mock.Anything, "ann@example.com", mock.MatchedBy(func(hash string) bool {
		return password.CompareHash(hash, "newpass1") == nil
	})).Return(nil).Once()
	pub.On("Publish", mock.Anything, rabbitmq.RoutingPassword, mock.MatchedBy(func(n models.Notification) bool {
		return n.Kind == models.NotifyPasswordReset && n.Email == "ann@example.com"
	})).Return(nil).Once()

	req, err := svc.Resolve(ctx, "r1", "newpass1")
	require.NoError(t, err)
	assert.Equal(t, models.PasswordRequestResolved, req.Status)
	assert.NotZero(t, req.Resolved)

	open, err := svc.List(ctx, models.PasswordRequestOpen)
	require.NoError(t, err)
	assert.Empty(t, open)

	_, ok, err := store.UpdatedAt(ctx, kvstore.KeyPasswordRequests)
	require.NoError(t, err)
	assert.True(t, ok)

	users.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestService_ResolveErrors(t *testing.T) {
	svc, _, users, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, "missing", "x")
	assert.ErrorIs(t, err, passwords.ErrRequestNotFound)

	_, err = svc.Resolve(ctx, "r2", "x")
	assert.ErrorIs(t, err, passwords.ErrAlreadyResolved)

	users.On("SetPasswordHash", mock.Anything, "ann@example.com", mock.Anything).Return(errors.New("user not found")).Once()
	_, err = svc.Resolve(ctx, "r1", "x")
	assert.Error(t, err)

	open, err := svc.List(ctx, models.PasswordRequestOpen)
	require.NoError(t, err)
	assert.Len(t, open, 1, "failed resolve keeps the request open")
}
