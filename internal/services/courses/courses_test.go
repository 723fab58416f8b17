package courses_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/bitforex-academy/internal/kvstore"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/courses"
)

func TestService_CreateListDelete(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := courses.NewService(kvstore.New(kvstore.NewMemory(0), kvstore.NewHub(8), log))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	c1, err := svc.Create(ctx, "Forex basics", "Pips and lots", "beginner")
	require.NoError(t, err)
	assert.NotEmpty(t, c1.ID)
	c2, err := svc.Create(ctx, "Risk management", "Position sizing", "intermediate")
	require.NoError(t, err)

	list, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, c1, list[0])

	require.NoError(t, svc.Delete(ctx, c1.ID))
	assert.ErrorIs(t, svc.Delete(ctx, c1.ID), courses.ErrCourseNotFound)

	list, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{c2.ID}, []string{list[0].ID})
}
