package infra

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/bitforex-academy/internal/config"
	"github.com/magabrotheeeer/bitforex-academy/internal/kvstore"
	"github.com/magabrotheeeer/bitforex-academy/internal/models"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/notify"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestCloser_ReverseOrder(t *testing.T) {
	var order []int
	var c Closer
	c.Add(func() error { order = append(order, 1); return nil })
	c.Add(func() error { order = append(order, 2); return errors.New("ignored") })
	c.Add(func() error { order = append(order, 3); return nil })

	c.Close(newNoopLogger())
	c.Close(newNoopLogger())

	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestOpenStore_Memory(t *testing.T) {
	var closer Closer
	cfg := &config.Config{StorageBackend: BackendMemory, Notifier: NotifierLocal}
	cfg.QuotaBytes = 1 << 20
	cfg.ImagePayloadMax = 1000
	cfg.HistoryCap = 10

	store, err := OpenStore(context.Background(), cfg, newNoopLogger(), &closer)
	require.NoError(t, err)
	defer closer.Close(newNoopLogger())

	require.NoError(t, store.Write(context.Background(), kvstore.KeyPlans, models.DefaultPlans()))
	plans, err := kvstore.ReadOr(context.Background(), store, kvstore.KeyPlans, []models.Plan{})
	require.NoError(t, err)
	assert.Len(t, plans, 3)
}

func TestOpenStore_Unknown(t *testing.T) {
	var closer Closer
	_, err := OpenStore(context.Background(), &config.Config{StorageBackend: "sqlite"}, newNoopLogger(), &closer)
	assert.ErrorIs(t, err, ErrUnknownBackend)

	_, err = OpenStore(context.Background(), &config.Config{StorageBackend: BackendMemory, Notifier: "kafka"}, newNoopLogger(), &closer)
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestOpenStore_RedisRelaysBetweenInstances(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &config.Config{StorageBackend: BackendRedis, Notifier: NotifierRedis}
	cfg.AddressRedis = mr.Addr()
	cfg.ChangeChannel = "academy:changes"
	cfg.ImagePayloadMax = 1000
	cfg.HistoryCap = 10

	var c1, c2 Closer
	defer c1.Close(newNoopLogger())
	defer c2.Close(newNoopLogger())
	first, err := OpenStore(ctx, cfg, newNoopLogger(), &c1)
	require.NoError(t, err)
	second, err := OpenStore(ctx, cfg, newNoopLogger(), &c2)
	require.NoError(t, err)

	got := make(chan kvstore.Change, 1)
	go func() {
		_ = second.Watch(ctx, "tab-2", []string{kvstore.KeyCourses}, func(_ context.Context, ch kvstore.Change, _ []byte) error {
			got <- ch
			return nil
		})
	}()

	// ретранслятор подписывается на канал асинхронно
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub("academy:changes")["academy:changes"] >= 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, first.Write(kvstore.WithOrigin(ctx, "tab-1"), kvstore.KeyCourses, []models.Course{{ID: "c1"}}))

	select {
	case ch := <-got:
		assert.Equal(t, kvstore.KeyCourses, ch.Key)
		assert.Equal(t, "tab-1", ch.Origin)
	case <-time.After(2 * time.Second):
		t.Fatal("change from the other instance was not delivered")
	}

	courses, err := kvstore.ReadOr(ctx, second, kvstore.KeyCourses, []models.Course{})
	require.NoError(t, err)
	assert.Len(t, courses, 1, "instances share the redis backend")
}

func TestOpenPublisher_WithoutBroker(t *testing.T) {
	var closer Closer
	pub, err := OpenPublisher(&config.Config{}, newNoopLogger(), &closer)
	require.NoError(t, err)

	_, ok := pub.(*notify.LogPublisher)
	assert.True(t, ok)
	assert.NoError(t, pub.Publish(context.Background(), "payments", models.Notification{Kind: models.NotifyPaymentApproved}))
}
