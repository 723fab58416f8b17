// Package infra открывает общую инфраструктуру процессов академии:
// хранилище с рассылкой изменений и публикатор уведомлений.
package infra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/bitforex-academy/internal/config"
	"github.com/magabrotheeeer/bitforex-academy/internal/kvstore"
	"github.com/magabrotheeeer/bitforex-academy/internal/lib/sl"
	"github.com/magabrotheeeer/bitforex-academy/internal/migrations"
	"github.com/magabrotheeeer/bitforex-academy/internal/rabbitmq"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/chat"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/notify"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/passwords"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/payment"
)

// Значения storage_backend и notifier.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"

	NotifierLocal = "local"
	NotifierRedis = "redis"
)

const redisPrefix = "academy:"

// hubBuffer размер буфера уведомлений на одного подписчика.
const hubBuffer = 64

// ErrUnknownBackend неизвестное значение storage_backend или notifier.
var ErrUnknownBackend = errors.New("unknown backend")

// Closer освобождает ресурсы в порядке, обратном открытию.
type Closer struct {
	fns []func() error
}

// Add регистрирует функцию освобождения ресурса.
func (c *Closer) Add(fn func() error) {
	c.fns = append(c.fns, fn)
}

// Close вызывает все зарегистрированные функции, ошибки только логируются.
func (c *Closer) Close(log *slog.Logger) {
	for i := len(c.fns) - 1; i >= 0; i-- {
		if err := c.fns[i](); err != nil {
			log.Warn("failed to release resource", sl.Err(err))
		}
	}
	c.fns = nil
}

// OpenStore создаёт хранилище по настройкам cfg и регистрирует политики
// очистки коллекций при переполнении. Для notifier=redis запускает в фоне
// ретрансляцию изменений между экземплярами, она живёт до отмены ctx.
func OpenStore(ctx context.Context, cfg *config.Config, log *slog.Logger, closer *Closer) (*kvstore.Store, error) {
	const op = "infra.OpenStore"

	var (
		backend kvstore.Backend
		client  *redis.Client
	)
	redisClient := func() (*redis.Client, error) {
		if client != nil {
			return client, nil
		}
		c, err := kvstore.InitRedis(ctx, cfg.RedisConnection)
		if err != nil {
			return nil, err
		}
		closer.Add(c.Close)
		client = c
		return c, nil
	}

	switch cfg.StorageBackend {
	case BackendMemory, "":
		backend = kvstore.NewMemory(cfg.QuotaBytes)
	case BackendRedis:
		c, err := redisClient()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		backend = kvstore.NewRedis(c, redisPrefix, cfg.MaxValueBytes)
	case BackendPostgres:
		pg, err := kvstore.NewPostgres(cfg.StorageConnectionString, cfg.QuotaBytes)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		closer.Add(pg.Close)
		if err := migrations.Run(pg.DB(), cfg.MigrationsPath); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		backend = pg
	default:
		return nil, fmt.Errorf("%s: storage %q: %w", op, cfg.StorageBackend, ErrUnknownBackend)
	}

	hub := kvstore.NewHub(hubBuffer)
	var notifier kvstore.Notifier = hub
	switch cfg.Notifier {
	case NotifierLocal, "":
	case NotifierRedis:
		c, err := redisClient()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		relay := kvstore.NewRedisNotifier(c, cfg.ChangeChannel, hub, log)
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.Error("change relay stopped", sl.Err(err))
			}
		}()
		notifier = relay
	default:
		return nil, fmt.Errorf("%s: notifier %q: %w", op, cfg.Notifier, ErrUnknownBackend)
	}

	store := kvstore.New(backend, notifier, log)
	store.RegisterCompactor(kvstore.KeyMessages, chat.Compactor(cfg.ImagePayloadMax, cfg.HistoryCap))
	store.RegisterCompactor(kvstore.KeyPendingSubs, payment.Compactor(cfg.ImagePayloadMax))
	store.RegisterCompactor(kvstore.KeyPasswordRequests, passwords.Compactor(cfg.HistoryCap))

	log.Info("storage opened",
		slog.String("backend", cfg.StorageBackend),
		slog.String("notifier", cfg.Notifier),
	)
	return store, nil
}

// OpenPublisher возвращает публикатор уведомлений в RabbitMQ или, если
// брокер не настроен, публикатор, который только пишет уведомления в лог.
func OpenPublisher(cfg *config.Config, log *slog.Logger, closer *Closer) (notify.Publisher, error) {
	const op = "infra.OpenPublisher"
	if cfg.RabbitMQURL == "" {
		log.Warn("rabbitmq is not configured, notifications are only logged")
		return notify.NewLogPublisher(log), nil
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	closer.Add(conn.Close)

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationQueues())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	closer.Add(ch.Close)

	log.Info("connected to rabbitmq")
	return rabbitmq.NewPublisher(ch), nil
}
