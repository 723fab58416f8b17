package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/bitforex-academy/internal/config"
)

// InitRedis создаёт клиент redis по конфигу и проверяет соединение.
func InitRedis(ctx context.Context, cfg config.RedisConnection) (*redis.Client, error) {
	const op = "kvstore.InitRedis"
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return client, nil
}

// Redis backend поверх redis. Ключи хранятся с префиксом.
// Ответ OOM от сервера и превышение maxValue считаются переполнением квоты.
type Redis struct {
	client   *redis.Client
	prefix   string
	maxValue int64
}

// NewRedis создаёт Redis backend; maxValue 0 означает без ограничения на значение.
func NewRedis(client *redis.Client, prefix string, maxValue int64) *Redis {
	return &Redis{
		client:   client,
		prefix:   prefix,
		maxValue: maxValue,
	}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const op = "kvstore.Redis.Get"
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	const op = "kvstore.Redis.Set"
	if r.maxValue > 0 && int64(len(value)) > r.maxValue {
		return fmt.Errorf("%s: %q is %d bytes: %w", op, key, len(value), ErrQuotaExceeded)
	}
	err := r.client.Set(ctx, r.prefix+key, value, 0).Err()
	if err != nil && strings.HasPrefix(err.Error(), "OOM") {
		return fmt.Errorf("%s: %w: %s", op, ErrQuotaExceeded, err.Error())
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	const op = "kvstore.Redis.Delete"
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *Redis) Keys(ctx context.Context) ([]string, error) {
	const op = "kvstore.Redis.Keys"
	var keys []string
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return keys, nil
}
