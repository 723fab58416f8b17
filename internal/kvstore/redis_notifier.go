package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/bitforex-academy/internal/lib/sl"
)

// RedisNotifier публикует изменения в канал redis, а Run пересылает
// полученные из канала изменения в локальный Hub. Так клиенты одного
// экземпляра узнают о записях, сделанных через другой.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	hub     *Hub
	log     *slog.Logger
}

// NewRedisNotifier создаёт RedisNotifier поверх локального hub.
func NewRedisNotifier(client *redis.Client, channel string, hub *Hub, log *slog.Logger) *RedisNotifier {
	return &RedisNotifier{
		client:  client,
		channel: channel,
		hub:     hub,
		log:     log,
	}
}

func (n *RedisNotifier) Publish(ctx context.Context, ch Change) error {
	const op = "kvstore.RedisNotifier.Publish"
	data, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := n.client.Publish(ctx, n.channel, data).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (n *RedisNotifier) Subscribe(origin string, keys ...string) *Subscription {
	return n.hub.Subscribe(origin, keys...)
}

// Run слушает канал до отмены контекста.
func (n *RedisNotifier) Run(ctx context.Context) error {
	const op = "kvstore.RedisNotifier.Run"
	ps := n.client.Subscribe(ctx, n.channel)
	defer func() {
		if err := ps.Close(); err != nil {
			n.log.Warn("failed to close pubsub", sl.Err(err))
		}
	}()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n.log.Info("listening for changes", slog.String("channel", n.channel))

	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var ch Change
			if err := json.Unmarshal([]byte(msg.Payload), &ch); err != nil {
				n.log.Warn("malformed change notification", sl.Err(err))
				continue
			}
			n.hub.deliver(ch)
		}
	}
}
