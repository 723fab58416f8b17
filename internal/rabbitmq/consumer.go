package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/bitforex-academy/internal/lib/sl"
)

// ConsumerMessage запускает потребителя очереди queueName. Сообщения обрабатываются
// параллельно, не более десяти одновременно; при ошибке handler сообщение
// возвращается в очередь.
func ConsumerMessage(ctx context.Context, log *slog.Logger, ch *amqp.Channel, queueName string, handler func([]byte) error) error {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	go dispatch(ctx, log.With(slog.String("queue", queueName)), delivery, handler, maxInFlight)
	return nil
}

const maxInFlight = 10

// dispatch раздаёт сообщения обработчикам, не более limit одновременно.
// После отмены ctx сообщение, ожидающее свободного обработчика, возвращается в очередь.
func dispatch(ctx context.Context, log *slog.Logger, deliveries <-chan amqp.Delivery, handler func([]byte) error, limit int) {
	sem := make(chan struct{}, limit)
	for {
		select {
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				if nackErr := d.Nack(false, true); nackErr != nil {
					log.Error("failed to nack message", sl.Err(nackErr))
				}
				return
			}
			go func(delivery amqp.Delivery) {
				defer func() { <-sem }()
				if err := handler(delivery.Body); err != nil {
					log.Error("failed to handle message", sl.Err(err))
					if nackErr := delivery.Nack(false, true); nackErr != nil {
						log.Error("failed to nack message", sl.Err(nackErr))
					}
					return
				}
				if ackErr := delivery.Ack(false); ackErr != nil {
					log.Error("failed to ack message", sl.Err(ackErr))
				}
			}(d)
		case <-ctx.Done():
			return
		}
	}
}
