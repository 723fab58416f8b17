// Package notify описывает отправку уведомлений из сервисов академии в очередь писем.
package notify

import (
	"context"
	"log/slog"
)

// Publisher публикует уведомление msg с ключом маршрутизации routingKey.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, msg any) error
}

// LogPublisher пишет уведомления в лог. Используется, когда брокер не настроен.
type LogPublisher struct {
	log *slog.Logger
}

// NewLogPublisher создаёт LogPublisher.
func NewLogPublisher(log *slog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

// Publish логирует уведомление и никогда не возвращает ошибку.
func (p *LogPublisher) Publish(_ context.Context, routingKey string, msg any) error {
	p.log.Info("notification (broker disabled)", slog.String("routing_key", routingKey), slog.Any("message", msg))
	return nil
}
