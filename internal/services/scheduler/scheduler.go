// Package scheduler периодически напоминает администратору о заявках,
// которые слишком долго ждут решения.
package scheduler

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/magabrotheeeer/bitforex-academy/internal/lib/sl"
	"github.com/magabrotheeeer/bitforex-academy/internal/models"
	"github.com/magabrotheeeer/bitforex-academy/internal/rabbitmq"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/notify"
)

// RequestFinder находит заявки, ожидающие решения дольше age.
type RequestFinder interface {
	Stale(ctx context.Context, age time.Duration) ([]models.PendingSubscription, error)
}

// AdminProvider возвращает учётную запись администратора.
type AdminProvider interface {
	Admin(ctx context.Context) (models.Admin, error)
}

// Service планировщик напоминаний.
type Service struct {
	requests  RequestFinder
	admin     AdminProvider
	publisher notify.Publisher
	log       *slog.Logger
}

// NewService создаёт Service.
func NewService(requests RequestFinder, admin AdminProvider, publisher notify.Publisher, log *slog.Logger) *Service {
	return &Service{
		requests:  requests,
		admin:     admin,
		publisher: publisher,
		log:       log,
	}
}

// RemindPending сразу проверяет заявки, а затем повторяет проверку каждые interval
// до отмены ctx.
func (s *Service) RemindPending(ctx context.Context, interval, age time.Duration) {
	s.runRemindPending(ctx, age)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runRemindPending(ctx, age)
		}
	}
}

func (s *Service) runRemindPending(ctx context.Context, age time.Duration) int {
	s.log.Info("looking for stale subscription requests")
	stale, err := s.requests.Stale(ctx, age)
	if err != nil {
		s.log.Error("failed to find stale requests", sl.Err(err))
		return 0
	}
	if len(stale) == 0 {
		s.log.Info("no stale requests found")
		return 0
	}

	admin, err := s.admin.Admin(ctx)
	if err != nil {
		s.log.Error("failed to read admin account", sl.Err(err))
		return 0
	}
	if admin.Email == "" {
		s.log.Warn("admin account is not configured, skipping reminders", slog.Int("count", len(stale)))
		return 0
	}

	s.log.Info("found stale requests", slog.Int("count", len(stale)))
	var sent int
	for _, r := range stale {
		msg := models.Notification{
			Kind:  models.NotifyPaymentPending,
			Email: admin.Email,
			Name:  admin.Name,
			Data: map[string]string{
				"request_id": r.ID,
				"user_email": r.UserEmail,
				"plan":       r.Plan,
				"created":    strconv.FormatInt(r.Created, 10),
			},
		}
		if err := s.publisher.Publish(ctx, rabbitmq.RoutingReminders, msg); err != nil {
			s.log.Error("failed to publish reminder", slog.String("request_id", r.ID), sl.Err(err))
			continue
		}
		sent++
	}
	return sent
}
