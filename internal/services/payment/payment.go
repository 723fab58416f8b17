// Package payment принимает заявки на подписку с подтверждением оплаты
// и проводит по ним решения администратора.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/bitforex-academy/internal/kvstore"
	"github.com/magabrotheeeer/bitforex-academy/internal/lib/sl"
	"github.com/magabrotheeeer/bitforex-academy/internal/metrics"
	"github.com/magabrotheeeer/bitforex-academy/internal/models"
	"github.com/magabrotheeeer/bitforex-academy/internal/rabbitmq"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/notify"
)

var (
	// ErrRequestNotFound заявка не найдена.
	ErrRequestNotFound = errors.New("subscription request not found")
	// ErrAlreadyDecided по заявке уже принято решение.
	ErrAlreadyDecided = errors.New("subscription request already decided")
	// ErrAlreadyPending у пользователя уже есть заявка на рассмотрении.
	ErrAlreadyPending = errors.New("user already has a pending request")
	// ErrInvalidProof подтверждение оплаты пустое или не является изображением.
	ErrInvalidProof = errors.New("payment proof must be a base64 image data URL")
)

// PlanProvider находит план по id.
type PlanProvider interface {
	Get(ctx context.Context, id string) (models.Plan, error)
}

// UserActivator читает пользователя и активирует его подписку.
type UserActivator interface {
	Get(ctx context.Context, email string) (models.User, error)
	Activate(ctx context.Context, email, plan string) (models.User, error)
}

// Service заявки на подписку.
type Service struct {
	store     *kvstore.Store
	plans     PlanProvider
	users     UserActivator
	publisher notify.Publisher
	log       *slog.Logger
	now       func() time.Time
}

// NewService создаёт Service.
func NewService(store *kvstore.Store, plans PlanProvider, users UserActivator, publisher notify.Publisher, log *slog.Logger) *Service {
	return &Service{
		store:     store,
		plans:     plans,
		users:     users,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// Submit создаёт заявку пользователя userEmail на план planID по цене плана.
func (s *Service) Submit(ctx context.Context, userEmail, planID, proof string) (models.PendingSubscription, error) {
	const op = "services.payment.Submit"
	userEmail = strings.ToLower(strings.TrimSpace(userEmail))

	if !strings.HasPrefix(proof, "data:image/") || !strings.Contains(proof, ";base64,") {
		return models.PendingSubscription{}, fmt.Errorf("%s: %w", op, ErrInvalidProof)
	}
	if _, err := s.users.Get(ctx, userEmail); err != nil {
		return models.PendingSubscription{}, fmt.Errorf("%s: %w", op, err)
	}
	plan, err := s.plans.Get(ctx, planID)
	if err != nil {
		return models.PendingSubscription{}, fmt.Errorf("%s: %w", op, err)
	}

	req := models.PendingSubscription{
		ID:        uuid.NewString(),
		UserEmail: userEmail,
		Plan:      plan.ID,
		Price:     plan.Price,
		Proof:     proof,
		Status:    models.RequestPending,
		Created:   s.now().UnixMilli(),
	}
	_, err = kvstore.Update(ctx, s.store, kvstore.KeyPendingSubs, []models.PendingSubscription{}, func(list *[]models.PendingSubscription) error {
		for _, r := range *list {
			if r.UserEmail == userEmail && r.Status == models.RequestPending {
				return ErrAlreadyPending
			}
		}
		*list = append(*list, req)
		return nil
	})
	if err != nil {
		return models.PendingSubscription{}, fmt.Errorf("%s: %w", op, err)
	}
	return req, nil
}

// List возвращает заявки со статусом status, свежие сверху; пустой status означает все.
func (s *Service) List(ctx context.Context, status string) ([]models.PendingSubscription, error) {
	const op = "services.payment.List"
	out, err := s.filter(ctx, func(r models.PendingSubscription) bool {
		return status == "" || r.Status == status
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// ListForUser возвращает заявки пользователя, свежие сверху.
func (s *Service) ListForUser(ctx context.Context, userEmail string) ([]models.PendingSubscription, error) {
	const op = "services.payment.ListForUser"
	userEmail = strings.ToLower(strings.TrimSpace(userEmail))
	out, err := s.filter(ctx, func(r models.PendingSubscription) bool {
		return r.UserEmail == userEmail
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *Service) filter(ctx context.Context, keep func(models.PendingSubscription) bool) ([]models.PendingSubscription, error) {
	list, err := kvstore.ReadOr(ctx, s.store, kvstore.KeyPendingSubs, []models.PendingSubscription{})
	if err != nil {
		return nil, err
	}
	out := make([]models.PendingSubscription, 0, len(list))
	for _, r := range list {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Created > out[j].Created })
	return out, nil
}

// Approve одобряет заявку: пользователь получает план и статус Active.
func (s *Service) Approve(ctx context.Context, id string) (models.PendingSubscription, error) {
	const op = "services.payment.Approve"
	req, err := s.decide(ctx, id, models.RequestApproved)
	if err != nil {
		return models.PendingSubscription{}, fmt.Errorf("%s: %w", op, err)
	}
	return req, nil
}

// Reject отклоняет заявку.
func (s *Service) Reject(ctx context.Context, id string) (models.PendingSubscription, error) {
	const op = "services.payment.Reject"
	req, err := s.decide(ctx, id, models.RequestRejected)
	if err != nil {
		return models.PendingSubscription{}, fmt.Errorf("%s: %w", op, err)
	}
	return req, nil
}

// decide сначала переводит заявку в итоговый статус под блокировкой
// bf_pending_subs, и только затем активирует пользователя. Если активация
// не удалась, заявка возвращается в pending.
func (s *Service) decide(ctx context.Context, id, status string) (models.PendingSubscription, error) {
	decided, err := s.setStatus(ctx, id, models.RequestPending, status, s.now().UnixMilli())
	if err != nil {
		return models.PendingSubscription{}, err
	}
	if status == models.RequestApproved {
		if _, err := s.users.Activate(ctx, decided.UserEmail, decided.Plan); err != nil {
			if _, rbErr := s.setStatus(ctx, id, models.RequestApproved, models.RequestPending, 0); rbErr != nil {
				s.log.Error("failed to return request to pending", slog.String("request_id", id), sl.Err(rbErr))
			}
			return models.PendingSubscription{}, err
		}
	}

	metrics.PaymentDecisions.WithLabelValues(status).Inc()

	kind := models.NotifyPaymentApproved
	if status == models.RequestRejected {
		kind = models.NotifyPaymentRejected
	}
	msg := models.Notification{
		Kind:  kind,
		Email: decided.UserEmail,
		Data: map[string]string{
			"request_id": decided.ID,
			"plan":       decided.Plan,
			"price":      strconv.FormatFloat(decided.Price, 'f', 2, 64),
		},
	}
	if err := s.publisher.Publish(ctx, rabbitmq.RoutingPayments, msg); err != nil {
		s.log.Error("failed to publish payment decision", slog.String("request_id", id), sl.Err(err))
	}
	return decided, nil
}

// setStatus меняет статус заявки id с from на to. Заявка в другом статусе
// даёт ErrAlreadyDecided.
func (s *Service) setStatus(ctx context.Context, id, from, to string, decidedAt int64) (models.PendingSubscription, error) {
	var out models.PendingSubscription
	_, err := kvstore.Update(ctx, s.store, kvstore.KeyPendingSubs, []models.PendingSubscription{}, func(list *[]models.PendingSubscription) error {
		for i := range *list {
			if (*list)[i].ID != id {
				continue
			}
			if (*list)[i].Status != from {
				return ErrAlreadyDecided
			}
			(*list)[i].Status = to
			(*list)[i].Decided = decidedAt
			out = (*list)[i]
			return nil
		}
		return ErrRequestNotFound
	})
	if err != nil {
		return models.PendingSubscription{}, err
	}
	return out, nil
}

// Stale возвращает заявки, ожидающие решения дольше age.
func (s *Service) Stale(ctx context.Context, age time.Duration) ([]models.PendingSubscription, error) {
	const op = "services.payment.Stale"
	border := s.now().Add(-age).UnixMilli()
	out, err := s.filter(ctx, func(r models.PendingSubscription) bool {
		return r.Status == models.RequestPending && r.Created <= border
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}
