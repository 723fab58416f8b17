// Package passwords обрабатывает заявки на сброс пароля со стороны администратора.
package passwords

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/bitforex-academy/internal/kvstore"
	"github.com/magabrotheeeer/bitforex-academy/internal/lib/password"
	"github.com/magabrotheeeer/bitforex-academy/internal/lib/sl"
	"github.com/magabrotheeeer/bitforex-academy/internal/models"
	"github.com/magabrotheeeer/bitforex-academy/internal/rabbitmq"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/notify"
)

var (
	// ErrRequestNotFound заявка не найдена.
	ErrRequestNotFound = errors.New("password request not found")
	// ErrAlreadyResolved заявка уже закрыта.
	ErrAlreadyResolved = errors.New("password request already resolved")
)

// UserUpdater меняет пароль пользователя.
type UserUpdater interface {
	SetPasswordHash(ctx context.Context, email, hash string) error
}

// Service заявки на сброс пароля.
type Service struct {
	store     *kvstore.Store
	users     UserUpdater
	publisher notify.Publisher
	log       *slog.Logger
}

// NewService создаёт Service.
func NewService(store *kvstore.Store, users UserUpdater, publisher notify.Publisher, log *slog.Logger) *Service {
	return &Service{
		store:     store,
		users:     users,
		publisher: publisher,
		log:       log,
	}
}

// List возвращает заявки; пустой status означает все.
func (s *Service) List(ctx context.Context, status string) ([]models.PasswordRequest, error) {
	const op = "services.passwords.List"
	list, err := kvstore.ReadOr(ctx, s.store, kvstore.KeyPasswordRequests, []models.PasswordRequest{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if status == "" {
		return list, nil
	}
	out := make([]models.PasswordRequest, 0, len(list))
	for _, r := range list {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}

// Resolve устанавливает пользователю новый пароль, закрывает заявку
// и отправляет пользователю уведомление.
func (s *Service) Resolve(ctx context.Context, id, newPassword string) (models.PasswordRequest, error) {
	const op = "services.passwords.Resolve"

	list, err := kvstore.ReadOr(ctx, s.store, kvstore.KeyPasswordRequests, []models.PasswordRequest{})
	if err != nil {
		return models.PasswordRequest{}, fmt.Errorf("%s: %w", op, err)
	}
	var req *models.PasswordRequest
	for i := range list {
		if list[i].ID == id {
			req = &list[i]
			break
		}
	}
	if req == nil {
		return models.PasswordRequest{}, fmt.Errorf("%s: %w", op, ErrRequestNotFound)
	}
	if req.Status == models.PasswordRequestResolved {
		return models.PasswordRequest{}, fmt.Errorf("%s: %w", op, ErrAlreadyResolved)
	}

	hash, err := password.GetHash(newPassword)
	if err != nil {
		return models.PasswordRequest{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.SetPasswordHash(ctx, req.Email, hash); err != nil {
		return models.PasswordRequest{}, fmt.Errorf("%s: %w", op, err)
	}

	var resolved models.PasswordRequest
	_, err = kvstore.Update(ctx, s.store, kvstore.KeyPasswordRequests, []models.PasswordRequest{}, func(list *[]models.PasswordRequest) error {
		for i := range *list {
			if (*list)[i].ID != id {
				continue
			}
			if (*list)[i].Status == models.PasswordRequestResolved {
				return ErrAlreadyResolved
			}
			(*list)[i].Status = models.PasswordRequestResolved
			(*list)[i].Resolved = time.Now().UnixMilli()
			resolved = (*list)[i]
			return nil
		}
		return ErrRequestNotFound
	})
	if err != nil {
		return models.PasswordRequest{}, fmt.Errorf("%s: %w", op, err)
	}

	msg := models.Notification{
		Kind:  models.NotifyPasswordReset,
		Email: resolved.Email,
		Data:  map[string]string{"password": newPassword},
	}
	if err := s.publisher.Publish(ctx, rabbitmq.RoutingPassword, msg); err != nil {
		s.log.Error("failed to publish password reset", sl.Err(err))
	}
	return resolved, nil
}
