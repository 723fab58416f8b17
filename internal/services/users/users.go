// Package users управляет учётными записями пользователей от имени администратора.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/bitforex-academy/internal/kvstore"
	"github.com/magabrotheeeer/bitforex-academy/internal/models"
)

var (
	// ErrUserNotFound пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidStatus неизвестный статус учётной записи.
	ErrInvalidStatus = errors.New("invalid user status")
)

// Service операции администратора над пользователями.
type Service struct {
	store *kvstore.Store
}

// NewService создаёт Service.
func NewService(store *kvstore.Store) *Service {
	return &Service{store: store}
}

// List возвращает всех пользователей без хешей паролей.
func (s *Service) List(ctx context.Context) ([]models.User, error) {
	const op = "services.users.List"
	list, err := kvstore.ReadOr(ctx, s.store, kvstore.KeyUsers, []models.User{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := make([]models.User, 0, len(list))
	for _, u := range list {
		out = append(out, u.Public())
	}
	return out, nil
}

// Get возвращает пользователя по email.
func (s *Service) Get(ctx context.Context, email string) (models.User, error) {
	const op = "services.users.Get"
	email = normalize(email)
	list, err := kvstore.ReadOr(ctx, s.store, kvstore.KeyUsers, []models.User{})
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	for _, u := range list {
		if normalize(u.Email) == email {
			return u.Public(), nil
		}
	}
	return models.User{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
}

// SetStatus меняет статус учётной записи.
func (s *Service) SetStatus(ctx context.Context, email, status string) (models.User, error) {
	const op = "services.users.SetStatus"
	switch status {
	case models.StatusActive, models.StatusInactive, models.StatusBlocked:
	default:
		return models.User{}, fmt.Errorf("%s: %w", op, ErrInvalidStatus)
	}
	user, err := s.modify(ctx, email, func(u *models.User) { u.Status = status })
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// Activate назначает пользователю план и делает учётную запись активной.
func (s *Service) Activate(ctx context.Context, email, plan string) (models.User, error) {
	const op = "services.users.Activate"
	user, err := s.modify(ctx, email, func(u *models.User) {
		u.Plan = plan
		u.Status = models.StatusActive
	})
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// SetPasswordHash заменяет хеш пароля пользователя.
func (s *Service) SetPasswordHash(ctx context.Context, email, hash string) error {
	const op = "services.users.SetPasswordHash"
	if _, err := s.modify(ctx, email, func(u *models.User) { u.Password = hash }); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Delete удаляет пользователя из коллекции.
func (s *Service) Delete(ctx context.Context, email string) error {
	const op = "services.users.Delete"
	email = normalize(email)
	_, err := kvstore.Update(ctx, s.store, kvstore.KeyUsers, []models.User{}, func(list *[]models.User) error {
		for i, u := range *list {
			if normalize(u.Email) == email {
				*list = append((*list)[:i], (*list)[i+1:]...)
				return nil
			}
		}
		return ErrUserNotFound
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Service) modify(ctx context.Context, email string, fn func(*models.User)) (models.User, error) {
	email = normalize(email)
	var found models.User
	_, err := kvstore.Update(ctx, s.store, kvstore.KeyUsers, []models.User{}, func(list *[]models.User) error {
		for i := range *list {
			if normalize((*list)[i].Email) == email {
				fn(&(*list)[i])
				found = (*list)[i]
				return nil
			}
		}
		return ErrUserNotFound
	})
	if err != nil {
		return models.User{}, err
	}
	return found.Public(), nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
