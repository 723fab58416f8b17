// Package courses управляет каталогом учебных курсов.
package courses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/bitforex-academy/internal/kvstore"
	"github.com/magabrotheeeer/bitforex-academy/internal/models"
)

// ErrCourseNotFound курс не найден.
var ErrCourseNotFound = errors.New("course not found")

// Service каталог курсов.
type Service struct {
	store *kvstore.Store
}

// NewService создаёт Service.
func NewService(store *kvstore.Store) *Service {
	return &Service{store: store}
}

// List возвращает все курсы.
func (s *Service) List(ctx context.Context) ([]models.Course, error) {
	const op = "services.courses.List"
	list, err := kvstore.ReadOr(ctx, s.store, kvstore.KeyCourses, []models.Course{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Create добавляет курс и присваивает ему id.
func (s *Service) Create(ctx context.Context, title, description, level string) (models.Course, error) {
	const op = "services.courses.Create"
	course := models.Course{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Level:       level,
		Created:     time.Now().UnixMilli(),
	}
	_, err := kvstore.Update(ctx, s.store, kvstore.KeyCourses, []models.Course{}, func(list *[]models.Course) error {
		*list = append(*list, course)
		return nil
	})
	if err != nil {
		return models.Course{}, fmt.Errorf("%s: %w", op, err)
	}
	return course, nil
}

// Delete удаляет курс.
func (s *Service) Delete(ctx context.Context, id string) error {
	const op = "services.courses.Delete"
	_, err := kvstore.Update(ctx, s.store, kvstore.KeyCourses, []models.Course{}, func(list *[]models.Course) error {
		for i, c := range *list {
			if c.ID == id {
				*list = append((*list)[:i], (*list)[i+1:]...)
				return nil
			}
		}
		return ErrCourseNotFound
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
