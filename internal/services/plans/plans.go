// Package plans управляет тарифными планами подписки.
package plans

import (
	"context"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/bitforex-academy/internal/kvstore"
	"github.com/magabrotheeeer/bitforex-academy/internal/models"
)

var (
	// ErrPlanNotFound план с таким id не найден.
	ErrPlanNotFound = errors.New("plan not found")
	// ErrPlanExists план с таким id уже существует.
	ErrPlanExists = errors.New("plan already exists")
)

// Service CRUD тарифных планов.
type Service struct {
	store *kvstore.Store
}

// NewService создаёт Service.
func NewService(store *kvstore.Store) *Service {
	return &Service{store: store}
}

// List возвращает планы. Если планов ещё нет, хранилище засевается планами по умолчанию.
func (s *Service) List(ctx context.Context) ([]models.Plan, error) {
	const op = "services.plans.List"
	var plans []models.Plan
	ok, err := s.store.Read(ctx, kvstore.KeyPlans, &plans)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if ok {
		if plans == nil {
			plans = []models.Plan{}
		}
		return plans, nil
	}

	plans = models.DefaultPlans()
	if err := s.store.Write(ctx, kvstore.KeyPlans, plans); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return plans, nil
}

// Get возвращает план по id.
func (s *Service) Get(ctx context.Context, id string) (models.Plan, error) {
	const op = "services.plans.Get"
	plans, err := s.List(ctx)
	if err != nil {
		return models.Plan{}, fmt.Errorf("%s: %w", op, err)
	}
	for _, p := range plans {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Plan{}, fmt.Errorf("%s: %w", op, ErrPlanNotFound)
}

// Create добавляет план.
func (s *Service) Create(ctx context.Context, plan models.Plan) (models.Plan, error) {
	const op = "services.plans.Create"
	if _, err := s.List(ctx); err != nil {
		return models.Plan{}, fmt.Errorf("%s: %w", op, err)
	}
	_, err := kvstore.Update(ctx, s.store, kvstore.KeyPlans, []models.Plan{}, func(plans *[]models.Plan) error {
		for _, p := range *plans {
			if p.ID == plan.ID {
				return ErrPlanExists
			}
		}
		*plans = append(*plans, plan)
		return nil
	})
	if err != nil {
		return models.Plan{}, fmt.Errorf("%s: %w", op, err)
	}
	return plan, nil
}

// Update заменяет план с id на plan; id плана не меняется.
func (s *Service) Update(ctx context.Context, id string, plan models.Plan) (models.Plan, error) {
	const op = "services.plans.Update"
	plan.ID = id
	_, err := kvstore.Update(ctx, s.store, kvstore.KeyPlans, []models.Plan{}, func(plans *[]models.Plan) error {
		for i, p := range *plans {
			if p.ID == id {
				(*plans)[i] = plan
				return nil
			}
		}
		return ErrPlanNotFound
	})
	if err != nil {
		return models.Plan{}, fmt.Errorf("%s: %w", op, err)
	}
	return plan, nil
}

// Delete удаляет план.
func (s *Service) Delete(ctx context.Context, id string) error {
	const op = "services.plans.Delete"
	_, err := kvstore.Update(ctx, s.store, kvstore.KeyPlans, []models.Plan{}, func(plans *[]models.Plan) error {
		for i, p := range *plans {
			if p.ID == id {
				*plans = append((*plans)[:i], (*plans)[i+1:]...)
				return nil
			}
		}
		return ErrPlanNotFound
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
