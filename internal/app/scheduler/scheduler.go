// Package scheduler собирает процесс напоминаний о заявках,
// ожидающих решения администратора.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/bitforex-academy/internal/app/infra"
	"github.com/magabrotheeeer/bitforex-academy/internal/config"
	"github.com/magabrotheeeer/bitforex-academy/internal/lib/jwt"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/auth"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/payment"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/plans"
	schedulerservice "github.com/magabrotheeeer/bitforex-academy/internal/services/scheduler"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/users"
)

// ErrLocalStorage планировщик не видит данных API в памяти другого процесса.
var ErrLocalStorage = errors.New("scheduler needs a shared storage backend (redis or postgres)")

// App представляет приложение планировщика.
type App struct {
	schedulerService *schedulerservice.Service
	cfg              config.Scheduler
	closer           *infra.Closer
	logger           *slog.Logger
}

// New открывает общее хранилище и публикатор уведомлений.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.scheduler.New"
	if cfg.StorageBackend == infra.BackendMemory || cfg.StorageBackend == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrLocalStorage)
	}

	closer := &infra.Closer{}
	store, err := infra.OpenStore(ctx, cfg, logger, closer)
	if err != nil {
		closer.Close(logger)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	publisher, err := infra.OpenPublisher(cfg, logger, closer)
	if err != nil {
		closer.Close(logger)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	userService := users.NewService(store)
	requests := payment.NewService(store, plans.NewService(store), userService, publisher, logger)
	admin := auth.NewService(store, jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL), publisher, logger)

	return &App{
		schedulerService: schedulerservice.NewService(requests, admin, publisher, logger),
		cfg:              cfg.Scheduler,
		closer:           closer,
		logger:           logger,
	}, nil
}

// Run запускает планировщик и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	defer a.closer.Close(a.logger)

	a.logger.Info("scheduler started",
		slog.Duration("interval", a.cfg.PendingInterval),
		slog.Duration("age", a.cfg.PendingAge),
	)
	a.schedulerService.RemindPending(ctx, a.cfg.PendingInterval, a.cfg.PendingAge)

	a.logger.Info("shutting down scheduler service")
	return nil
}
