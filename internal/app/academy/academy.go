// Package academy собирает HTTP API академии: хранилище, сервисы,
// обработчики и сервер с плавной остановкой.
package academy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/bitforex-academy/internal/app/infra"
	"github.com/magabrotheeeer/bitforex-academy/internal/config"
	adminhandler "github.com/magabrotheeeer/bitforex-academy/internal/http/handlers/admin"
	authhandler "github.com/magabrotheeeer/bitforex-academy/internal/http/handlers/auth"
	chathandler "github.com/magabrotheeeer/bitforex-academy/internal/http/handlers/chat"
	courseshandler "github.com/magabrotheeeer/bitforex-academy/internal/http/handlers/courses"
	"github.com/magabrotheeeer/bitforex-academy/internal/http/handlers/health"
	passwordshandler "github.com/magabrotheeeer/bitforex-academy/internal/http/handlers/passwords"
	paymentshandler "github.com/magabrotheeeer/bitforex-academy/internal/http/handlers/payments"
	planshandler "github.com/magabrotheeeer/bitforex-academy/internal/http/handlers/plans"
	"github.com/magabrotheeeer/bitforex-academy/internal/http/handlers/syncapi"
	usershandler "github.com/magabrotheeeer/bitforex-academy/internal/http/handlers/users"
	"github.com/magabrotheeeer/bitforex-academy/internal/lib/jwt"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/auth"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/chat"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/courses"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/passwords"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/payment"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/plans"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/users"
)

const shutdownTimeout = 15 * time.Second

// App HTTP API академии.
type App struct {
	server *http.Server
	logger *slog.Logger
	closer *infra.Closer
}

// New открывает хранилище и брокер, создаёт учётную запись администратора
// из конфига и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.academy.New"
	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("%s: jwt_secret_key is not set", op)
	}

	closer := &infra.Closer{}
	app, err := build(ctx, cfg, logger, closer)
	if err != nil {
		closer.Close(logger)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return app, nil
}

func build(ctx context.Context, cfg *config.Config, logger *slog.Logger, closer *infra.Closer) (*App, error) {
	store, err := infra.OpenStore(ctx, cfg, logger, closer)
	if err != nil {
		return nil, err
	}
	publisher, err := infra.OpenPublisher(cfg, logger, closer)
	if err != nil {
		return nil, err
	}

	tokens := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authService := auth.NewService(store, tokens, publisher, logger)
	if err := authService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName); err != nil {
		return nil, err
	}
	userService := users.NewService(store)
	planService := plans.NewService(store)
	paymentService := payment.NewService(store, planService, userService, publisher, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg.HTTPServer, tokens, userService, Handlers{
		Auth:      authhandler.New(logger, authService, userService),
		Chat:      chathandler.New(logger, chat.NewService(store)),
		Plans:     planshandler.New(logger, planService),
		Payments:  paymentshandler.New(logger, paymentService),
		Users:     usershandler.New(logger, userService),
		Courses:   courseshandler.New(logger, courses.NewService(store)),
		Passwords: passwordshandler.New(logger, passwords.NewService(store, userService, publisher, logger)),
		Admin:     adminhandler.New(logger, authService),
		Sync:      syncapi.New(logger, store),
		Health:    health.New(logger, store),
	})

	srv := &http.Server{
		Addr:        cfg.AddressHTTP,
		Handler:     router,
		ReadTimeout: cfg.TimeoutHTTP,
		IdleTimeout: cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		closer: closer,
	}, nil
}

// Handler возвращает корневой обработчик сервера.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run обслуживает запросы до отмены ctx, затем плавно останавливает сервер
// и освобождает ресурсы.
func (a *App) Run(ctx context.Context) error {
	defer a.closer.Close(a.logger)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		return a.server.Shutdown(timeoutCtx)
	}
}
