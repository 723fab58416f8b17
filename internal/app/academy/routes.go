package academy

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/bitforex-academy/internal/config"
	"github.com/magabrotheeeer/bitforex-academy/internal/http/handlers/admin"
	"github.com/magabrotheeeer/bitforex-academy/internal/http/handlers/auth"
	"github.com/magabrotheeeer/bitforex-academy/internal/http/handlers/chat"
	"github.com/magabrotheeeer/bitforex-academy/internal/http/handlers/courses"
	"github.com/magabrotheeeer/bitforex-academy/internal/http/handlers/health"
	"github.com/magabrotheeeer/bitforex-academy/internal/http/handlers/passwords"
	"github.com/magabrotheeeer/bitforex-academy/internal/http/handlers/payments"
	"github.com/magabrotheeeer/bitforex-academy/internal/http/handlers/plans"
	"github.com/magabrotheeeer/bitforex-academy/internal/http/handlers/syncapi"
	"github.com/magabrotheeeer/bitforex-academy/internal/http/handlers/users"
	"github.com/magabrotheeeer/bitforex-academy/internal/http/middlewarectx"
)

// Handlers обработчики всех групп маршрутов.
type Handlers struct {
	Auth      *auth.Handler
	Chat      *chat.Handler
	Plans     *plans.Handler
	Payments  *payments.Handler
	Users     *users.Handler
	Courses   *courses.Handler
	Passwords *passwords.Handler
	Admin     *admin.Handler
	Sync      *syncapi.Handler
	Health    *health.Handler
}

// RegisterRoutes регистрирует все маршруты приложения. accounts используется
// для проверки учётной записи пользователя на каждом запросе.
func RegisterRoutes(r chi.Router, log *slog.Logger, cfg config.HTTPServer, tokens middlewarectx.TokenParser, accounts middlewarectx.AccountReader, h Handlers) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middlewarectx.ClientID,
	)

	r.Get("/health", h.Health.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(log, cfg.RateLimit, cfg.RateBurst))

		// Открытые конечные точки
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
		r.Post("/password/forgot", h.Auth.ForgotPassword)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(tokens, log))
			r.Use(middlewarectx.UserStatusMiddleware(log, accounts))

			r.Post("/logout", h.Auth.Logout)
			r.Get("/me", h.Auth.Me)

			r.Get("/chat/messages", h.Chat.Messages)
			r.Post("/chat/messages", h.Chat.Send)

			r.Get("/plans", h.Plans.List)
			r.Get("/courses", h.Courses.List)

			r.Post("/payments", h.Payments.Submit)
			r.Get("/payments/mine", h.Payments.Mine)

			r.Get("/sync/ws", h.Sync.Feed)
			r.Get("/sync/{key}", h.Sync.Get)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middlewarectx.AdminOnly(log))

				r.Get("/profile", h.Admin.Profile)
				r.Put("/profile", h.Admin.SaveProfile)

				r.Get("/users", h.Users.List)
				r.Get("/users/{email}", h.Users.Get)
				r.Patch("/users/{email}/status", h.Users.SetStatus)
				r.Delete("/users/{email}", h.Users.Delete)

				r.Post("/plans", h.Plans.Create)
				r.Put("/plans/{id}", h.Plans.Update)
				r.Delete("/plans/{id}", h.Plans.Delete)

				r.Post("/courses", h.Courses.Create)
				r.Delete("/courses/{id}", h.Courses.Delete)

				r.Get("/payments", h.Payments.List)
				r.Post("/payments/{id}/approve", h.Payments.Approve)
				r.Post("/payments/{id}/reject", h.Payments.Reject)

				r.Get("/chat", h.Chat.Threads)
				r.Get("/chat/{email}", h.Chat.Thread)
				r.Post("/chat/{email}", h.Chat.Reply)
				r.Delete("/chat/{email}", h.Chat.Clear)

				r.Get("/password-requests", h.Passwords.List)
				r.Post("/password-requests/{id}/resolve", h.Passwords.Resolve)
			})
		})
	})
}
