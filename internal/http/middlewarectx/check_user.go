package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/bitforex-academy/internal/http/response"
	"github.com/magabrotheeeer/bitforex-academy/internal/lib/sl"
	"github.com/magabrotheeeer/bitforex-academy/internal/models"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/users"
)

// AccountReader ищет учётную запись пользователя по email.
type AccountReader interface {
	Get(ctx context.Context, email string) (models.User, error)
}

// UserStatusMiddleware проверяет учётную запись на каждом запросе пользователя:
// удалённая запись или отозванная сессия дают 401, заблокированная 403.
// Запросы администратора пропускаются без проверки.
func UserStatusMiddleware(log *slog.Logger, accounts AccountReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.UserStatusMiddleware"
			ctx := r.Context()
			if RoleFrom(ctx) == models.RoleAdmin {
				next.ServeHTTP(w, r)
				return
			}
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(ctx)),
				slog.String("email", EmailFrom(ctx)),
			)

			user, err := accounts.Get(ctx, EmailFrom(ctx))
			if errors.Is(err, users.ErrUserNotFound) {
				log.Warn("token of a deleted account")
				deny(w, r, http.StatusUnauthorized, "account not found")
				return
			}
			if err != nil {
				log.Error("failed to check account", sl.Err(err))
				deny(w, r, http.StatusInternalServerError, "internal error")
				return
			}

			if user.Status == models.StatusBlocked {
				log.Info("blocked account denied")
				deny(w, r, http.StatusForbidden, "account is blocked")
				return
			}
			if user.Session == "" || user.Session != SessionFrom(ctx) {
				log.Info("session is not active")
				deny(w, r, http.StatusUnauthorized, "session is not active")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func deny(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, response.Error(msg))
}
