// Package middlewarectx содержит HTTP middleware академии: проверку JWT,
// доступ только для администратора, идентификацию клиента и ограничение частоты запросов.
//
// JWTMiddleware проверяет токен из заголовка Authorization и кладёт в контекст
// email, имя и роль пользователя. При ошибке отвечает 401 Unauthorized.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/bitforex-academy/internal/http/response"
	"github.com/magabrotheeeer/bitforex-academy/internal/lib/jwt"
	"github.com/magabrotheeeer/bitforex-academy/internal/lib/sl"
	"github.com/magabrotheeeer/bitforex-academy/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// Email ключ email пользователя в контексте.
	Email Key = "email"
	// Name ключ имени пользователя в контексте.
	Name Key = "name"
	// Role ключ роли пользователя в контексте.
	Role Key = "role"
	// SessionID ключ идентификатора сессии в контексте.
	SessionID Key = "sid"
)

// TokenParser проверяет JWT и возвращает его данные.
type TokenParser interface {
	ParseToken(tokenStr string) (*jwt.CustomClaims, error)
}

// JWTMiddleware проверяет токен в заголовке Authorization: Bearer <token>.
// Браузерный WebSocket не умеет задавать заголовки, поэтому токен
// также принимается из параметра запроса token.
func JWTMiddleware(parser TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			tokenStr := ""
			if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
				tokenStr = strings.TrimPrefix(authHeader, "Bearer ")
			} else {
				tokenStr = r.URL.Query().Get("token")
			}
			if tokenStr == "" {
				log.Error("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}

			claims, err := parser.ParseToken(tokenStr)
			if err != nil {
				log.Error("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), Email, claims.Email)
			ctx = context.WithValue(ctx, Name, claims.Name)
			ctx = context.WithValue(ctx, Role, claims.Role)
			ctx = context.WithValue(ctx, SessionID, claims.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminOnly пропускает только запросы с ролью администратора.
func AdminOnly(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFrom(r.Context()) != models.RoleAdmin {
				log.Warn("admin access denied",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("email", EmailFrom(r.Context())),
				)
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// EmailFrom возвращает email пользователя из контекста.
func EmailFrom(ctx context.Context) string {
	v, _ := ctx.Value(Email).(string)
	return v
}

// NameFrom возвращает имя пользователя из контекста.
func NameFrom(ctx context.Context) string {
	v, _ := ctx.Value(Name).(string)
	return v
}

// RoleFrom возвращает роль пользователя из контекста.
func RoleFrom(ctx context.Context) string {
	v, _ := ctx.Value(Role).(string)
	return v
}

// SessionFrom возвращает идентификатор сессии из контекста.
func SessionFrom(ctx context.Context) string {
	v, _ := ctx.Value(SessionID).(string)
	return v
}
