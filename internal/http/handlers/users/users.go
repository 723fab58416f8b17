// Package users реализует административные обработчики учётных записей.
package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/bitforex-academy/internal/http/request"
	"github.com/magabrotheeeer/bitforex-academy/internal/models"
	usersvc "github.com/magabrotheeeer/bitforex-academy/internal/services/users"
)

// Service описывает операции над пользователями.
type Service interface {
	List(ctx context.Context) ([]models.User, error)
	Get(ctx context.Context, email string) (models.User, error)
	SetStatus(ctx context.Context, email, status string) (models.User, error)
	Delete(ctx context.Context, email string) error
}

// StatusRequest новый статус учётной записи.
type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Active Inactive Blocked"`
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// List godoc
// @Summary Пользователи
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /admin/users [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.List"
	log := request.Logger(h.log, r, op)

	list, err := h.service.List(r.Context())
	if err != nil {
		request.Internal(w, r, log, err, "failed to load users")
		return
	}
	request.OK(w, r, http.StatusOK, list)
}

// Get godoc
// @Summary Пользователь
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param email path string true "Email"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /admin/users/{email} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.Get"
	log := request.Logger(h.log, r, op)

	user, err := h.service.Get(r.Context(), chi.URLParam(r, "email"))
	if errors.Is(err, usersvc.ErrUserNotFound) {
		request.Fail(w, r, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		request.Internal(w, r, log, err, "failed to load user")
		return
	}
	request.OK(w, r, http.StatusOK, user)
}

// SetStatus godoc
// @Summary Изменить статус пользователя
// @Description Blocked запрещает вход, Active и Inactive отражают наличие подписки.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param email path string true "Email"
// @Param request body StatusRequest true "Статус"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /admin/users/{email}/status [patch]
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.SetStatus"
	log := request.Logger(h.log, r, op)
	email := chi.URLParam(r, "email")

	var req StatusRequest
	if !request.Decode(w, r, log, h.validate, &req) {
		return
	}
	user, err := h.service.SetStatus(r.Context(), email, req.Status)
	if errors.Is(err, usersvc.ErrUserNotFound) {
		request.Fail(w, r, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		request.Internal(w, r, log, err, "failed to update status")
		return
	}
	log.Info("user status changed", slog.String("email", user.Email), slog.String("status", user.Status))
	request.OK(w, r, http.StatusOK, user)
}

// Delete godoc
// @Summary Удалить пользователя
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param email path string true "Email"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /admin/users/{email} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.Delete"
	log := request.Logger(h.log, r, op)
	email := chi.URLParam(r, "email")

	err := h.service.Delete(r.Context(), email)
	if errors.Is(err, usersvc.ErrUserNotFound) {
		request.Fail(w, r, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		request.Internal(w, r, log, err, "failed to delete user")
		return
	}
	log.Info("user deleted", slog.String("email", email))
	request.OK(w, r, http.StatusOK, map[string]any{"deleted": email})
}
