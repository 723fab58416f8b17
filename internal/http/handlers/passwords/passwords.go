// Package passwords реализует административные обработчики заявок на сброс пароля.
package passwords

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/bitforex-academy/internal/http/request"
	"github.com/magabrotheeeer/bitforex-academy/internal/models"
	passwordsvc "github.com/magabrotheeeer/bitforex-academy/internal/services/passwords"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/users"
)

// Service описывает работу с заявками на сброс пароля.
type Service interface {
	List(ctx context.Context, status string) ([]models.PasswordRequest, error)
	Resolve(ctx context.Context, id, newPassword string) (models.PasswordRequest, error)
}

// ResolveRequest новый пароль пользователя.
type ResolveRequest struct {
	Password string `json:"password" validate:"required,min=6"`
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
// @Summary Заявки на сброс пароля
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "open или resolved"
// @Success 200 {object} response.Response
// @Router /admin/password-requests [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.passwords.List"
	log := request.Logger(h.log, r, op)

	list, err := h.service.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		request.Internal(w, r, log, err, "failed to load password requests")
		return
	}
	request.OK(w, r, http.StatusOK, list)
}

// Resolve godoc
// @Summary Установить новый пароль по заявке
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID заявки"
// @Param request body ResolveRequest true "Новый пароль"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /admin/password-requests/{id}/resolve [post]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.passwords.Resolve"
	log := request.Logger(h.log, r, op)

	var req ResolveRequest
	if !request.Decode(w, r, log, h.validate, &req) {
		return
	}

	resolved, err := h.service.Resolve(r.Context(), chi.URLParam(r, "id"), req.Password)
	switch {
	case errors.Is(err, passwordsvc.ErrRequestNotFound):
		request.Fail(w, r, http.StatusNotFound, "request not found")
		return
	case errors.Is(err, users.ErrUserNotFound):
		request.Fail(w, r, http.StatusNotFound, "user not found")
		return
	case errors.Is(err, passwordsvc.ErrAlreadyResolved):
		request.Fail(w, r, http.StatusConflict, "request already resolved")
		return
	case err != nil:
		request.Internal(w, r, log, err, "failed to resolve request")
		return
	}

	log.Info("password request resolved", slog.String("id", resolved.ID))
	request.OK(w, r, http.StatusOK, resolved)
}
