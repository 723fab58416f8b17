// Package admin реализует обработчики профиля администратора.
package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/bitforex-academy/internal/http/request"
	"github.com/magabrotheeeer/bitforex-academy/internal/models"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/auth"
)

// Service читает и сохраняет учётную запись администратора.
type Service interface {
	Admin(ctx context.Context) (models.Admin, error)
	SaveAdminProfile(ctx context.Context, name, email, password string) (models.Admin, error)
}

// ProfileRequest изменяемые поля профиля; пустые поля не меняются.
type ProfileRequest struct {
	Name     string `json:"name" validate:"max=100"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"omitempty,min=6"`
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// Profile godoc
// @Summary Профиль администратора
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /admin/profile [get]
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.Profile"
	log := request.Logger(h.log, r, op)

	admin, err := h.service.Admin(r.Context())
	if err != nil {
		request.Internal(w, r, log, err, "failed to load profile")
		return
	}
	request.OK(w, r, http.StatusOK, admin)
}

// SaveProfile godoc
// @Summary Изменить профиль администратора
// @Description Новый email начинает действовать со следующего входа.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ProfileRequest true "Профиль"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.ErrorResponse "Email занят пользователем"
// @Failure 422 {object} response.ErrorResponse
// @Router /admin/profile [put]
func (h *Handler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.SaveProfile"
	log := request.Logger(h.log, r, op)

	var req ProfileRequest
	if !request.Decode(w, r, log, h.validate, &req) {
		return
	}
	admin, err := h.service.SaveAdminProfile(r.Context(), req.Name, req.Email, req.Password)
	if errors.Is(err, auth.ErrUserExists) {
		request.Fail(w, r, http.StatusConflict, "email is used by a registered user")
		return
	}
	if err != nil {
		request.Internal(w, r, log, err, "failed to save profile")
		return
	}
	log.Info("admin profile saved", slog.Bool("password_changed", req.Password != ""))
	request.OK(w, r, http.StatusOK, admin)
}
