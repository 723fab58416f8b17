// Package plans реализует HTTP-обработчики тарифных планов.
package plans

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/bitforex-academy/internal/http/request"
	"github.com/magabrotheeeer/bitforex-academy/internal/models"
	plansvc "github.com/magabrotheeeer/bitforex-academy/internal/services/plans"
)

// Service описывает CRUD планов.
type Service interface {
	List(ctx context.Context) ([]models.Plan, error)
	Create(ctx context.Context, plan models.Plan) (models.Plan, error)
	Update(ctx context.Context, id string, plan models.Plan) (models.Plan, error)
	Delete(ctx context.Context, id string) error
}

// UpdateRequest новые поля плана; id берётся из пути.
type UpdateRequest struct {
	Name     string   `json:"name" validate:"required"`
	Price    float64  `json:"price" validate:"gte=0"`
	Features []string `json:"features"`
}

// Handler обработчики планов.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// List godoc
// @Summary Тарифные планы
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /plans [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plans.List"
	log := request.Logger(h.log, r, op)

	list, err := h.service.List(r.Context())
	if err != nil {
		request.Internal(w, r, log, err, "failed to load plans")
		return
	}
	request.OK(w, r, http.StatusOK, list)
}

// Create godoc
// @Summary Создать план
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.Plan true "План"
// @Success 201 {object} response.Response
// @Failure 409 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /admin/plans [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plans.Create"
	log := request.Logger(h.log, r, op)

	var req models.Plan
	if !request.Decode(w, r, log, h.validate, &req) {
		return
	}
	plan, err := h.service.Create(r.Context(), req)
	if errors.Is(err, plansvc.ErrPlanExists) {
		request.Fail(w, r, http.StatusConflict, "plan with this id already exists")
		return
	}
	if err != nil {
		request.Internal(w, r, log, err, "failed to create plan")
		return
	}
	log.Info("plan created", slog.String("id", plan.ID))
	request.OK(w, r, http.StatusCreated, plan)
}

// Update godoc
// @Summary Изменить план
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID плана"
// @Param request body UpdateRequest true "План"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /admin/plans/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plans.Update"
	log := request.Logger(h.log, r, op)
	id := chi.URLParam(r, "id")

	var req UpdateRequest
	if !request.Decode(w, r, log, h.validate, &req) {
		return
	}
	plan, err := h.service.Update(r.Context(), id, models.Plan{Name: req.Name, Price: req.Price, Features: req.Features})
	if errors.Is(err, plansvc.ErrPlanNotFound) {
		request.Fail(w, r, http.StatusNotFound, "plan not found")
		return
	}
	if err != nil {
		request.Internal(w, r, log, err, "failed to update plan")
		return
	}
	request.OK(w, r, http.StatusOK, plan)
}

// Delete godoc
// @Summary Удалить план
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID плана"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /admin/plans/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plans.Delete"
	log := request.Logger(h.log, r, op)
	id := chi.URLParam(r, "id")

	err := h.service.Delete(r.Context(), id)
	if errors.Is(err, plansvc.ErrPlanNotFound) {
		request.Fail(w, r, http.StatusNotFound, "plan not found")
		return
	}
	if err != nil {
		request.Internal(w, r, log, err, "failed to delete plan")
		return
	}
	log.Info("plan deleted", slog.String("id", id))
	request.OK(w, r, http.StatusOK, map[string]any{"deleted": id})
}
