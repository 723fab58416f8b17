// Package payments реализует HTTP-обработчики заявок на подписку:
// отправку подтверждения оплаты пользователем и решение администратора.
package payments

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/bitforex-academy/internal/http/middlewarectx"
	"github.com/magabrotheeeer/bitforex-academy/internal/http/request"
	"github.com/magabrotheeeer/bitforex-academy/internal/models"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/payment"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/plans"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/users"
)

// Service описывает работу с заявками.
type Service interface {
	Submit(ctx context.Context, userEmail, planID, proof string) (models.PendingSubscription, error)
	List(ctx context.Context, status string) ([]models.PendingSubscription, error)
	ListForUser(ctx context.Context, userEmail string) ([]models.PendingSubscription, error)
	Approve(ctx context.Context, id string) (models.PendingSubscription, error)
	Reject(ctx context.Context, id string) (models.PendingSubscription, error)
}

// SubmitRequest выбор плана и скриншот оплаты (data URL).
type SubmitRequest struct {
	Plan  string `json:"plan" validate:"required"`
	Proof string `json:"proof" validate:"required"`
}

// Handler обработчики заявок.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// Submit godoc
// @Summary Отправить подтверждение оплаты
// @Description Создаёт заявку со статусом pending по цене выбранного плана.
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SubmitRequest true "План и подтверждение"
// @Success 201 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "План не найден"
// @Failure 409 {object} response.ErrorResponse "Заявка уже на рассмотрении"
// @Failure 422 {object} response.ErrorResponse
// @Failure 507 {object} response.ErrorResponse
// @Router /payments [post]
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payments.Submit"
	log := request.Logger(h.log, r, op)

	var req SubmitRequest
	if !request.Decode(w, r, log, h.validate, &req) {
		return
	}

	sub, err := h.service.Submit(r.Context(), middlewarectx.EmailFrom(r.Context()), req.Plan, req.Proof)
	switch {
	case errors.Is(err, payment.ErrInvalidProof):
		request.Fail(w, r, http.StatusUnprocessableEntity, payment.ErrInvalidProof.Error())
		return
	case errors.Is(err, plans.ErrPlanNotFound):
		request.Fail(w, r, http.StatusNotFound, "plan not found")
		return
	case errors.Is(err, users.ErrUserNotFound):
		request.Fail(w, r, http.StatusUnauthorized, "user not found")
		return
	case errors.Is(err, payment.ErrAlreadyPending):
		request.Fail(w, r, http.StatusConflict, "previous request is still pending")
		return
	case err != nil:
		request.Internal(w, r, log, err, "failed to submit payment")
		return
	}

	log.Info("payment submitted", slog.String("id", sub.ID), slog.String("plan", sub.Plan))
	request.OK(w, r, http.StatusCreated, sub)
}

// Mine godoc
// @Summary Мои заявки
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /payments/mine [get]
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payments.Mine"
	log := request.Logger(h.log, r, op)

	list, err := h.service.ListForUser(r.Context(), middlewarectx.EmailFrom(r.Context()))
	if err != nil {
		request.Internal(w, r, log, err, "failed to load payments")
		return
	}
	request.OK(w, r, http.StatusOK, list)
}

// List godoc
// @Summary Заявки на подписку
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved или rejected"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Router /admin/payments [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payments.List"
	log := request.Logger(h.log, r, op)

	status := r.URL.Query().Get("status")
	switch status {
	case "", models.RequestPending, models.RequestApproved, models.RequestRejected:
	default:
		request.Fail(w, r, http.StatusBadRequest, "unknown status")
		return
	}

	list, err := h.service.List(r.Context(), status)
	if err != nil {
		request.Internal(w, r, log, err, "failed to load payments")
		return
	}
	request.OK(w, r, http.StatusOK, list)
}

// Approve godoc
// @Summary Одобрить заявку
// @Description Назначает пользователю план и статус Active.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID заявки"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse "Заявка уже рассмотрена"
// @Router /admin/payments/{id}/approve [post]
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payments.Approve"
	h.decide(w, r, op, h.service.Approve)
}

// Reject godoc
// @Summary Отклонить заявку
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID заявки"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /admin/payments/{id}/reject [post]
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payments.Reject"
	h.decide(w, r, op, h.service.Reject)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, op string,
	fn func(ctx context.Context, id string) (models.PendingSubscription, error),
) {
	log := request.Logger(h.log, r, op)
	id := chi.URLParam(r, "id")

	sub, err := fn(r.Context(), id)
	switch {
	case errors.Is(err, payment.ErrRequestNotFound):
		request.Fail(w, r, http.StatusNotFound, "request not found")
		return
	case errors.Is(err, payment.ErrAlreadyDecided):
		request.Fail(w, r, http.StatusConflict, "request already decided")
		return
	case errors.Is(err, users.ErrUserNotFound):
		request.Fail(w, r, http.StatusNotFound, "request owner no longer exists")
		return
	case err != nil:
		request.Internal(w, r, log, err, "failed to decide request")
		return
	}

	log.Info("request decided", slog.String("id", sub.ID), slog.String("status", sub.Status))
	request.OK(w, r, http.StatusOK, sub)
}
