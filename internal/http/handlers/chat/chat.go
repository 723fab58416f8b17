// Package chat реализует HTTP-обработчики переписки пользователя с администратором.
package chat

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
	chatsvc "github.com/magabrotheeeer/bitforex-academy/internal/services/chat"
)

// Service описывает операции с перепиской.
type Service interface {
	Send(ctx context.Context, threadEmail, sender, msgType, content string) (models.Message, error)
	Thread(ctx context.Context, email string) ([]models.Message, error)
	Threads(ctx context.Context) ([]models.ThreadSummary, error)
	ClearThread(ctx context.Context, email string) error
}

// SendRequest новое сообщение. Для type=image content содержит data URL.
type SendRequest struct {
	Type    string `json:"type" validate:"required,oneof=text image"`
	Content string `json:"content" validate:"required"`
}

// Handler обработчики чата.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// Messages godoc
// @Summary Моя переписка
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /chat/messages [get]
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.chat.Messages"
	h.thread(w, r, op, middlewarectx.EmailFrom(r.Context()))
}

// Send godoc
// @Summary Отправить сообщение администратору
// @Tags Chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SendRequest true "Сообщение"
// @Success 201 {object} response.Response
// @Failure 422 {object} response.ErrorResponse
// @Failure 507 {object} response.ErrorResponse "Хранилище переполнено"
// @Router /chat/messages [post]
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.chat.Send"
	h.send(w, r, op, middlewarectx.EmailFrom(r.Context()), models.SenderUser)
}

// Threads godoc
// @Summary Список переписок
// @Description Сводка по всем пользователям, свежие сверху.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /admin/chat [get]
func (h *Handler) Threads(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.chat.Threads"
	log := request.Logger(h.log, r, op)

	threads, err := h.service.Threads(r.Context())
	if err != nil {
		request.Internal(w, r, log, err, "failed to load threads")
		return
	}
	request.OK(w, r, http.StatusOK, threads)
}

// Thread godoc
// @Summary Переписка с пользователем
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param email path string true "Email пользователя"
// @Success 200 {object} response.Response
// @Router /admin/chat/{email} [get]
func (h *Handler) Thread(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.chat.Thread"
	h.thread(w, r, op, chi.URLParam(r, "email"))
}

// Reply godoc
// @Summary Ответ администратора
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param email path string true "Email пользователя"
// @Param request body SendRequest true "Сообщение"
// @Success 201 {object} response.Response
// @Failure 422 {object} response.ErrorResponse
// @Router /admin/chat/{email} [post]
func (h *Handler) Reply(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.chat.Reply"
	h.send(w, r, op, chi.URLParam(r, "email"), models.SenderAdmin)
}

// Clear godoc
// @Summary Удалить переписку
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param email path string true "Email пользователя"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /admin/chat/{email} [delete]
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.chat.Clear"
	log := request.Logger(h.log, r, op)
	email := chi.URLParam(r, "email")

	err := h.service.ClearThread(r.Context(), email)
	if errors.Is(err, chatsvc.ErrThreadNotFound) {
		request.Fail(w, r, http.StatusNotFound, "thread not found")
		return
	}
	if err != nil {
		request.Internal(w, r, log, err, "failed to clear thread")
		return
	}
	log.Info("thread cleared", slog.String("email", email))
	request.OK(w, r, http.StatusOK, map[string]any{"cleared": email})
}

func (h *Handler) thread(w http.ResponseWriter, r *http.Request, op, email string) {
	log := request.Logger(h.log, r, op)
	msgs, err := h.service.Thread(r.Context(), email)
	if err != nil {
		request.Internal(w, r, log, err, "failed to load messages")
		return
	}
	request.OK(w, r, http.StatusOK, msgs)
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request, op, threadEmail, sender string) {
	log := request.Logger(h.log, r, op)

	var req SendRequest
	if !request.Decode(w, r, log, h.validate, &req) {
		return
	}

	msg, err := h.service.Send(r.Context(), threadEmail, sender, req.Type, req.Content)
	if err != nil {
		for _, invalid := range []error{chatsvc.ErrInvalidType, chatsvc.ErrEmptyContent, chatsvc.ErrInvalidImage} {
			if errors.Is(err, invalid) {
				log.Info("message rejected", slog.String("reason", invalid.Error()))
				request.Fail(w, r, http.StatusUnprocessableEntity, invalid.Error())
				return
			}
		}
		request.Internal(w, r, log, err, "failed to send message")
		return
	}
	request.OK(w, r, http.StatusCreated, msg)
}
