// Package request содержит общие шаги разбора HTTP-запросов обработчиками.
package request

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/bitforex-academy/internal/http/response"
	"github.com/magabrotheeeer/bitforex-academy/internal/kvstore"
	"github.com/magabrotheeeer/bitforex-academy/internal/lib/sl"
)

// Logger возвращает логгер запроса с атрибутами op и request_id.
func Logger(log *slog.Logger, r *http.Request, op string) *slog.Logger {
	return log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Decode читает JSON-тело запроса в dst и валидирует его.
// При ошибке ответ 400 или 422 уже записан и возвращается false.
func Decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, validate *validator.Validate, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return false
	}
	if err := validate.Struct(dst); err != nil {
		log.Error("validation failed", sl.Err(err))
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, response.ValidationError(verrs))
			return false
		}
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request"))
		return false
	}
	return true
}

// Fail записывает ответ с ошибкой msg и статусом status.
func Fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, response.Error(msg))
}

// OK записывает успешный ответ с данными и статусом status.
func OK(w http.ResponseWriter, r *http.Request, status int, data any) {
	render.Status(r, status)
	render.JSON(w, r, response.StatusOKWithData(data))
}

// Internal пишет ответ на непредвиденную ошибку сервиса. Переполнение
// хранилища отдаётся как 507, чтобы клиент мог сообщить о потере данных.
func Internal(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, msg string) {
	switch {
	case errors.Is(err, kvstore.ErrCollectionReset):
		log.Warn("collection reset after quota overflow", sl.Err(err))
		Fail(w, r, http.StatusInsufficientStorage, "storage is full, history was cleared")
	case errors.Is(err, kvstore.ErrQuotaExceeded):
		log.Warn("storage quota exceeded", sl.Err(err))
		Fail(w, r, http.StatusInsufficientStorage, "storage is full")
	default:
		log.Error(msg, sl.Err(err))
		Fail(w, r, http.StatusInternalServerError, msg)
	}
}
