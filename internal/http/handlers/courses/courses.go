// Package courses реализует HTTP-обработчики учебных курсов.
package courses

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/bitforex-academy/internal/http/request"
	"github.com/magabrotheeeer/bitforex-academy/internal/models"
	coursesvc "github.com/magabrotheeeer/bitforex-academy/internal/services/courses"
)

// Service описывает операции с курсами.
type Service interface {
	List(ctx context.Context) ([]models.Course, error)
	Create(ctx context.Context, title, description, level string) (models.Course, error)
	Delete(ctx context.Context, id string) error
}

// CreateRequest новый курс.
type CreateRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
	Level       string `json:"level" validate:"required,oneof=beginner intermediate advanced"`
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
// @Summary Курсы
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /courses [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.courses.List"
	log := request.Logger(h.log, r, op)

	list, err := h.service.List(r.Context())
	if err != nil {
		request.Internal(w, r, log, err, "failed to load courses")
		return
	}
	request.OK(w, r, http.StatusOK, list)
}

// Create godoc
// @Summary Добавить курс
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateRequest true "Курс"
// @Success 201 {object} response.Response
// @Failure 422 {object} response.ErrorResponse
// @Router /admin/courses [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.courses.Create"
	log := request.Logger(h.log, r, op)

	var req CreateRequest
	if !request.Decode(w, r, log, h.validate, &req) {
		return
	}
	course, err := h.service.Create(r.Context(), req.Title, req.Description, req.Level)
	if err != nil {
		request.Internal(w, r, log, err, "failed to create course")
		return
	}
	log.Info("course created", slog.String("id", course.ID))
	request.OK(w, r, http.StatusCreated, course)
}

// Delete godoc
// @Summary Удалить курс
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID курса"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /admin/courses/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.courses.Delete"
	log := request.Logger(h.log, r, op)
	id := chi.URLParam(r, "id")

	err := h.service.Delete(r.Context(), id)
	if errors.Is(err, coursesvc.ErrCourseNotFound) {
		request.Fail(w, r, http.StatusNotFound, "course not found")
		return
	}
	if err != nil {
		request.Internal(w, r, log, err, "failed to delete course")
		return
	}
	request.OK(w, r, http.StatusOK, map[string]any{"deleted": id})
}
