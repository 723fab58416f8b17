// Package auth реализует HTTP-обработчики регистрации, входа, выхода
// и восстановления пароля.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/bitforex-academy/internal/http/middlewarectx"
	"github.com/magabrotheeeer/bitforex-academy/internal/http/request"
	"github.com/magabrotheeeer/bitforex-academy/internal/models"
	authsvc "github.com/magabrotheeeer/bitforex-academy/internal/services/auth"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/users"
)

// Service описывает бизнес-логику аутентификации.
type Service interface {
	Register(ctx context.Context, name, email, password, username string) (models.User, error)
	Login(ctx context.Context, email, password string) (string, models.Session, error)
	Logout(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) (models.PasswordRequest, error)
}

// Profiles читает учётную запись пользователя.
type Profiles interface {
	Get(ctx context.Context, email string) (models.User, error)
}

// RegisterRequest данные для регистрации.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Username string `json:"username" validate:"max=50"`
}

// LoginRequest данные для входа.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ForgotRequest email, для которого запрашивается сброс пароля.
type ForgotRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// LoginResponse токен и сессия.
type LoginResponse struct {
	Token   string         `json:"token"`
	Session models.Session `json:"session"`
}

// Handler обработчики аутентификации.
type Handler struct {
	log      *slog.Logger
	service  Service
	profiles Profiles
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, service Service, profiles Profiles) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		profiles: profiles,
		validate: validator.New(),
	}
}

// Register godoc
// @Summary Регистрация пользователя
// @Description Создаёт учётную запись со статусом Inactive. Email должен быть уникальным.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Данные пользователя"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 409 {object} response.ErrorResponse "Email уже зарегистрирован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse
// @Router /register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Register"
	log := request.Logger(h.log, r, op)

	var req RegisterRequest
	if !request.Decode(w, r, log, h.validate, &req) {
		return
	}

	user, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password, req.Username)
	if errors.Is(err, authsvc.ErrUserExists) {
		log.Info("email already registered")
		request.Fail(w, r, http.StatusConflict, "user with this email already exists")
		return
	}
	if err != nil {
		request.Internal(w, r, log, err, "failed to register user")
		return
	}

	log.Info("user registered", slog.String("email", user.Email))
	request.OK(w, r, http.StatusCreated, user)
}

// Login godoc
// @Summary Вход
// @Description Проверяет учётные данные, перезаписывает текущую сессию и возвращает JWT.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Учётные данные"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse "Неверный email или пароль"
// @Failure 403 {object} response.ErrorResponse "Учётная запись заблокирована"
// @Failure 422 {object} response.ErrorResponse
// @Router /login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Login"
	log := request.Logger(h.log, r, op)

	var req LoginRequest
	if !request.Decode(w, r, log, h.validate, &req) {
		return
	}

	token, session, err := h.service.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		log.Info("invalid credentials")
		request.Fail(w, r, http.StatusUnauthorized, "invalid email or password")
		return
	case errors.Is(err, authsvc.ErrUserBlocked):
		log.Info("blocked user tried to log in")
		request.Fail(w, r, http.StatusForbidden, "account is blocked")
		return
	case err != nil:
		request.Internal(w, r, log, err, "failed to log in")
		return
	}

	request.OK(w, r, http.StatusOK, LoginResponse{Token: token, Session: session})
}

// Logout godoc
// @Summary Выход
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Router /logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Logout"
	log := request.Logger(h.log, r, op)

	err := h.service.Logout(r.Context(), middlewarectx.EmailFrom(r.Context()))
	if err != nil && !errors.Is(err, authsvc.ErrNoSession) {
		request.Internal(w, r, log, err, "failed to log out")
		return
	}
	request.OK(w, r, http.StatusOK, map[string]any{"logged_out": true})
}

// Me godoc
// @Summary Текущий пользователь
// @Description Данные из токена, для пользователя также план и статус.
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Router /me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Me"
	log := request.Logger(h.log, r, op)
	ctx := r.Context()

	out := map[string]any{
		"email": middlewarectx.EmailFrom(ctx),
		"name":  middlewarectx.NameFrom(ctx),
		"role":  middlewarectx.RoleFrom(ctx),
	}
	if middlewarectx.RoleFrom(ctx) == models.RoleUser {
		user, err := h.profiles.Get(ctx, middlewarectx.EmailFrom(ctx))
		switch {
		case errors.Is(err, users.ErrUserNotFound):
			log.Warn("token owner no longer exists")
			request.Fail(w, r, http.StatusUnauthorized, "user not found")
			return
		case err != nil:
			request.Internal(w, r, log, err, "failed to load profile")
			return
		}
		out["user"] = user
	}
	request.OK(w, r, http.StatusOK, out)
}

// ForgotPassword godoc
// @Summary Запрос на сброс пароля
// @Description Заявка попадает администратору; ответ не зависит от наличия учётной записи.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body ForgotRequest true "Email"
// @Success 202 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /password/forgot [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.ForgotPassword"
	log := request.Logger(h.log, r, op)

	var req ForgotRequest
	if !request.Decode(w, r, log, h.validate, &req) {
		return
	}
	if _, err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		request.Internal(w, r, log, err, "failed to create password request")
		return
	}
	request.OK(w, r, http.StatusAccepted, map[string]any{"message": "request sent to admin"})
}
