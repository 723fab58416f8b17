package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/bitforex-academy/internal/http/middlewarectx"
	"github.com/magabrotheeeer/bitforex-academy/internal/models"
	authsvc "github.com/magabrotheeeer/bitforex-academy/internal/services/auth"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/users"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Register(ctx context.Context, name, email, password, username string) (models.User, error) {
	args := m.Called(ctx, name, email, password, username)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockService) Login(ctx context.Context, email, password string) (string, models.Session, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Get(1).(models.Session), args.Error(2)
}

func (m *MockService) Logout(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockService) ForgotPassword(ctx context.Context, email string) (models.PasswordRequest, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(models.PasswordRequest), args.Error(1)
}

type MockProfiles struct {
	mock.Mock
}

func (m *MockProfiles) Get(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(models.User), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func withUser(r *http.Request, email, role string) *http.Request {
	ctx := context.WithValue(r.Context(), middlewarectx.Email, email)
	ctx = context.WithValue(ctx, middlewarectx.Name, "Ann")
	ctx = context.WithValue(ctx, middlewarectx.Role, role)
	return r.WithContext(ctx)
}

func TestHandler_Register(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setupMock  func(m *MockService)
		wantStatus int
		wantBody   string
	}{
		{
			name: "success",
			body: `{"name":"Ann","email":"ann@example.com","password":"secret1"}`,
			setupMock: func(m *MockService) {
				m.On("Register", mock.Anything, "Ann", "ann@example.com", "secret1", "").
					Return(models.User{Name: "Ann", Email: "ann@example.com", Status: models.StatusInactive}, nil).Once()
			},
			wantStatus: http.StatusCreated,
			wantBody:   `"status":"Inactive"`,
		},
		{
			name:       "invalid json",
			body:       `{`,
			setupMock:  func(_ *MockService) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name:       "short password",
			body:       `{"name":"Ann","email":"ann@example.com","password":"123"}`,
			setupMock:  func(_ *MockService) {},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "field Password must be at least 6 characters",
		},
		{
			name: "duplicate email",
			body: `{"name":"Ann","email":"ann@example.com","password":"secret1"}`,
			setupMock: func(m *MockService) {
				m.On("Register", mock.Anything, "Ann", "ann@example.com", "secret1", "").
					Return(models.User{}, authsvc.ErrUserExists).Once()
			},
			wantStatus: http.StatusConflict,
			wantBody:   "already exists",
		},
		{
			name: "storage error",
			body: `{"name":"Ann","email":"ann@example.com","password":"secret1"}`,
			setupMock: func(m *MockService) {
				m.On("Register", mock.Anything, "Ann", "ann@example.com", "secret1", "").
					Return(models.User{}, errors.New("quota exceeded")).Once()
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "failed to register user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)
			h := New(newNoopLogger(), svc, new(MockProfiles))

			rec := httptest.NewRecorder()
			h.Register(rec, httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_Login(t *testing.T) {
	body := `{"email":"ann@example.com","password":"secret1"}`
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{name: "success", wantStatus: http.StatusOK, wantBody: `"token":"jwt-token"`},
		{name: "bad credentials", err: authsvc.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized, wantBody: "invalid email or password"},
		{name: "blocked", err: authsvc.ErrUserBlocked, wantStatus: http.StatusForbidden, wantBody: "account is blocked"},
		{name: "internal", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantBody: "failed to log in"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			token := ""
			sess := models.Session{}
			if tt.err == nil {
				token = "jwt-token"
				sess = models.Session{Email: "ann@example.com", Role: models.RoleUser, Active: true}
			}
			svc.On("Login", mock.Anything, "ann@example.com", "secret1").Return(token, sess, tt.err).Once()

			rec := httptest.NewRecorder()
			New(newNoopLogger(), svc, new(MockProfiles)).Login(rec, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body)))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestHandler_Logout(t *testing.T) {
	svc := new(MockService)
	svc.On("Logout", mock.Anything, "ann@example.com").Return(authsvc.ErrNoSession).Once()

	rec := httptest.NewRecorder()
	req := withUser(httptest.NewRequest(http.MethodPost, "/logout", nil), "ann@example.com", models.RoleUser)
	New(newNoopLogger(), svc, new(MockProfiles)).Logout(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, "logging out twice is not an error")
	svc.AssertExpectations(t)
}

func TestHandler_Me(t *testing.T) {
	t.Run("user gets profile", func(t *testing.T) {
		profiles := new(MockProfiles)
		profiles.On("Get", mock.Anything, "ann@example.com").Return(models.User{Email: "ann@example.com", Plan: "pro"}, nil).Once()

		rec := httptest.NewRecorder()
		req := withUser(httptest.NewRequest(http.MethodGet, "/me", nil), "ann@example.com", models.RoleUser)
		New(newNoopLogger(), new(MockService), profiles).Me(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"plan":"pro"`)
	})

	t.Run("deleted user", func(t *testing.T) {
		profiles := new(MockProfiles)
		profiles.On("Get", mock.Anything, "ann@example.com").Return(models.User{}, users.ErrUserNotFound).Once()

		rec := httptest.NewRecorder()
		req := withUser(httptest.NewRequest(http.MethodGet, "/me", nil), "ann@example.com", models.RoleUser)
		New(newNoopLogger(), new(MockService), profiles).Me(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("admin has no profile lookup", func(t *testing.T) {
		profiles := new(MockProfiles)
		rec := httptest.NewRecorder()
		req := withUser(httptest.NewRequest(http.MethodGet, "/me", nil), "admin@example.com", models.RoleAdmin)
		New(newNoopLogger(), new(MockService), profiles).Me(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"role":"admin"`)
		profiles.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})
}

func TestHandler_ForgotPassword(t *testing.T) {
	svc := new(MockService)
	svc.On("ForgotPassword", mock.Anything, "ann@example.com").Return(models.PasswordRequest{ID: "r1"}, nil).Once()

	rec := httptest.NewRecorder()
	New(newNoopLogger(), svc, new(MockProfiles)).ForgotPassword(rec,
		httptest.NewRequest(http.MethodPost, "/password/forgot", strings.NewReader(`{"email":"ann@example.com"}`)))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	svc.AssertExpectations(t)
}
