package users

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/bitforex-academy/internal/models"
	usersvc "github.com/magabrotheeeer/bitforex-academy/internal/services/users"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) List(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockService) Get(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockService) SetStatus(ctx context.Context, email, status string) (models.User, error) {
	args := m.Called(ctx, email, status)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockService) Delete(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func withEmail(r *http.Request, email string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("email", email)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestHandler_List(t *testing.T) {
	svc := new(MockService)
	svc.On("List", mock.Anything).Return([]models.User{{Email: "ann@example.com"}}, nil).Once()

	rec := httptest.NewRecorder()
	New(newNoopLogger(), svc).List(rec, httptest.NewRequest(http.MethodGet, "/admin/users", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"password":"$2`)
}

func TestHandler_Get(t *testing.T) {
	svc := new(MockService)
	svc.On("Get", mock.Anything, "ghost@example.com").
		Return(models.User{}, fmt.Errorf("op: %w", usersvc.ErrUserNotFound)).Once()

	rec := httptest.NewRecorder()
	New(newNoopLogger(), svc).Get(rec, withEmail(httptest.NewRequest(http.MethodGet, "/", nil), "ghost@example.com"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_SetStatus(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setupMock  func(m *MockService)
		wantStatus int
	}{
		{
			name: "block",
			body: `{"status":"Blocked"}`,
			setupMock: func(m *MockService) {
				m.On("SetStatus", mock.Anything, "ann@example.com", models.StatusBlocked).
					Return(models.User{Email: "ann@example.com", Status: models.StatusBlocked}, nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown status",
			body:       `{"status":"Frozen"}`,
			setupMock:  func(_ *MockService) {},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "missing user",
			body: `{"status":"Active"}`,
			setupMock: func(m *MockService) {
				m.On("SetStatus", mock.Anything, "ann@example.com", models.StatusActive).
					Return(models.User{}, usersvc.ErrUserNotFound).Once()
			},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			rec := httptest.NewRecorder()
			req := withEmail(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(tt.body)), "ann@example.com")
			New(newNoopLogger(), svc).SetStatus(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_Delete(t *testing.T) {
	svc := new(MockService)
	svc.On("Delete", mock.Anything, "ann@example.com").Return(nil).Once()

	rec := httptest.NewRecorder()
	New(newNoopLogger(), svc).Delete(rec, withEmail(httptest.NewRequest(http.MethodDelete, "/", nil), "ann@example.com"))

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}
