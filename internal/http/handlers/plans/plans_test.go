package plans

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
	plansvc "github.com/magabrotheeeer/bitforex-academy/internal/services/plans"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) List(ctx context.Context) ([]models.Plan, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Plan), args.Error(1)
}

func (m *MockService) Create(ctx context.Context, plan models.Plan) (models.Plan, error) {
	args := m.Called(ctx, plan)
	return args.Get(0).(models.Plan), args.Error(1)
}

func (m *MockService) Update(ctx context.Context, id string, plan models.Plan) (models.Plan, error) {
	args := m.Called(ctx, id, plan)
	return args.Get(0).(models.Plan), args.Error(1)
}

func (m *MockService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func withID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestHandler_List(t *testing.T) {
	svc := new(MockService)
	svc.On("List", mock.Anything).Return(models.DefaultPlans(), nil).Once()

	rec := httptest.NewRecorder()
	New(newNoopLogger(), svc).List(rec, httptest.NewRequest(http.MethodGet, "/plans", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"basic"`)
}

func TestHandler_Create(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setupMock  func(m *MockService)
		wantStatus int
	}{
		{
			name: "created",
			body: `{"id":"gold","name":"Gold","price":299,"features":["All"]}`,
			setupMock: func(m *MockService) {
				p := models.Plan{ID: "gold", Name: "Gold", Price: 299, Features: []string{"All"}}
				m.On("Create", mock.Anything, p).Return(p, nil).Once()
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "id not alphanumeric",
			body:       `{"id":"go ld","name":"Gold","price":1}`,
			setupMock:  func(_ *MockService) {},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "negative price",
			body:       `{"id":"gold","name":"Gold","price":-1}`,
			setupMock:  func(_ *MockService) {},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "duplicate",
			body: `{"id":"basic","name":"Basic","price":49}`,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, mock.Anything).
					Return(models.Plan{}, fmt.Errorf("services.plans.Create: %w", plansvc.ErrPlanExists)).Once()
			},
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			rec := httptest.NewRecorder()
			New(newNoopLogger(), svc).Create(rec, httptest.NewRequest(http.MethodPost, "/admin/plans", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_Update(t *testing.T) {
	svc := new(MockService)
	want := models.Plan{Name: "Pro+", Price: 109}
	svc.On("Update", mock.Anything, "pro", want).Return(models.Plan{ID: "pro", Name: "Pro+", Price: 109}, nil).Once()
	svc.On("Update", mock.Anything, "nope", want).
		Return(models.Plan{}, fmt.Errorf("services.plans.Update: %w", plansvc.ErrPlanNotFound)).Once()

	h := New(newNoopLogger(), svc)

	rec := httptest.NewRecorder()
	h.Update(rec, withID(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"name":"Pro+","price":109}`)), "pro"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"pro"`)

	rec = httptest.NewRecorder()
	h.Update(rec, withID(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"name":"Pro+","price":109}`)), "nope"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Delete(t *testing.T) {
	svc := new(MockService)
	svc.On("Delete", mock.Anything, "vip").Return(nil).Once()
	svc.On("Delete", mock.Anything, "nope").Return(plansvc.ErrPlanNotFound).Once()

	h := New(newNoopLogger(), svc)

	rec := httptest.NewRecorder()
	h.Delete(rec, withID(httptest.NewRequest(http.MethodDelete, "/", nil), "vip"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Delete(rec, withID(httptest.NewRequest(http.MethodDelete, "/", nil), "nope"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
