package middlewarectx_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/bitforex-academy/internal/http/middlewarectx"
	"github.com/magabrotheeeer/bitforex-academy/internal/kvstore"
	"github.com/magabrotheeeer/bitforex-academy/internal/lib/jwt"
	"github.com/magabrotheeeer/bitforex-academy/internal/models"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/users"
)

type ParserMock struct {
	mock.Mock
}

func (m *ParserMock) ParseToken(token string) (*jwt.CustomClaims, error) {
	args := m.Called(token)
	claims, _ := args.Get(0).(*jwt.CustomClaims)
	return claims, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestJWTMiddleware(t *testing.T) {
	claims := &jwt.CustomClaims{Email: "ann@example.com", Name: "Ann", Role: models.RoleUser}

	tests := []struct {
		name       string
		authHeader string
		url        string
		setupMock  func(m *ParserMock)
		wantStatus int
		wantCalled bool
	}{
		{
			name:       "missing Authorization header",
			url:        "/",
			setupMock:  func(_ *ParserMock) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid Authorization header prefix",
			authHeader: "Basic sometoken",
			url:        "/",
			setupMock:  func(_ *ParserMock) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "token rejected",
			authHeader: "Bearer bad",
			url:        "/",
			setupMock: func(m *ParserMock) {
				m.On("ParseToken", "bad").Return(nil, errors.New("token is expired")).Once()
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "valid header token",
			authHeader: "Bearer good",
			url:        "/",
			setupMock: func(m *ParserMock) {
				m.On("ParseToken", "good").Return(claims, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
		{
			name: "valid query token",
			url:  "/?token=good",
			setupMock: func(m *ParserMock) {
				m.On("ParseToken", "good").Return(claims, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := new(ParserMock)
			tt.setupMock(parser)

			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				assert.Equal(t, "ann@example.com", middlewarectx.EmailFrom(r.Context()))
				assert.Equal(t, "Ann", middlewarectx.NameFrom(r.Context()))
				assert.Equal(t, models.RoleUser, middlewarectx.RoleFrom(r.Context()))
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			middlewarectx.JWTMiddleware(parser, newNoopLogger())(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
			parser.AssertExpectations(t)
		})
	}
}

func TestJWTMiddleware_RealMaker(t *testing.T) {
	maker := jwt.NewJWTMaker("secret", time.Hour)
	token, err := maker.GenerateToken("admin@example.com", "Admin", models.RoleAdmin, "sid-1")
	assert.NoError(t, err)

	var role, sid string
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		role = middlewarectx.RoleFrom(r.Context())
		sid = middlewarectx.SessionFrom(r.Context())
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	middlewarectx.JWTMiddleware(maker, newNoopLogger())(next).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, models.RoleAdmin, role)
	assert.Equal(t, "sid-1", sid)
}

func TestAdminOnly(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := middlewarectx.AdminOnly(newNoopLogger())(next)

	for role, want := range map[string]int{
		models.RoleAdmin: http.StatusNoContent,
		models.RoleUser:  http.StatusForbidden,
		"":               http.StatusForbidden,
	} {
		parser := new(ParserMock)
		parser.On("ParseToken", "t").Return(&jwt.CustomClaims{Email: "x@example.com", Role: role}, nil)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer t")
		rec := httptest.NewRecorder()
		middlewarectx.JWTMiddleware(parser, newNoopLogger())(h).ServeHTTP(rec, req)

		assert.Equalf(t, want, rec.Code, "role %q", role)
	}
}

func TestClientID(t *testing.T) {
	var origin string
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		origin = kvstore.OriginFrom(r.Context())
	})
	h := middlewarectx.ClientID(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middlewarectx.ClientIDHeader, "tab-1")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "tab-1", origin)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/?client_id=tab-2", nil))
	assert.Equal(t, "tab-2", origin)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "", origin)
}

func TestRateLimitMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := middlewarectx.RateLimitMiddleware(newNoopLogger(), 0.001, 2)(next)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code, "limits are per address")
}

type AccountsMock struct {
	mock.Mock
}

func (m *AccountsMock) Get(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(models.User), args.Error(1)
}

func withSession(r *http.Request, email, role, sid string) *http.Request {
	ctx := context.WithValue(r.Context(), middlewarectx.Email, email)
	ctx = context.WithValue(ctx, middlewarectx.Role, role)
	ctx = context.WithValue(ctx, middlewarectx.SessionID, sid)
	return r.WithContext(ctx)
}

func TestUserStatusMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		user       models.User
		err        error
		wantStatus int
	}{
		{name: "active session", user: models.User{Status: models.StatusActive, Session: "sid-1"}, wantStatus: http.StatusNoContent},
		{name: "inactive account keeps access", user: models.User{Status: models.StatusInactive, Session: "sid-1"}, wantStatus: http.StatusNoContent},
		{name: "blocked", user: models.User{Status: models.StatusBlocked, Session: "sid-1"}, wantStatus: http.StatusForbidden},
		{name: "logged out", user: models.User{Status: models.StatusActive}, wantStatus: http.StatusUnauthorized},
		{name: "newer login elsewhere", user: models.User{Status: models.StatusActive, Session: "sid-2"}, wantStatus: http.StatusUnauthorized},
		{name: "deleted", err: fmt.Errorf("services.users.Get: %w", users.ErrUserNotFound), wantStatus: http.StatusUnauthorized},
		{name: "storage error", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := new(AccountsMock)
			accounts.On("Get", mock.Anything, "ann@example.com").Return(tt.user, tt.err).Once()
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})

			rec := httptest.NewRecorder()
			req := withSession(httptest.NewRequest(http.MethodGet, "/", nil), "ann@example.com", models.RoleUser, "sid-1")
			middlewarectx.UserStatusMiddleware(newNoopLogger(), accounts)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			accounts.AssertExpectations(t)
		})
	}
}

func TestUserStatusMiddleware_SkipsAdmin(t *testing.T) {
	accounts := new(AccountsMock)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	req := withSession(httptest.NewRequest(http.MethodGet, "/", nil), "admin@example.com", models.RoleAdmin, "sid-1")
	middlewarectx.UserStatusMiddleware(newNoopLogger(), accounts)(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	accounts.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}
