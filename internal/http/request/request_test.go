package request

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/bitforex-academy/internal/kvstore"
)

type payload struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"min=2"`
}

func TestDecode(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	validate := validator.New()

	tests := []struct {
		name       string
		body       string
		wantOK     bool
		wantStatus int
		wantBody   string
	}{
		{name: "valid", body: `{"email":"a@b.co","name":"Ann"}`, wantOK: true, wantStatus: http.StatusOK},
		{name: "broken json", body: `{`, wantStatus: http.StatusBadRequest, wantBody: `"invalid request body"`},
		{name: "missing email", body: `{"name":"Ann"}`, wantStatus: http.StatusUnprocessableEntity, wantBody: "field Email is a required field"},
		{name: "bad email", body: `{"email":"nope","name":"Ann"}`, wantStatus: http.StatusUnprocessableEntity, wantBody: "field Email must be a valid email"},
		{name: "short name", body: `{"email":"a@b.co","name":"A"}`, wantStatus: http.StatusUnprocessableEntity, wantBody: "field Name must be at least 2 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var p payload
			ok := Decode(rec, req, log, validate, &p)

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestFailAndOK(t *testing.T) {
	rec := httptest.NewRecorder()
	Fail(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusNotFound, "plan not found")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"status":"Error","error":"plan not found"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	OK(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusCreated, map[string]int{"n": 1})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"status":"OK","data":{"n":1}}`, rec.Body.String())
}

func TestInternal(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{name: "reset", err: fmt.Errorf("op: %w", kvstore.ErrCollectionReset), wantStatus: http.StatusInsufficientStorage, wantBody: "history was cleared"},
		{name: "quota", err: kvstore.ErrQuotaExceeded, wantStatus: http.StatusInsufficientStorage, wantBody: "storage is full"},
		{name: "other", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantBody: "failed to save"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Internal(rec, httptest.NewRequest(http.MethodPost, "/", nil), log, tt.err, "failed to save")

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}
