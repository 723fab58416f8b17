package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/magabrotheeeer/bitforex-academy/internal/http/request"
	"github.com/magabrotheeeer/bitforex-academy/internal/lib/sl"
)

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	log    *slog.Logger
	pinger Pinger
}

func New(log *slog.Logger, pinger Pinger) *Handler {
	return &Handler{
		log:    log,
		pinger: pinger,
	}
}

// ServeHTTP godoc
// @Summary Проверка состояния
// @Tags Health
// @Produce json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.ErrorResponse
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"
	if err := h.pinger.Ping(r.Context()); err != nil {
		request.Logger(h.log, r, op).Error("storage unavailable", sl.Err(err))
		request.Fail(w, r, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	request.OK(w, r, http.StatusOK, map[string]any{"status": "ok"})
}
