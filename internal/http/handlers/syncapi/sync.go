// Package syncapi отдаёт клиентам сырые значения хранилища и ленту изменений
// по WebSocket, чтобы открытые клиенты перерисовывались после чужих записей.
package syncapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/magabrotheeeer/bitforex-academy/internal/http/middlewarectx"
	"github.com/magabrotheeeer/bitforex-academy/internal/http/request"
	"github.com/magabrotheeeer/bitforex-academy/internal/kvstore"
	"github.com/magabrotheeeer/bitforex-academy/internal/lib/sl"
	"github.com/magabrotheeeer/bitforex-academy/internal/metrics"
	"github.com/magabrotheeeer/bitforex-academy/internal/models"
)

const (
	pingPeriod = 30 * time.Second
	writeWait  = 10 * time.Second
)

// Store часть хранилища, нужная синхронизации.
type Store interface {
	Raw(ctx context.Context, key string) ([]byte, bool, error)
	UpdatedAt(ctx context.Context, key string) (time.Time, bool, error)
	Follow(ctx context.Context, origin string, keys []string, render kvstore.RenderFunc) error
}

// Snapshot значение ключа с меткой последней записи (unix ms).
// Value отсутствует, если ключ не записан или клиенту недоступен.
type Snapshot struct {
	Key       string          `json:"key"`
	UpdatedAt int64           `json:"updated_at"`
	Value     json.RawMessage `json:"value,omitempty"`
	Deleted   bool            `json:"deleted,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// Handler отдаёт снимки ключей хранилища и ленту их изменений по WebSocket.
type Handler struct {
	log   *slog.Logger
	store Store
}

// New создаёт Handler поверх store.
func New(log *slog.Logger, store Store) *Handler {
	return &Handler{log: log, store: store}
}

// secret ключи, которые не отдаются никому.
func secret(key string) bool {
	return key == kvstore.KeyAdmin || key == kvstore.KeySession
}

// readable сообщает, может ли роль role видеть значение key.
// Пользователю доступны только общие каталоги, администратору всё, кроме секретов.
func readable(role, key string) bool {
	if !kvstore.IsDataKey(key) || secret(key) {
		return false
	}
	if role == models.RoleAdmin {
		return true
	}
	return key == kvstore.KeyPlans || key == kvstore.KeyCourses
}

// Get godoc
// @Summary Значение ключа хранилища
// @Description Сырой JSON и метка updated_at. Пользователю доступны subscriptionPlans и courses.
// @Tags Sync
// @Produce json
// @Security BearerAuth
// @Param key path string true "Ключ"
// @Success 200 {object} Snapshot
// @Failure 404 {object} response.ErrorResponse
// @Router /sync/{key} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.sync.Get"
	log := request.Logger(h.log, r, op)
	key := chi.URLParam(r, "key")

	if !readable(middlewarectx.RoleFrom(r.Context()), key) {
		request.Fail(w, r, http.StatusNotFound, "unknown key")
		return
	}
	snap, err := h.snapshot(r.Context(), key)
	if err != nil {
		request.Internal(w, r, log, err, "failed to read key")
		return
	}
	request.OK(w, r, http.StatusOK, snap)
}

func (h *Handler) snapshot(ctx context.Context, key string) (Snapshot, error) {
	snap := Snapshot{Key: key}
	raw, ok, err := h.store.Raw(ctx, key)
	if err != nil {
		return snap, err
	}
	if ok {
		snap.Value = raw
	}
	at, ok, err := h.store.UpdatedAt(ctx, key)
	if err != nil {
		return snap, err
	}
	if ok {
		snap.UpdatedAt = at.UnixMilli()
	}
	return snap, nil
}

// parseKeys разбирает параметр keys. Пустой параметр означает ключи по умолчанию.
func parseKeys(param string) ([]string, error) {
	if param == "" {
		return kvstore.WatchedKeys, nil
	}
	var keys []string
	for _, k := range strings.Split(param, ",") {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if !kvstore.IsDataKey(k) || secret(k) {
			return nil, errors.New("unknown key " + k)
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return kvstore.WatchedKeys, nil
	}
	return keys, nil
}

// Feed godoc
// @Summary Лента изменений
// @Description WebSocket. Сразу после подключения приходят текущие значения ключей,
// @Description затем по сообщению на каждую запись другого клиента. Собственные записи
// @Description клиента (тот же X-Client-ID или client_id) не присылаются.
// @Tags Sync
// @Security BearerAuth
// @Param keys query string false "Ключи через запятую"
// @Param client_id query string false "Идентификатор клиента"
// @Router /sync/ws [get]
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.sync.Feed"
	log := request.Logger(h.log, r, op)

	keys, err := parseKeys(r.URL.Query().Get("keys"))
	if err != nil {
		request.Fail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	origin := kvstore.OriginFrom(r.Context())
	if origin == "" {
		origin = uuid.NewString()
	}
	role := middlewarectx.RoleFrom(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade failed", sl.Err(err))
		return
	}
	defer conn.Close()

	metrics.WSClients.Inc()
	defer metrics.WSClients.Dec()
	log = log.With(slog.String("origin", origin))
	log.Info("feed client connected", slog.Any("keys", keys))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go readPump(ctx, cancel, conn)
	go pingPump(ctx, conn)

	err = h.store.Follow(ctx, origin, keys, func(_ context.Context, ch kvstore.Change, raw []byte) error {
		snap := Snapshot{Key: ch.Key, UpdatedAt: ch.UpdatedAt, Deleted: raw == nil}
		if readable(role, ch.Key) {
			snap.Value = raw
		}
		return writeJSON(conn, snap)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Info("feed closed", sl.Err(err))
		return
	}
	log.Info("feed client disconnected")
}

func writeJSON(conn *websocket.Conn, v any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

// readPump читает входящие кадры только ради обнаружения закрытия соединения.
func readPump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn) {
	defer cancel()
	for ctx.Err() == nil {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func pingPump(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
