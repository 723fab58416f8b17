package kvstore

import (
	"context"
	"sync"

	"github.com/magabrotheeeer/bitforex-academy/internal/metrics"
)

// Change уведомление об изменении ключа.
type Change struct {
	Key       string `json:"key"`
	UpdatedAt int64  `json:"updated_at"`
	Origin    string `json:"origin,omitempty"`
}

// Notifier рассылает уведомления об изменениях подписчикам.
type Notifier interface {
	Publish(ctx context.Context, ch Change) error
	Subscribe(origin string, keys ...string) *Subscription
}

// Subscription подписка клиента на изменения набора ключей.
// Изменения, записанные самим клиентом (тот же origin), не доставляются.
type Subscription struct {
	C <-chan Change

	c      chan Change
	origin string
	keys   map[string]struct{}
	hub    *Hub
	once   sync.Once
}

// Close отписывает клиента и закрывает канал C.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.unsubscribe(s) })
}

func (s *Subscription) wants(ch Change) bool {
	if s.origin != "" && ch.Origin == s.origin {
		return false
	}
	if len(s.keys) == 0 {
		return true
	}
	_, ok := s.keys[ch.Key]
	return ok
}

// Hub рассылает уведомления внутри процесса.
// Если буфер подписчика заполнен, уведомление для него отбрасывается:
// доставка рекомендательная, клиент всё равно перечитает ключ при следующем изменении.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
}

// NewHub создаёт Hub с буфером buffer уведомлений на подписчика.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Publish доставляет уведомление подписчикам текущего процесса.
func (h *Hub) Publish(_ context.Context, ch Change) error {
	h.deliver(ch)
	return nil
}

// Subscribe подписывает клиента origin на ключи keys, без ключей на все.
func (h *Hub) Subscribe(origin string, keys ...string) *Subscription {
	c := make(chan Change, h.buffer)
	sub := &Subscription{
		C:      c,
		c:      c,
		origin: origin,
		keys:   make(map[string]struct{}, len(keys)),
		hub:    h,
	}
	for _, k := range keys {
		sub.keys[k] = struct{}{}
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Len возвращает число активных подписок.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) deliver(ch Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		if !sub.wants(ch) {
			continue
		}
		select {
		case sub.c <- ch:
		default:
			metrics.NotificationsDropped.Inc()
		}
	}
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.c)
	}
}
