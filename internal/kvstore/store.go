package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/magabrotheeeer/bitforex-academy/internal/lib/sl"
	"github.com/magabrotheeeer/bitforex-academy/internal/metrics"
)

// Store синхронизатор состояния: JSON-значения, метки времени и уведомления.
type Store struct {
	backend  Backend
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time

	mu         sync.RWMutex
	compactors map[string]Compactor

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// Option настраивает Store.
type Option func(*Store)

// WithClock подменяет источник времени для меток _updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New создаёт Store поверх backend и notifier.
func New(backend Backend, notifier Notifier, log *slog.Logger, opts ...Option) *Store {
	s := &Store{
		backend:    backend,
		notifier:   notifier,
		log:        log,
		now:        time.Now,
		compactors: make(map[string]Compactor),
		locks:      make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterCompactor задаёт политику очистки ключа при переполнении квоты.
func (s *Store) RegisterCompactor(key string, c Compactor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compactors[key] = c
}

// Notifier возвращает рассыльщик уведомлений хранилища.
func (s *Store) Notifier() Notifier {
	return s.notifier
}

// Write сериализует value, сохраняет его под key, обновляет <key>_updated_at
// и уведомляет подписчиков. Если коллекцию пришлось сбросить, метка и
// уведомление всё равно публикуются, а вызывающему возвращается ErrCollectionReset.
func (s *Store) Write(ctx context.Context, key string, value any) error {
	const op = "kvstore.Write"
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	putErr := s.put(ctx, key, data)
	if putErr != nil && !errors.Is(putErr, ErrCollectionReset) {
		return fmt.Errorf("%s: %w", op, putErr)
	}

	ts := s.now().UnixMilli()
	if err := s.backend.Set(ctx, UpdatedAtKey(key), []byte(strconv.FormatInt(ts, 10))); err != nil {
		s.log.Warn("failed to write timestamp", sl.Key(key), sl.Err(err))
	}
	metrics.KVWrites.WithLabelValues(key).Inc()

	change := Change{Key: key, UpdatedAt: ts, Origin: OriginFrom(ctx)}
	if err := s.notifier.Publish(ctx, change); err != nil {
		s.log.Warn("failed to publish change", sl.Key(key), sl.Err(err))
	}

	if putErr != nil {
		return fmt.Errorf("%s: %w", op, putErr)
	}
	return nil
}

func (s *Store) put(ctx context.Context, key string, data []byte) error {
	err := s.backend.Set(ctx, key, data)
	if err == nil || !errors.Is(err, ErrQuotaExceeded) {
		return err
	}

	s.mu.RLock()
	c, ok := s.compactors[key]
	s.mu.RUnlock()
	if !ok {
		return err
	}

	log := s.log.With(sl.Key(key))
	log.Warn("storage quota exceeded, compacting", slog.Int("bytes", len(data)))

	current := data
	for _, stage := range c.Stages() {
		next, cerr := stage.Apply(current)
		if cerr != nil {
			log.Error("compaction stage failed", slog.String("stage", stage.Name), sl.Err(cerr))
			break
		}
		current = next
		metrics.KVCompactions.WithLabelValues(key, stage.Name).Inc()

		err = s.backend.Set(ctx, key, current)
		if err == nil {
			log.Info("stored after compaction", slog.String("stage", stage.Name), slog.Int("bytes", len(current)))
			return nil
		}
		if !errors.Is(err, ErrQuotaExceeded) {
			return err
		}
	}

	log.Error("compaction did not free enough space, resetting collection")
	metrics.KVResets.WithLabelValues(key).Inc()
	if err := s.backend.Set(ctx, key, c.Empty()); err != nil {
		return err
	}
	return ErrCollectionReset
}

// Read читает значение key в dst. Отсутствующее или повреждённое значение
// даёт false без ошибки, ошибка возвращается только при сбое backend'а.
func (s *Store) Read(ctx context.Context, key string, dst any) (bool, error) {
	const op = "kvstore.Read"
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.log.Warn("corrupt value, using fallback", sl.Key(key), sl.Err(err))
		return false, nil
	}
	return true, nil
}

// Raw возвращает сериализованное значение key как есть.
func (s *Store) Raw(ctx context.Context, key string) ([]byte, bool, error) {
	const op = "kvstore.Raw"
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return raw, ok, nil
}

// UpdatedAt возвращает время последней записи key.
func (s *Store) UpdatedAt(ctx context.Context, key string) (time.Time, bool, error) {
	const op = "kvstore.UpdatedAt"
	raw, ok, err := s.backend.Get(ctx, UpdatedAtKey(key))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return time.Time{}, false, nil
	}
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, false, nil
	}
	return time.UnixMilli(ms), true, nil
}

// Delete удаляет key вместе с меткой времени и уведомляет подписчиков.
func (s *Store) Delete(ctx context.Context, key string) error {
	const op = "kvstore.Delete"
	if err := s.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.backend.Delete(ctx, UpdatedAtKey(key)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	change := Change{Key: key, UpdatedAt: s.now().UnixMilli(), Origin: OriginFrom(ctx)}
	if err := s.notifier.Publish(ctx, change); err != nil {
		s.log.Warn("failed to publish change", sl.Key(key), sl.Err(err))
	}
	return nil
}

func (s *Store) lock(key string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.locksMu.Unlock()

	l.Lock()
	return l.Unlock
}

// Ping проверяет доступность backend'а чтением служебного ключа.
func (s *Store) Ping(ctx context.Context) error {
	const op = "kvstore.Ping"
	if _, _, err := s.backend.Get(ctx, UpdatedAtKey(KeyAdmin)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RenderFunc перерисовывает представление клиента по свежему значению ключа.
// raw равен nil, если ключ удалён.
type RenderFunc func(ctx context.Context, ch Change, raw []byte) error

// Watch подписывает клиента origin на изменения keys и на каждое изменение,
// сделанное другим клиентом, перечитывает ключ и вызывает render.
// Возвращает ошибку render или ctx.Err() после отмены контекста.
func (s *Store) Watch(ctx context.Context, origin string, keys []string, render RenderFunc) error {
	sub := s.notifier.Subscribe(origin, keys...)
	defer sub.Close()
	return s.watch(ctx, sub, render)
}

// Follow как Watch, но сначала вызывает render с текущим значением каждого
// из keys. Подписка оформляется до первого чтения, поэтому запись, сделанная
// между начальной отрисовкой и ожиданием изменений, не теряется.
func (s *Store) Follow(ctx context.Context, origin string, keys []string, render RenderFunc) error {
	const op = "kvstore.Follow"
	sub := s.notifier.Subscribe(origin, keys...)
	defer sub.Close()

	for _, key := range keys {
		raw, _, err := s.backend.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		change := Change{Key: key}
		if at, ok, err := s.UpdatedAt(ctx, key); err == nil && ok {
			change.UpdatedAt = at.UnixMilli()
		}
		if err := render(ctx, change, raw); err != nil {
			return err
		}
	}
	return s.watch(ctx, sub, render)
}

func (s *Store) watch(ctx context.Context, sub *Subscription, render RenderFunc) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ch, ok := <-sub.C:
			if !ok {
				return nil
			}
			raw, _, err := s.backend.Get(ctx, ch.Key)
			if err != nil {
				s.log.Warn("failed to reread changed key", sl.Key(ch.Key), sl.Err(err))
				continue
			}
			if err := render(ctx, ch, raw); err != nil {
				return err
			}
		}
	}
}

// ReadOr возвращает значение key или fallback, если значения нет либо оно повреждено.
func ReadOr[T any](ctx context.Context, s *Store, key string, fallback T) (T, error) {
	var v T
	ok, err := s.Read(ctx, key, &v)
	if err != nil {
		return fallback, err
	}
	if !ok {
		return fallback, nil
	}
	return v, nil
}

// Update выполняет чтение-изменение-запись key под блокировкой ключа внутри процесса.
// Между экземплярами сервиса блокировки нет, последний писатель выигрывает.
// Если fn возвращает ошибку, запись не выполняется.
func Update[T any](ctx context.Context, s *Store, key string, fallback T, fn func(v *T) error) (T, error) {
	unlock := s.lock(key)
	defer unlock()

	v, err := ReadOr(ctx, s, key, fallback)
	if err != nil {
		return v, err
	}
	if err := fn(&v); err != nil {
		return v, err
	}
	if err := s.Write(ctx, key, v); err != nil {
		return v, err
	}
	return v, nil
}
