package kvstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory backend в памяти процесса с квотой в байтах, как у хранилища браузера.
// Размер записи считается как len(key)+len(value). Квота 0 означает без ограничений.
type Memory struct {
	mu    sync.RWMutex
	data  map[string][]byte
	quota int64
	used  int64
}

// NewMemory создаёт пустой Memory с заданной квотой.
func NewMemory(quota int64) *Memory {
	return &Memory{
		data:  make(map[string][]byte),
		quota: quota,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	const op = "kvstore.Memory.Set"
	m.mu.Lock()
	defer m.mu.Unlock()

	size := int64(len(key) + len(value))
	var old int64
	if v, ok := m.data[key]; ok {
		old = int64(len(key) + len(v))
	}
	if m.quota > 0 && m.used-old+size > m.quota {
		return fmt.Errorf("%s: %q needs %d bytes: %w", op, key, size, ErrQuotaExceeded)
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[key] = stored
	m.used += size - old
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.data[key]; ok {
		m.used -= int64(len(key) + len(v))
		delete(m.data, key)
	}
	return nil
}

func (m *Memory) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Used возвращает занятый объём в байтах.
func (m *Memory) Used() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.used
}
