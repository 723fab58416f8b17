// Package kvstore реализует синхронизируемое хранилище ключ-значение академии.
//
// Значения хранятся как JSON под строковыми ключами. Каждая запись сопровождается
// меткой времени под ключом <key>_updated_at и уведомлением для остальных клиентов,
// которые следят за этим ключом. Блокировок между экземплярами и версий нет:
// последний писатель выигрывает, а подписчики лишь узнают, что что-то изменилось.
package kvstore

import (
	"context"
	"errors"
)

// ErrQuotaExceeded возвращается backend'ом, если запись превысит ёмкость хранилища.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// ErrCollectionReset возвращается из Write, когда аварийная очистка не помогла
// и коллекция под ключом была сброшена в пустое значение.
var ErrCollectionReset = errors.New("collection reset after quota fallback")

// Backend хранит сырые байты под ключами.
type Backend interface {
	// Get возвращает значение и признак его наличия.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set сохраняет значение, при нехватке места возвращает ErrQuotaExceeded.
	Set(ctx context.Context, key string, value []byte) error
	// Delete удаляет ключ, отсутствие ключа ошибкой не считается.
	Delete(ctx context.Context, key string) error
	// Keys возвращает все ключи хранилища.
	Keys(ctx context.Context) ([]string, error)
}
