// Package sl содержит вспомогательные атрибуты для логгера slog.
package sl

import (
	"log/slog"
	"os"
)

// Окружения из конфига.
const (
	EnvLocal = "local"
	EnvProd  = "prod"
)

// New создаёт логгер для окружения: в local текстовый с уровнем debug,
// в остальных JSON с уровнем info.
func New(env string) *slog.Logger {
	if env == EnvLocal || env == "" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// Err возвращает атрибут "error" с текстом ошибки.
// Для nil возвращается пустая строка, чтобы вызов в defer не паниковал.
//
//	log.Error("failed to write key", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Key возвращает атрибут с именем ключа хранилища.
func Key(key string) slog.Attr {
	return slog.String("key", key)
}
