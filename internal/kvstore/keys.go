package kvstore

import "context"

// Ключи записей академии.
const (
	KeyAdmin            = "adminAccount"
	KeyUsers            = "users"
	KeySession          = "session"
	KeyMessages         = "bf_messages"
	KeyPendingSubs      = "bf_pending_subs"
	KeyPlans            = "subscriptionPlans"
	KeyPasswordRequests = "bf_pwd_requests"
	KeyCourses          = "courses"
)

const updatedAtSuffix = "_updated_at"

// WatchedKeys ключи, изменения которых по умолчанию перерисовывают клиентов.
var WatchedKeys = []string{
	KeyMessages,
	KeyPendingSubs,
	KeyUsers,
	KeyPlans,
	KeyCourses,
}

// DataKeys все ключи с данными; только их можно читать через API синхронизации.
var DataKeys = []string{
	KeyAdmin,
	KeyUsers,
	KeySession,
	KeyMessages,
	KeyPendingSubs,
	KeyPlans,
	KeyPasswordRequests,
	KeyCourses,
}

// UpdatedAtKey возвращает ключ-компаньон с меткой времени последней записи.
func UpdatedAtKey(key string) string {
	return key + updatedAtSuffix
}

// IsDataKey сообщает, является ли key одним из ключей с данными.
func IsDataKey(key string) bool {
	for _, k := range DataKeys {
		if k == key {
			return true
		}
	}
	return false
}

type originKey struct{}

// WithOrigin помечает контекст идентификатором клиента, от имени которого идёт запись.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originKey{}, origin)
}

// OriginFrom возвращает идентификатор клиента из контекста или пустую строку.
func OriginFrom(ctx context.Context) string {
	origin, _ := ctx.Value(originKey{}).(string)
	return origin
}
