package middlewarectx

import (
	"net/http"

	"github.com/magabrotheeeer/bitforex-academy/internal/kvstore"
)

// ClientIDHeader заголовок, которым клиент сообщает свой идентификатор.
const ClientIDHeader = "X-Client-ID"

// ClientID переносит идентификатор клиента из заголовка X-Client-ID
// (или параметра client_id) в контекст как источник изменений хранилища.
// Клиент не получает уведомлений о собственных записях.
func ClientID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(ClientIDHeader)
		if id == "" {
			id = r.URL.Query().Get("client_id")
		}
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(kvstore.WithOrigin(r.Context(), id)))
	})
}
