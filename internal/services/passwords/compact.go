package passwords

import (
	"encoding/json"

	"github.com/magabrotheeeer/bitforex-academy/internal/kvstore"
	"github.com/magabrotheeeer/bitforex-academy/internal/models"
)

// Этапы очистки заявок на сброс пароля при переполнении хранилища.
const (
	StageDropResolved = "drop_resolved"
	StageCapOpen      = "cap_open"
)

// Compactor возвращает политику очистки bf_pwd_requests: сначала удаляются
// закрытые заявки, затем от открытых остаются последние limit.
func Compactor(limit int) kvstore.Compactor {
	return kvstore.CompactorFunc{
		StageList: []kvstore.Stage{
			{Name: StageDropResolved, Apply: requestsStage(func(list []models.PasswordRequest) []models.PasswordRequest {
				out := list[:0]
				for _, r := range list {
					if r.Status == models.PasswordRequestOpen {
						out = append(out, r)
					}
				}
				return out
			})},
			{Name: StageCapOpen, Apply: requestsStage(func(list []models.PasswordRequest) []models.PasswordRequest {
				if limit >= 0 && len(list) > limit {
					return list[len(list)-limit:]
				}
				return list
			})},
		},
		EmptyValue: []byte(`[]`),
	}
}

func requestsStage(fn func([]models.PasswordRequest) []models.PasswordRequest) func([]byte) ([]byte, error) {
	return func(raw []byte) ([]byte, error) {
		var list []models.PasswordRequest
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return json.Marshal(fn(list))
	}
}
