package payment

import (
	"encoding/json"

	"github.com/magabrotheeeer/bitforex-academy/internal/kvstore"
	"github.com/magabrotheeeer/bitforex-academy/internal/models"
)

// Этапы очистки заявок при переполнении хранилища.
const (
	StageDropProofs  = "drop_proofs"
	StageDropDecided = "drop_decided"
)

// Compactor возвращает политику очистки bf_pending_subs. Заявки на рассмотрении
// не трогаются до последнего: сначала у рассмотренных заявок стираются
// подтверждения длиннее proofMax, затем рассмотренные заявки удаляются.
func Compactor(proofMax int) kvstore.Compactor {
	return kvstore.CompactorFunc{
		StageList: []kvstore.Stage{
			{Name: StageDropProofs, Apply: requestsStage(func(list []models.PendingSubscription) []models.PendingSubscription {
				for i := range list {
					if list[i].Status != models.RequestPending && len(list[i].Proof) > proofMax {
						list[i].Proof = ""
					}
				}
				return list
			})},
			{Name: StageDropDecided, Apply: requestsStage(func(list []models.PendingSubscription) []models.PendingSubscription {
				out := list[:0]
				for _, r := range list {
					if r.Status == models.RequestPending {
						out = append(out, r)
					}
				}
				return out
			})},
		},
		EmptyValue: []byte(`[]`),
	}
}

func requestsStage(fn func([]models.PendingSubscription) []models.PendingSubscription) func([]byte) ([]byte, error) {
	return func(raw []byte) ([]byte, error) {
		var list []models.PendingSubscription
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return json.Marshal(fn(list))
	}
}
