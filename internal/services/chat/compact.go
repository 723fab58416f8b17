package chat

import (
	"encoding/json"

	"github.com/magabrotheeeer/bitforex-academy/internal/kvstore"
	"github.com/magabrotheeeer/bitforex-academy/internal/models"
)

// Этапы очистки сообщений при переполнении хранилища.
const (
	StageDropImages = "drop_images"
	StageTruncate   = "truncate_history"
)

// Compactor возвращает политику очистки bf_messages: сначала удаляются
// изображения длиннее imageMax байт, затем в каждой переписке остаются
// последние historyCap сообщений. Если и этого мало, коллекция сбрасывается в {}.
func Compactor(imageMax, historyCap int) kvstore.Compactor {
	return kvstore.CompactorFunc{
		StageList: []kvstore.Stage{
			{Name: StageDropImages, Apply: threadsStage(func(msgs []models.Message) []models.Message {
				return dropImages(msgs, imageMax)
			})},
			{Name: StageTruncate, Apply: threadsStage(func(msgs []models.Message) []models.Message {
				return truncate(msgs, historyCap)
			})},
		},
		EmptyValue: []byte(`{}`),
	}
}

func threadsStage(fn func([]models.Message) []models.Message) func([]byte) ([]byte, error) {
	return func(raw []byte) ([]byte, error) {
		var threads models.Threads
		if err := json.Unmarshal(raw, &threads); err != nil {
			return nil, err
		}
		for email, msgs := range threads {
			threads[email] = fn(msgs)
		}
		return json.Marshal(threads)
	}
}

func dropImages(msgs []models.Message, imageMax int) []models.Message {
	out := msgs[:0:0]
	for _, m := range msgs {
		if m.Type == models.MessageImage && len(m.Content) > imageMax {
			continue
		}
		out = append(out, m)
	}
	return out
}

func truncate(msgs []models.Message, historyCap int) []models.Message {
	if historyCap <= 0 {
		return []models.Message{}
	}
	if len(msgs) <= historyCap {
		return msgs
	}
	return msgs[len(msgs)-historyCap:]
}
