// Package chat реализует переписку пользователей с администратором.
// Сообщения хранятся одной коллекцией под ключом bf_messages, сгруппированные по email.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/magabrotheeeer/bitforex-academy/internal/kvstore"
	"github.com/magabrotheeeer/bitforex-academy/internal/models"
)

var (
	// ErrInvalidType тип сообщения не text и не image.
	ErrInvalidType = errors.New("invalid message type")
	// ErrEmptyContent пустое сообщение.
	ErrEmptyContent = errors.New("message content is empty")
	// ErrInvalidImage изображение передано не как data URL.
	ErrInvalidImage = errors.New("image must be a base64 data URL")
	// ErrThreadNotFound переписки с таким email нет.
	ErrThreadNotFound = errors.New("thread not found")
)

// Service сервис чата.
type Service struct {
	store *kvstore.Store
	now   func() time.Time
}

// NewService создаёт Service.
func NewService(store *kvstore.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Send добавляет сообщение в переписку threadEmail.
func (s *Service) Send(ctx context.Context, threadEmail, sender, msgType, content string) (models.Message, error) {
	const op = "services.chat.Send"
	threadEmail = strings.ToLower(strings.TrimSpace(threadEmail))

	switch msgType {
	case models.MessageText:
		if strings.TrimSpace(content) == "" {
			return models.Message{}, fmt.Errorf("%s: %w", op, ErrEmptyContent)
		}
	case models.MessageImage:
		if !strings.HasPrefix(content, "data:image/") || !strings.Contains(content, ";base64,") {
			return models.Message{}, fmt.Errorf("%s: %w", op, ErrInvalidImage)
		}
	default:
		return models.Message{}, fmt.Errorf("%s: %w", op, ErrInvalidType)
	}

	msg := models.Message{
		Sender:  sender,
		Type:    msgType,
		Content: content,
		Time:    s.now().UnixMilli(),
	}
	_, err := kvstore.Update(ctx, s.store, kvstore.KeyMessages, models.Threads{}, func(threads *models.Threads) error {
		if *threads == nil {
			*threads = models.Threads{}
		}
		(*threads)[threadEmail] = append((*threads)[threadEmail], msg)
		return nil
	})
	if err != nil {
		return models.Message{}, fmt.Errorf("%s: %w", op, err)
	}
	return msg, nil
}

// Thread возвращает сообщения переписки email в порядке отправки.
func (s *Service) Thread(ctx context.Context, email string) ([]models.Message, error) {
	const op = "services.chat.Thread"
	threads, err := kvstore.ReadOr(ctx, s.store, kvstore.KeyMessages, models.Threads{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	msgs := threads[strings.ToLower(strings.TrimSpace(email))]
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}

// Threads возвращает сводку по всем перепискам, свежие сверху.
func (s *Service) Threads(ctx context.Context) ([]models.ThreadSummary, error) {
	const op = "services.chat.Threads"
	threads, err := kvstore.ReadOr(ctx, s.store, kvstore.KeyMessages, models.Threads{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]models.ThreadSummary, 0, len(threads))
	for email, msgs := range threads {
		sum := models.ThreadSummary{Email: email, Count: len(msgs)}
		if len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			sum.Last = &last
			sum.LastTime = last.Time
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastTime != out[j].LastTime {
			return out[i].LastTime > out[j].LastTime
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

// ClearThread удаляет переписку email целиком.
func (s *Service) ClearThread(ctx context.Context, email string) error {
	const op = "services.chat.ClearThread"
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := kvstore.Update(ctx, s.store, kvstore.KeyMessages, models.Threads{}, func(threads *models.Threads) error {
		if _, ok := (*threads)[email]; !ok {
			return ErrThreadNotFound
		}
		delete(*threads, email)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
