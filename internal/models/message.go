package models

// Типы сообщений чата.
const (
	MessageText  = "text"
	MessageImage = "image"
)

// Отправители сообщений.
const (
	SenderAdmin = "admin"
	SenderUser  = "user"
)

// Message сообщение чата. Сообщения хранятся под ключом bf_messages
// в виде Threads и только добавляются; изображения лежат в Content как data URL.
type Message struct {
	Sender  string `json:"sender"`
	Type    string `json:"type"`
	Content string `json:"content"`
	Time    int64  `json:"time"`
}

// Threads сообщения, сгруппированные по email пользователя.
type Threads map[string][]Message

// ThreadSummary краткая сводка по переписке для списка администратора.
type ThreadSummary struct {
	Email    string   `json:"email"`
	Count    int      `json:"count"`
	LastTime int64    `json:"last_time"`
	Last     *Message `json:"last,omitempty"`
}
