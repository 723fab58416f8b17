package models

// Статусы заявки на подписку.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// PendingSubscription заявка на подписку с подтверждением оплаты,
// хранится под ключом bf_pending_subs до решения администратора.
type PendingSubscription struct {
	ID        string  `json:"id"`
	UserEmail string  `json:"userEmail"`
	Plan      string  `json:"plan"`
	Price     float64 `json:"price"`
	Proof     string  `json:"proof"`
	Status    string  `json:"status"`
	Created   int64   `json:"created"`
	Decided   int64   `json:"decided,omitempty"`
}

// Plan тарифный план под ключом subscriptionPlans.
type Plan struct {
	ID       string   `json:"id" validate:"required,alphanum"`
	Name     string   `json:"name" validate:"required"`
	Price    float64  `json:"price" validate:"gte=0"`
	Features []string `json:"features"`
}

// DefaultPlans планы, которыми засевается пустое хранилище.
func DefaultPlans() []Plan {
	return []Plan{
		{ID: "basic", Name: "Basic", Price: 49, Features: []string{"Beginner course", "Community chat"}},
		{ID: "pro", Name: "Pro", Price: 99, Features: []string{"All courses", "Weekly signals", "Admin chat"}},
		{ID: "vip", Name: "VIP", Price: 199, Features: []string{"All courses", "Daily signals", "1:1 mentoring"}},
	}
}

// Course учебный курс под ключом courses.
type Course struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Level       string `json:"level"`
	Created     int64  `json:"created"`
}

// Notification событие, которое публикуется в очередь уведомлений
// и превращается отправителем в письмо.
type Notification struct {
	Kind    string            `json:"kind"`
	Email   string            `json:"email"`
	Name    string            `json:"name,omitempty"`
	Subject string            `json:"subject,omitempty"`
	Data    map[string]string `json:"data,omitempty"`
}

// Виды уведомлений.
const (
	NotifyPaymentApproved = "payment_approved"
	NotifyPaymentRejected = "payment_rejected"
	NotifyPaymentPending  = "payment_pending"
	NotifyPasswordRequest = "password_request"
	NotifyPasswordReset   = "password_reset"
)
