package rabbitmq

// Ключи маршрутизации уведомлений.
const (
	RoutingPayments  = "payments"
	RoutingPassword  = "password"
	RoutingReminders = "reminders"
)

// QueueConfig очередь и ключ, которым она привязана к обменнику.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// NotificationQueues очереди, которые читает отправитель писем.
func NotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "academy.payments", RoutingKey: RoutingPayments},
		{QueueName: "academy.password", RoutingKey: RoutingPassword},
		{QueueName: "academy.reminders", RoutingKey: RoutingReminders},
	}
}
