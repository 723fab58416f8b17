// Package metrics объявляет prometheus-метрики сервиса.
// Метрики регистрируются в стандартном реестре и отдаются на /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// KVWrites количество успешных записей по ключам хранилища.
	KVWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "academy",
		Subsystem: "kv",
		Name:      "writes_total",
		Help:      "Number of successful key-value writes.",
	}, []string{"key"})

	// KVCompactions количество применённых этапов аварийной очистки.
	KVCompactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "academy",
		Subsystem: "kv",
		Name:      "compactions_total",
		Help:      "Quota fallback stages applied per key.",
	}, []string{"key", "stage"})

	// KVResets количество ключей, сброшенных в пустое значение после переполнения.
	KVResets = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "academy",
		Subsystem: "kv",
		Name:      "resets_total",
		Help:      "Collections reset to empty after quota fallback failed.",
	}, []string{"key"})

	// NotificationsDropped уведомления, не доставленные медленным подписчикам.
	NotificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "academy",
		Subsystem: "sync",
		Name:      "notifications_dropped_total",
		Help:      "Change notifications dropped because a subscriber buffer was full.",
	})

	// WSClients число подключённых клиентов ленты изменений.
	WSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "academy",
		Subsystem: "sync",
		Name:      "ws_clients",
		Help:      "Connected change feed clients.",
	})

	// PaymentDecisions решения администратора по заявкам на подписку.
	PaymentDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "academy",
		Subsystem: "payments",
		Name:      "decisions_total",
		Help:      "Pending subscription requests decided by admin.",
	}, []string{"status"})
)
