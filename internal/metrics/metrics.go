// Package metrics объявляет счётчики Prometheus движка доступа.
// Счётчики регистрируются в реестре по умолчанию и отдаются через /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConfirmationsTotal считает обработанные подтверждения оплаты
	// по результату: applied, duplicate или failed.
	ConfirmationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confirmations_total",
		Help: "Payment confirmations processed, by result.",
	}, []string{"result"})

	// ReconciliationGapsTotal считает подтверждённые покупки, зачисление
	// которых не удалось. Рост счётчика — повод для ремонтного прохода.
	ReconciliationGapsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconciliation_gaps_total",
		Help: "Confirmed purchases whose ledger credit failed.",
	})

	// NotificationsSentTotal считает отправленные в конвейер напоминания по вехам.
	NotificationsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Expiry reminders handed to the delivery pipeline, by milestone.",
	}, []string{"milestone"})

	// AllocationsTotal считает решения балансировщика:
	// kept, assigned или no_capacity.
	AllocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "allocations_total",
		Help: "Allocation decisions, by outcome.",
	}, []string{"outcome"})
)
