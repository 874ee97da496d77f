package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_reminder_ticks_total",
			Help: "Количество тиков планировщика напоминаний по исходу",
		},
		[]string{"outcome"}, // ok, query_error, mark_error
	)

	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "todo_reminder_tick_duration_seconds",
			Help:    "Длительность одного тика планировщика",
			Buckets: prometheus.DefBuckets,
		},
	)

	RemindersMarked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "todo_reminders_marked_total",
			Help: "Задачи, получившие notified_at",
		},
	)

	DeliveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "todo_reminder_delivery_failures_total",
			Help: "Задачи, доставка по которым не удалась и будет повторена",
		},
	)

	PushSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_push_sends_total",
			Help: "Попытки отправки push по исходу",
		},
		[]string{"outcome"}, // delivered, gone, failed
	)

	PushSubscriptionsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "todo_push_subscriptions_pruned_total",
			Help: "Подписки, удалённые после ответа 404/410",
		},
	)

	PushBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "todo_push_breaker_state",
			Help: "Состояние circuit breaker push-транспорта (0=closed, 1=half-open, 2=open)",
		},
	)

	FeedSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "todo_inapp_feed_size",
			Help: "Текущее число сообщений в in-app ленте",
		},
	)
)
