package metric

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP метрики - количество запросов
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Общее количество HTTP запросов",
		},
		[]string{"method", "endpoint", "status"},
	)

	// HTTP метрики - время обработки запросов
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Время обработки HTTP запросов в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	// HTTP метрики - количество ошибок
	httpErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Общее количество HTTP ошибок",
		},
		[]string{"method", "endpoint", "status"},
	)

	// WS метрики - количество активных соединений
	wsActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_active_connections",
			Help: "Количество активных WebSocket соединений",
		},
	)

	wsEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_events_total",
			Help: "Входящие WebSocket события по типу",
		},
		[]string{"type"},
	)

	wsDroppedMessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_dropped_messages_total",
			Help: "Исходящие сообщения, отброшенные из-за переполненной очереди",
		},
	)

	roomsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rooms_active",
			Help: "Количество активных комнат",
		},
	)

	graceRemovalsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "grace_removals_total",
			Help: "Участники, удалённые по истечении grace периода",
		},
	)

	revealsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reveals_total",
			Help: "Количество раскрытий голосов",
		},
	)
)

// RecordHTTPMetrics записывает метрики HTTP запроса
func RecordHTTPMetrics(method, endpoint string, status int, duration time.Duration) {
	strStatus := strconv.Itoa(status)

	httpRequestsTotal.WithLabelValues(method, endpoint, strStatus).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, strStatus).Observe(duration.Seconds())

	// Записываем ошибки (статус >= 400)
	if status >= 400 {
		httpErrorsTotal.WithLabelValues(method, endpoint, strStatus).Inc()
	}
}

func IncrementWSActiveConnections() {
	wsActiveConnections.Inc()
}

func DecrementWSActiveConnections() {
	wsActiveConnections.Dec()
}

func RecordWSEvent(eventType string) {
	wsEventsTotal.WithLabelValues(eventType).Inc()
}

func IncrementDroppedMessages() {
	wsDroppedMessagesTotal.Inc()
}

func SetRoomsActive(count int) {
	roomsActive.Set(float64(count))
}

func IncrementGraceRemovals() {
	graceRemovalsTotal.Inc()
}

func IncrementReveals() {
	revealsTotal.Inc()
}
