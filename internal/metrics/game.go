// Package metrics публикует метрики игрового сервера в Prometheus.
// Все методы безопасны на nil-приёмнике: сервисы в тестах работают без метрик.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GameMetrics — счётчики игрового цикла и транспорта.
type GameMetrics struct {
	joins             *prometheus.CounterVec
	exits             *prometheus.CounterVec
	actions           *prometheus.CounterVec
	cheats            *prometheus.CounterVec
	abandoned         prometheus.Counter
	connections       prometheus.Gauge
	rejectedConns     *prometheus.CounterVec
	rateLimited       prometheus.Counter
	handlerDuration   *prometheus.HistogramVec
	difficultyHandout prometheus.Histogram
}

var (
	gameOnce     sync.Once
	gameRegistry *GameMetrics
)

// Game возвращает синглтон, зарегистрированный в prometheus.DefaultRegisterer.
func Game() *GameMetrics {
	gameOnce.Do(func() {
		gameRegistry = &GameMetrics{
			joins: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "arena_join_total",
				Help: "join_game requests by result.",
			}, []string{"result"}),
			exits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "arena_exit_total",
				Help: "exit_game requests by result.",
			}, []string{"result"}),
			actions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "arena_game_actions_total",
				Help: "Recorded game actions by type.",
			}, []string{"type"}),
			cheats: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "arena_cheat_detected_total",
				Help: "Anti-cheat detections by check.",
			}, []string{"check"}),
			abandoned: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "arena_attempts_abandoned_total",
				Help: "Attempts closed by the reconciler.",
			}),
			connections: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "arena_ws_connections",
				Help: "Currently open WebSocket connections.",
			}),
			rejectedConns: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "arena_ws_rejected_total",
				Help: "WebSocket connections closed during authentication by close code.",
			}, []string{"code"}),
			rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "arena_rate_limited_total",
				Help: "Inbound messages dropped by the per-player rate limiter.",
			}),
			handlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "arena_handler_duration_seconds",
				Help:    "Inbound message handling latency by message type.",
				Buckets: prometheus.DefBuckets,
			}, []string{"type"}),
			difficultyHandout: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "arena_difficulty",
				Help:    "Difficulty assigned on join.",
				Buckets: prometheus.LinearBuckets(1, 0.1, 11),
			}),
		}
		prometheus.MustRegister(
			gameRegistry.joins,
			gameRegistry.exits,
			gameRegistry.actions,
			gameRegistry.cheats,
			gameRegistry.abandoned,
			gameRegistry.connections,
			gameRegistry.rejectedConns,
			gameRegistry.rateLimited,
			gameRegistry.handlerDuration,
			gameRegistry.difficultyHandout,
		)
	})
	return gameRegistry
}

func label(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

func (m *GameMetrics) ObserveJoin(result string, difficulty float64) {
	if m == nil {
		return
	}
	m.joins.WithLabelValues(label(result)).Inc()
	if difficulty > 0 {
		m.difficultyHandout.Observe(difficulty)
	}
}

func (m *GameMetrics) ObserveExit(result string) {
	if m == nil {
		return
	}
	m.exits.WithLabelValues(label(result)).Inc()
}

func (m *GameMetrics) ObserveAction(actionType string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(label(actionType)).Inc()
}

func (m *GameMetrics) ObserveCheat(check string) {
	if m == nil {
		return
	}
	m.cheats.WithLabelValues(label(check)).Inc()
}

func (m *GameMetrics) ObserveAbandoned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.abandoned.Add(float64(n))
}

func (m *GameMetrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *GameMetrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

func (m *GameMetrics) ObserveRejected(code string) {
	if m == nil {
		return
	}
	m.rejectedConns.WithLabelValues(label(code)).Inc()
}

func (m *GameMetrics) ObserveRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func (m *GameMetrics) ObserveHandler(msgType string, took time.Duration) {
	if m == nil {
		return
	}
	m.handlerDuration.WithLabelValues(label(msgType)).Observe(took.Seconds())
}
