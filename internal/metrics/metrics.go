// Package metrics holds the Prometheus collectors of the game server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rails"

// Metrics groups the server's collectors. A nil *Metrics records nothing.
type Metrics struct {
	actionsProcessed *prometheus.CounterVec
	actionsRejected  *prometheus.CounterVec
	actionDuration   *prometheus.HistogramVec
	replays          *prometheus.CounterVec
	activeGames      prometheus.Gauge
	rpcs             *prometheus.CounterVec
	rpcDuration      *prometheus.HistogramVec
	wsClients        prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		actionsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_processed_total",
			Help:      "Actions applied to games.",
		}, []string{"variant", "kind"}),
		actionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_rejected_total",
			Help:      "Actions refused, by error class.",
		}, []string{"variant", "kind", "reason"}),
		actionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Time spent applying an action, including persistence.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"kind"}),
		replays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replays_total",
			Help:      "Games rebuilt from their action log.",
		}, []string{"cause", "result"}),
		activeGames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_games",
			Help:      "Games held in memory.",
		}),
		rpcs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "gRPC requests by method and status code.",
		}, []string{"method", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grpc_request_duration_seconds",
			Help:      "gRPC request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected websocket clients.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.actionsProcessed,
			m.actionsRejected,
			m.actionDuration,
			m.replays,
			m.activeGames,
			m.rpcs,
			m.rpcDuration,
			m.wsClients,
		)
	}
	return m
}

// ActionProcessed counts an applied action.
func (m *Metrics) ActionProcessed(variant, kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.actionsProcessed.WithLabelValues(variant, kind).Inc()
	m.actionDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// ActionRejected counts a refused action. reason is the error class.
func (m *Metrics) ActionRejected(variant, kind, reason string) {
	if m == nil {
		return
	}
	m.actionsRejected.WithLabelValues(variant, kind, reason).Inc()
}

// Replayed counts a rebuild from the log; cause is load, undo or restore.
func (m *Metrics) Replayed(cause string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.replays.WithLabelValues(cause, result).Inc()
}

// SetActiveGames records the number of games in memory.
func (m *Metrics) SetActiveGames(n int) {
	if m == nil {
		return
	}
	m.activeGames.Set(float64(n))
}

// RPC records a finished gRPC call.
func (m *Metrics) RPC(method, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.rpcs.WithLabelValues(method, code).Inc()
	m.rpcDuration.WithLabelValues(method).Observe(d.Seconds())
}

// ClientConnected adjusts the websocket client gauge by delta.
func (m *Metrics) ClientConnected(delta int) {
	if m == nil {
		return
	}
	m.wsClients.Add(float64(delta))
}
