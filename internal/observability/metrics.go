// Package observability exposes the hub's Prometheus metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every collector the hub reports.
//
// Usage:
//
//	reg := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(reg)
//	metrics.CallTransitions.WithLabelValues("ACTIVE").Inc()
type Metrics struct {
	// Channels is the number of live websocket channels, bound or not.
	Channels prometheus.Gauge

	// OnlineUsers is the size of the presence set.
	OnlineUsers prometheus.Gauge

	// ActiveCalls is the number of calls currently in ACTIVE.
	ActiveCalls prometheus.Gauge

	// MessagesDelivered counts chat messages accepted by the hub.
	MessagesDelivered prometheus.Counter

	// CallTransitions counts call state changes.
	// Labels: state (INVITED|ACTIVE|ENDED|REJECTED|MISSED|BUSY-ABORTED|CANCELLED)
	CallTransitions *prometheus.CounterVec

	// EventsRejected counts inbound events answered with an error event.
	// Labels: code
	EventsRejected *prometheus.CounterVec

	// PersistWrites counts asynchronous store writes.
	// Labels: kind (conversation|call), result (ok|retry|failed|dropped)
	PersistWrites *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// Passing nil registers nothing, which keeps tests free of global state.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Channels: factory.NewGauge(prometheus.GaugeOpts{
			Name: "realtime_channels",
			Help: "Number of live websocket channels",
		}),
		OnlineUsers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "realtime_online_users",
			Help: "Number of users with at least one live channel",
		}),
		ActiveCalls: factory.NewGauge(prometheus.GaugeOpts{
			Name: "realtime_active_calls",
			Help: "Number of calls in the ACTIVE state",
		}),
		MessagesDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "realtime_messages_delivered_total",
			Help: "Total chat messages delivered to conversations",
		}),
		CallTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realtime_call_transitions_total",
				Help: "Total call state transitions by resulting state",
			},
			[]string{"state"},
		),
		EventsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realtime_events_rejected_total",
				Help: "Total inbound events rejected by error code",
			},
			[]string{"code"},
		),
		PersistWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realtime_persist_writes_total",
				Help: "Total asynchronous store writes by kind and result",
			},
			[]string{"kind", "result"},
		),
	}
}
