// Package metrics exposes prometheus instrumentation for the broadcast hub.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors the hub reports into. Delivery failures are
// the observability hook for fan-out errors: a failed session write is
// counted here and otherwise swallowed at the hub boundary.
type Metrics struct {
	EventsEmitted    *prometheus.CounterVec
	EventsDropped    prometheus.Counter
	Deliveries       prometheus.Counter
	DeliveryFailures prometheus.Counter
	Sessions         prometheus.Gauge
	Rooms            prometheus.Gauge
}

// New creates and registers the hub collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena",
			Subsystem: "realtime",
			Name:      "events_emitted_total",
			Help:      "Events accepted for broadcast, by event type.",
		}, []string{"event"}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arena",
			Subsystem: "realtime",
			Name:      "events_dropped_total",
			Help:      "Events dropped before fan-out (routing defects, full broadcast queue).",
		}),
		Deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arena",
			Subsystem: "realtime",
			Name:      "deliveries_total",
			Help:      "Per-session event deliveries queued.",
		}),
		DeliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arena",
			Subsystem: "realtime",
			Name:      "delivery_failures_total",
			Help:      "Per-session deliveries that failed and disconnected the session.",
		}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "arena",
			Subsystem: "realtime",
			Name:      "sessions",
			Help:      "Currently connected websocket sessions.",
		}),
		Rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "arena",
			Subsystem: "realtime",
			Name:      "rooms",
			Help:      "Rooms with at least one member session.",
		}),
	}

	reg.MustRegister(
		m.EventsEmitted,
		m.EventsDropped,
		m.Deliveries,
		m.DeliveryFailures,
		m.Sessions,
		m.Rooms,
	)
	return m
}
