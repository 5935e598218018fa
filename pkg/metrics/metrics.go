// Package metrics exposes the Prometheus collectors of the realtime layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons reported by EventDropped.
const (
	DropNoMembers    = "no_members"
	DropSlowConsumer = "slow_consumer"
	DropMarshal      = "marshal_error"
	DropBackplane    = "backplane_error"
)

// Metrics groups every collector. A nil *Metrics is valid and records
// nothing, which keeps tests free of registry plumbing.
type Metrics struct {
	connections     prometheus.Gauge
	roomMemberships prometheus.Gauge
	eventsPublished *prometheus.CounterVec
	eventsDropped   *prometheus.CounterVec
	joinsDenied     *prometheus.CounterVec
	notificationOps *prometheus.CounterVec
	backplane       *prometheus.CounterVec
}

// New registers the collectors on registerer (DefaultRegisterer when nil).
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Metrics{
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bookshelf_ws_connections",
			Help: "Current number of open websocket connections",
		}),
		roomMemberships: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bookshelf_ws_room_memberships",
			Help: "Current number of connection-room memberships",
		}),
		eventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookshelf_ws_events_published_total",
				Help: "Events published to rooms, by event name",
			},
			[]string{"event"},
		),
		eventsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookshelf_ws_events_dropped_total",
				Help: "Events or deliveries dropped, by reason",
			},
			[]string{"reason"},
		),
		joinsDenied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookshelf_ws_joins_denied_total",
				Help: "Room joins rejected by the authorizer, by room kind",
			},
			[]string{"kind"},
		),
		notificationOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookshelf_notification_operations_total",
				Help: "Notification fan-out operations, by operation and status",
			},
			[]string{"op", "status"},
		),
		backplane: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookshelf_backplane_messages_total",
				Help: "Messages exchanged with the broadcast backplane, by direction",
			},
			[]string{"direction"},
		),
	}
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

// SetRoomMemberships records the total membership count after a change.
func (m *Metrics) SetRoomMemberships(n int) {
	if m == nil {
		return
	}
	m.roomMemberships.Set(float64(n))
}

func (m *Metrics) EventPublished(event string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(event).Inc()
}

func (m *Metrics) EventDropped(reason string) {
	if m == nil {
		return
	}
	m.eventsDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) JoinDenied(kind string) {
	if m == nil {
		return
	}
	m.joinsDenied.WithLabelValues(kind).Inc()
}

// NotificationOp counts one fan-out operation; err decides the status label.
func (m *Metrics) NotificationOp(op string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.notificationOps.WithLabelValues(op, status).Inc()
}

// Backplane counts messages; direction is "out" or "in".
func (m *Metrics) Backplane(direction string) {
	if m == nil {
		return
	}
	m.backplane.WithLabelValues(direction).Inc()
}
