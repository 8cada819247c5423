// Package monitoring exposes the relay's Prometheus collectors.
package monitoring

import "github.com/prometheus/client_golang/prometheus"

// Denial reasons for join attempts, used as metric label values.
const (
	DenialRoomFull        = "room-full"
	DenialMissingPassword = "join-with-password"
	DenialInvalidPassword = "invalid-password"
	DenialMaxTriesOver    = "password-max-tries-over"
	DenialNotFound        = "user-not-found"
)

// Metrics groups the relay collectors. A nil *Metrics is valid and
// records nothing, so wiring stays optional in tests.
type Metrics struct {
	activeConnections prometheus.Gauge
	inboundEvents     *prometheus.CounterVec
	relayedMessages   prometheus.Counter
	joinDenials       *prometheus.CounterVec
}

func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		activeConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_connections",
				Help:      "Number of live signaling connections",
			},
		),
		inboundEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "inbound_events_total",
				Help:      "Inbound named events by event name",
			},
			[]string{"event"},
		),
		relayedMessages: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "relayed_messages_total",
				Help:      "Application messages forwarded between peers",
			},
		),
		joinDenials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "join_denials_total",
				Help:      "Room join attempts denied, by reason",
			},
			[]string{"reason"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.activeConnections, m.inboundEvents, m.relayedMessages, m.joinDenials)
	}
	return m
}

func (m *Metrics) ConnOpened() {
	if m == nil {
		return
	}
	m.activeConnections.Inc()
}

func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	m.activeConnections.Dec()
}

func (m *Metrics) Event(name string) {
	if m == nil {
		return
	}
	m.inboundEvents.WithLabelValues(name).Inc()
}

func (m *Metrics) Relayed() {
	if m == nil {
		return
	}
	m.relayedMessages.Inc()
}

func (m *Metrics) JoinDenied(reason string) {
	if m == nil {
		return
	}
	m.joinDenials.WithLabelValues(reason).Inc()
}
