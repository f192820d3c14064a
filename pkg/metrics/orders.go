package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Callback outcomes recorded by OrderMetrics.
const (
	CallbackConfirmed = "confirmed"
	CallbackFailed    = "failed"
	CallbackRejected  = "rejected"
	CallbackStale     = "stale"
	CallbackDuplicate = "duplicate"
)

// OrderMetrics counts order lifecycle activity.
type OrderMetrics struct {
	created      *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	callbacks    *prometheus.CounterVec
	reservations *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics on the provided registerer. A nil
// registerer yields a no-op recorder.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created with their stock reserved.",
	}, []string{"lines"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order status transitions by target status.",
	}, []string{"status"})
	callbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_callbacks_total",
		Help: "Gateway callbacks by outcome.",
	}, []string{"outcome"})
	reservations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_failures_total",
		Help: "Rejected inventory reservations by reason.",
	}, []string{"reason"})
	reg.MustRegister(created, transitions, callbacks, reservations)
	return &OrderMetrics{
		created:      created,
		transitions:  transitions,
		callbacks:    callbacks,
		reservations: reservations,
	}
}

// IncCreated counts a committed order. Line counts above five share a bucket
// to keep cardinality flat.
func (m *OrderMetrics) IncCreated(lines int) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(lineBucket(lines)).Inc()
}

func (m *OrderMetrics) IncTransition(status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status)).Inc()
}

func (m *OrderMetrics) IncCallback(outcome string) {
	if m == nil || m.callbacks == nil {
		return
	}
	m.callbacks.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *OrderMetrics) IncReservationFailure(reason string) {
	if m == nil || m.reservations == nil {
		return
	}
	m.reservations.WithLabelValues(normalizeLabel(reason)).Inc()
}

func lineBucket(lines int) string {
	switch {
	case lines <= 0:
		return "0"
	case lines == 1:
		return "1"
	case lines <= 5:
		return "2-5"
	default:
		return "6+"
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
