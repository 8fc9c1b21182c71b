package metrics

import "github.com/prometheus/client_golang/prometheus"

// Callback results recorded by PaymentCallback.
const (
	CallbackApplied   = "applied"
	CallbackDuplicate = "duplicate"
	CallbackIgnored   = "ignored"
	CallbackConflict  = "conflict"
)

// Transition outcomes recorded by Transition.
const (
	TransitionApplied  = "applied"
	TransitionNoop     = "noop"
	TransitionRejected = "rejected"
)

// FulfillmentMetrics tracks order state transitions, gateway callbacks and
// notification delivery.
type FulfillmentMetrics struct {
	transitions           *prometheus.CounterVec
	callbacks             *prometheus.CounterVec
	notificationsDropped  prometheus.Counter
	notificationsFailed   prometheus.Counter
	notificationsEnqueued prometheus.Counter
}

// NewFulfillmentMetrics registers the fulfillment metrics on reg. A nil
// registerer yields a recorder that discards everything.
func NewFulfillmentMetrics(reg prometheus.Registerer) *FulfillmentMetrics {
	if reg == nil {
		return &FulfillmentMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order state transitions by operation and outcome.",
	}, []string{"operation", "outcome"})
	callbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_callbacks_total",
		Help: "Payment gateway callbacks by parsed outcome and handling result.",
	}, []string{"outcome", "result"})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_dropped_total",
		Help: "Notifications dropped because the dispatch queue was full.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_failed_total",
		Help: "Notifications the dispatcher could not hand to the deliverer.",
	})
	enqueued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_enqueued_total",
		Help: "Notifications accepted by the dispatch queue.",
	})
	reg.MustRegister(transitions, callbacks, dropped, failed, enqueued)
	return &FulfillmentMetrics{
		transitions:           transitions,
		callbacks:             callbacks,
		notificationsDropped:  dropped,
		notificationsFailed:   failed,
		notificationsEnqueued: enqueued,
	}
}

// Transition counts one operation result, e.g. ("cancel", "noop").
func (m *FulfillmentMetrics) Transition(operation, outcome string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

// PaymentCallback counts one gateway callback.
func (m *FulfillmentMetrics) PaymentCallback(outcome, result string) {
	if m == nil || m.callbacks == nil {
		return
	}
	m.callbacks.WithLabelValues(normalizeLabel(outcome), normalizeLabel(result)).Inc()
}

func (m *FulfillmentMetrics) NotificationDropped() {
	if m == nil || m.notificationsDropped == nil {
		return
	}
	m.notificationsDropped.Inc()
}

func (m *FulfillmentMetrics) NotificationFailed() {
	if m == nil || m.notificationsFailed == nil {
		return
	}
	m.notificationsFailed.Inc()
}

func (m *FulfillmentMetrics) NotificationEnqueued() {
	if m == nil || m.notificationsEnqueued == nil {
		return
	}
	m.notificationsEnqueued.Inc()
}
