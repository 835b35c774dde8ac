package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BookingMetrics exposes counters and histograms for the booking engine. A nil receiver is a no-op.
type BookingMetrics struct {
	bookings         *prometheus.CounterVec
	statusUpdates    *prometheus.CounterVec
	slotLatency      prometheus.Histogram
	sideEffectErrors *prometheus.CounterVec
	outboxPublished  prometheus.Counter
	settingsEvents   *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salonbook",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Booking attempts by result",
		}, []string{"result"}),
		statusUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salonbook",
			Subsystem: "booking",
			Name:      "status_updates_total",
			Help:      "Appointment status changes by target status and result",
		}, []string{"status", "result"}),
		slotLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "salonbook",
			Subsystem: "availability",
			Name:      "generate_seconds",
			Help:      "Latency of slot generation",
			Buckets:   prometheus.DefBuckets,
		}),
		sideEffectErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salonbook",
			Subsystem: "booking",
			Name:      "side_effect_failures_total",
			Help:      "Best-effort side effects that failed after commit",
		}, []string{"effect"}),
		outboxPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "salonbook",
			Subsystem: "outbox",
			Name:      "published_total",
			Help:      "Outbox events delivered to Kafka",
		}),
		settingsEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salonbook",
			Subsystem: "consumer",
			Name:      "settings_events_total",
			Help:      "Schedule settings change events by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookings, m.statusUpdates, m.slotLatency, m.sideEffectErrors, m.outboxPublished, m.settingsEvents)
	return m
}

func (m *BookingMetrics) ObserveBooking(result string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(result).Inc()
}

func (m *BookingMetrics) ObserveStatusUpdate(status, result string) {
	if m == nil {
		return
	}
	m.statusUpdates.WithLabelValues(status, result).Inc()
}

func (m *BookingMetrics) ObserveSlots(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.slotLatency.Observe(elapsed.Seconds())
}

func (m *BookingMetrics) ObserveSideEffectFailure(effect string) {
	if m == nil {
		return
	}
	m.sideEffectErrors.WithLabelValues(effect).Inc()
}

func (m *BookingMetrics) ObserveOutboxPublished(n int) {
	if m == nil {
		return
	}
	m.outboxPublished.Add(float64(n))
}

func (m *BookingMetrics) ObserveSettingsEvent(result string) {
	if m == nil {
		return
	}
	m.settingsEvents.WithLabelValues(result).Inc()
}
