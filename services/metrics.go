package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the reservation counters. A nil *Metrics records nothing.
type Metrics struct {
	holdsCreated       prometheus.Counter
	lazyExpirations    prometheus.Counter
	sweptHolds         prometheus.Counter
	paymentEvents      *prometheus.CounterVec
	ordersMaterialized *prometheus.CounterVec
	cancellations      *prometheus.CounterVec
	checkIns           prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		holdsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "reservation_holds_created_total",
			Help: "Tentative holds created.",
		}),
		lazyExpirations: f.NewCounter(prometheus.CounterOpts{
			Name: "reservation_holds_lazily_expired_total",
			Help: "Holds reported as expired at read time before being rewritten.",
		}),
		sweptHolds: f.NewCounter(prometheus.CounterOpts{
			Name: "reservation_holds_swept_total",
			Help: "Expired holds rewritten by the sweeper.",
		}),
		paymentEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reservation_payment_events_total",
			Help: "Payment events processed, by disposition.",
		}, []string{"disposition"}),
		ordersMaterialized: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reservation_orders_materialized_total",
			Help: "Materialize calls, by whether a new order was created.",
		}, []string{"result"}),
		cancellations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reservation_cancellations_total",
			Help: "Cancellation attempts, by result code.",
		}, []string{"result"}),
		checkIns: f.NewCounter(prometheus.CounterOpts{
			Name: "reservation_checkins_total",
			Help: "Guests checked in.",
		}),
	}
}

func (m *Metrics) holdCreated() {
	if m != nil {
		m.holdsCreated.Inc()
	}
}

func (m *Metrics) lazyExpired() {
	if m != nil {
		m.lazyExpirations.Inc()
	}
}

func (m *Metrics) swept(n int64) {
	if m != nil && n > 0 {
		m.sweptHolds.Add(float64(n))
	}
}

func (m *Metrics) paymentEvent(d Disposition) {
	if m != nil {
		m.paymentEvents.WithLabelValues(string(d)).Inc()
	}
}

func (m *Metrics) orderMaterialized(created bool) {
	if m == nil {
		return
	}
	result := "existing"
	if created {
		result = "created"
	}
	m.ordersMaterialized.WithLabelValues(result).Inc()
}

func (m *Metrics) cancellation(result string) {
	if m != nil {
		m.cancellations.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) checkedIn() {
	if m != nil {
		m.checkIns.Inc()
	}
}
