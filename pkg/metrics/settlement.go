package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records checkout and payment reconciliation outcomes.
type SettlementMetrics struct {
	checkoutDuration *prometheus.HistogramVec
	checkoutOrders   *prometheus.CounterVec
	notifications    *prometheus.CounterVec
	refunds          *prometheus.CounterVec
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	checkoutDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout order creation in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"payment_method"})
	checkoutOrders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_orders_total",
		Help: "Orders created at checkout by payment method and outcome.",
	}, []string{"payment_method", "outcome"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_notifications_total",
		Help: "Payment gateway notifications by response code.",
	}, []string{"rsp_code"})
	refunds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refund_resolutions_total",
		Help: "Refund requests resolved by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(checkoutDuration, checkoutOrders, notifications, refunds)
	return &SettlementMetrics{
		checkoutDuration: checkoutDuration,
		checkoutOrders:   checkoutOrders,
		notifications:    notifications,
		refunds:          refunds,
	}
}

// ObserveCheckout records the duration of one checkout call.
func (s *SettlementMetrics) ObserveCheckout(method string, duration time.Duration) {
	if s == nil || s.checkoutDuration == nil {
		return
	}
	s.checkoutDuration.WithLabelValues(normalizeLabel(method)).Observe(duration.Seconds())
}

// IncCheckoutOrders counts orders produced by a checkout call.
func (s *SettlementMetrics) IncCheckoutOrders(method, outcome string, count int) {
	if s == nil || s.checkoutOrders == nil {
		return
	}
	s.checkoutOrders.WithLabelValues(normalizeLabel(method), normalizeLabel(outcome)).Add(float64(count))
}

// IncNotification counts one gateway notification by the response code returned.
func (s *SettlementMetrics) IncNotification(rspCode string) {
	if s == nil || s.notifications == nil {
		return
	}
	s.notifications.WithLabelValues(normalizeLabel(rspCode)).Inc()
}

// IncRefundResolution counts one refund resolution.
func (s *SettlementMetrics) IncRefundResolution(outcome string) {
	if s == nil || s.refunds == nil {
		return
	}
	s.refunds.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
