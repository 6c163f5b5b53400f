package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records promo and submission outcomes.
type CheckoutMetrics struct {
	promo          *prometheus.CounterVec
	submitDuration *prometheus.HistogramVec
	submitted      *prometheus.CounterVec
	orderTotal     prometheus.Histogram
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	promo := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_promo_attempts_total",
		Help: "Promo code apply attempts by outcome.",
	}, []string{"outcome"})
	submitDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_submit_duration_seconds",
		Help:    "Duration of checkout submissions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"submitter"})
	submitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_submissions_total",
		Help: "Checkout submissions by result.",
	}, []string{"result"})
	orderTotal := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_order_total",
		Help:    "Order totals handed to the submitter, in whole currency units.",
		Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000},
	})
	reg.MustRegister(promo, submitDuration, submitted, orderTotal)
	return &CheckoutMetrics{
		promo:          promo,
		submitDuration: submitDuration,
		submitted:      submitted,
		orderTotal:     orderTotal,
	}
}

// IncPromo counts one apply attempt. Outcome is "applied" or a rejection reason.
func (c *CheckoutMetrics) IncPromo(outcome string) {
	if c == nil || c.promo == nil {
		return
	}
	c.promo.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveSubmit records a submission attempt and, on success, its total.
func (c *CheckoutMetrics) ObserveSubmit(submitter string, duration time.Duration, total int64, err error) {
	if c == nil || c.submitted == nil {
		return
	}
	c.submitDuration.WithLabelValues(normalizeLabel(submitter)).Observe(duration.Seconds())
	if err != nil {
		c.submitted.WithLabelValues("failure").Inc()
		return
	}
	c.submitted.WithLabelValues("success").Inc()
	c.orderTotal.Observe(float64(total))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
