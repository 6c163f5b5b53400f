package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCheckoutMetricsExportsCountersAndHistograms(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCheckoutMetrics(reg)

	metrics.IncPromo("applied")
	metrics.IncPromo("INVALID_OR_EXPIRED_CODE")
	metrics.IncPromo("")
	metrics.ObserveSubmit("log", 20*time.Millisecond, 526, nil)
	metrics.ObserveSubmit("log", 10*time.Millisecond, 0, errors.New("publish failed"))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	for _, tc := range []struct {
		name, label, value string
	}{
		{"checkout_promo_attempts_total", "outcome", "applied"},
		{"checkout_promo_attempts_total", "outcome", "INVALID_OR_EXPIRED_CODE"},
		{"checkout_promo_attempts_total", "outcome", "unknown"},
		{"checkout_submissions_total", "result", "success"},
		{"checkout_submissions_total", "result", "failure"},
	} {
		got, err := fetchCounterValue(mfs, tc.name, tc.label, tc.value)
		if err != nil {
			t.Fatalf("fetch %s: %v", tc.name, err)
		}
		if got != 1 {
			t.Fatalf("expected %s{%s=%s}=1, got %f", tc.name, tc.label, tc.value, got)
		}
	}

	if got, err := fetchHistogramSum(mfs, "checkout_submit_duration_seconds", "submitter", "log"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	total := findMetricFamily(mfs, "checkout_order_total")
	if total == nil || len(total.GetMetric()) != 1 {
		t.Fatalf("expected order total histogram")
	}
	if sum := total.GetMetric()[0].GetHistogram().GetSampleSum(); sum != 526 {
		t.Fatalf("expected order total sum 526, got %f", sum)
	}
}

func TestCheckoutMetricsNilSafe(t *testing.T) {
	var nilMetrics *CheckoutMetrics
	nilMetrics.IncPromo("applied")
	nilMetrics.ObserveSubmit("log", time.Second, 10, nil)

	noop := NewCheckoutMetrics(nil)
	noop.IncPromo("applied")
	noop.ObserveSubmit("log", time.Second, 10, nil)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
