package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestNewSaleMetricsWithRegisterer(t *testing.T) {
	metrics := newSaleMetricsWithRegisterer(prometheus.NewRegistry())

	if metrics.salesCompleted == nil {
		t.Error("salesCompleted counter should not be nil")
	}
	if metrics.salesCancelled == nil {
		t.Error("salesCancelled counter should not be nil")
	}
	if metrics.salesFailed == nil {
		t.Error("salesFailed counter should not be nil")
	}
	if metrics.saleAmount == nil {
		t.Error("saleAmount histogram should not be nil")
	}
	if metrics.saleDuration == nil {
		t.Error("saleDuration histogram should not be nil")
	}
	if metrics.messagesPublished == nil {
		t.Error("messagesPublished counter vec should not be nil")
	}
}

func TestSaleMetrics_DoubleRegistrationReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := newSaleMetricsWithRegisterer(reg)
	second := newSaleMetricsWithRegisterer(reg)

	first.RecordSaleCompleted(10)
	second.RecordSaleCompleted(20)

	if got := counterValue(t, first.salesCompleted); got != 2 {
		t.Errorf("expected shared counter value 2, got %v", got)
	}
}

func TestSaleMetrics_Record(t *testing.T) {
	metrics := newSaleMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordSaleCompleted(12.5)
	metrics.RecordSaleCancelled()
	metrics.RecordSaleFailed()
	metrics.RecordSaleDuration(50 * time.Millisecond)
	metrics.RecordMessagePublished("pos.stock.updates")
	metrics.RecordMessagePublished("pos.stock.updates")

	if got := counterValue(t, metrics.salesCompleted); got != 1 {
		t.Errorf("salesCompleted = %v, want 1", got)
	}
	if got := counterValue(t, metrics.salesCancelled); got != 1 {
		t.Errorf("salesCancelled = %v, want 1", got)
	}
	if got := counterValue(t, metrics.salesFailed); got != 1 {
		t.Errorf("salesFailed = %v, want 1", got)
	}
	if got := counterValue(t, metrics.messagesPublished.WithLabelValues("pos.stock.updates")); got != 2 {
		t.Errorf("messagesPublished = %v, want 2", got)
	}
}
