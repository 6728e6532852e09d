// Package metrics содержит Prometheus-метрики сервиса продаж.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SaleMetrics содержит метрики оформления и отмены продаж.
type SaleMetrics struct {
	salesCompleted prometheus.Counter
	salesCancelled prometheus.Counter
	salesFailed    prometheus.Counter

	saleAmount   prometheus.Histogram
	saleDuration prometheus.Histogram

	messagesPublished *prometheus.CounterVec
}

// NewSaleMetrics создаёт новый экземпляр метрик продаж.
func NewSaleMetrics() *SaleMetrics {
	return newSaleMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newSaleMetricsWithRegisterer(registerer prometheus.Registerer) *SaleMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &SaleMetrics{
		salesCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_sales_completed_total",
			Help: "Total number of sales completed successfully",
		}),
		salesCancelled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_sales_cancelled_total",
			Help: "Total number of sales cancelled",
		}),
		salesFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_sales_failed_total",
			Help: "Total number of sale completions rejected or failed",
		}),
		saleAmount: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "pos_sale_amount",
			Help:    "Distribution of amounts paid per sale",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		saleDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "pos_sale_duration_seconds",
			Help:    "Duration of sale completion in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		messagesPublished: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "pos_sale_messages_published_total",
			Help: "Total number of messages published during sale processing",
		}, []string{"topic"}),
	}
}

// RecordSaleCompleted фиксирует успешное оформление продажи.
func (m *SaleMetrics) RecordSaleCompleted(amount float64) {
	m.salesCompleted.Inc()
	m.saleAmount.Observe(amount)
}

// RecordSaleCancelled фиксирует отмену продажи.
func (m *SaleMetrics) RecordSaleCancelled() {
	m.salesCancelled.Inc()
}

// RecordSaleFailed фиксирует отклонённое или сорвавшееся оформление.
func (m *SaleMetrics) RecordSaleFailed() {
	m.salesFailed.Inc()
}

// RecordSaleDuration фиксирует длительность оформления.
func (m *SaleMetrics) RecordSaleDuration(d time.Duration) {
	m.saleDuration.Observe(d.Seconds())
}

// RecordMessagePublished фиксирует публикацию сообщения в топик.
func (m *SaleMetrics) RecordMessagePublished(topic string) {
	m.messagesPublished.WithLabelValues(topic).Inc()
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}
