// Package metrics Prometheus 指標
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dining-menu/internal/core/menu"
)

const namespace = "dining_menu"

// Metrics 服務指標集合，使用獨立 Registry
type Metrics struct {
	registry *prometheus.Registry

	SlotResults   *prometheus.CounterVec
	ItemsServed   *prometheus.CounterVec
	CacheRequests *prometheus.CounterVec
	DayDuration   prometheus.Histogram
	PlateCheckout prometheus.Counter
	HTTPRequests  *prometheus.CounterVec
}

// New 建立並註冊所有指標
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SlotResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_results_total",
			Help:      "Reconciled meal slots by slot and data source.",
		}, []string{"slot", "source"}),
		ItemsServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Normalized menu items per slot.",
		}, []string{"slot"}),
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Day menu cache lookups by result.",
		}, []string{"result"}),
		DayDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "day_fetch_duration_seconds",
			Help:      "Time to fetch and reconcile every slot of a day.",
			Buckets:   prometheus.DefBuckets,
		}),
		PlateCheckout: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plate_checkouts_total",
			Help:      "Plates checked out into meal logs.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "method", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SlotResults,
		m.ItemsServed,
		m.CacheRequests,
		m.DayDuration,
		m.PlateCheckout,
		m.HTTPRequests,
	)
	return m
}

// ObserveDay 記錄一天的整合結果
func (m *Metrics) ObserveDay(sections []menu.MenuMealSection, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DayDuration.Observe(elapsed.Seconds())
	for _, s := range sections {
		m.SlotResults.WithLabelValues(string(s.Type), s.Source.String()).Inc()
		m.ItemsServed.WithLabelValues(string(s.Type)).Add(float64(menu.CountItems(s.Locations)))
	}
}

// ObserveCache 記錄快取命中與否
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequests.WithLabelValues(result).Inc()
}

// ObserveCheckout 記錄一次結帳
func (m *Metrics) ObserveCheckout() {
	if m == nil {
		return
	}
	m.PlateCheckout.Inc()
}

// Registry 回傳底層 Registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler /metrics 端點
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
