package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// QuoteMetrics instruments quote assembly and price resolution.
type QuoteMetrics struct {
	duration   *prometheus.HistogramVec
	orders     *prometheus.CounterVec
	unresolved *prometheus.CounterVec
	fallbacks  *prometheus.CounterVec
	stale      prometheus.Gauge
}

// NewQuoteMetrics registers quote metrics. A nil registerer yields a no-op value.
func NewQuoteMetrics(reg prometheus.Registerer) *QuoteMetrics {
	if reg == nil {
		return &QuoteMetrics{}
	}
	m := &QuoteMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "quotes",
			Name:      "operation_duration_seconds",
			Help:      "Duration of quote operations in seconds.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"operation", "outcome"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quotes",
			Name:      "orders_quoted_total",
			Help:      "Sell orders quoted, by pricing mode.",
		}, []string{"pricing_mode"}),
		unresolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quotes",
			Name:      "price_unresolved_total",
			Help:      "Dynamic price lookups that produced no price.",
		}, []string{"price_list"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quotes",
			Name:      "price_fallback_total",
			Help:      "Prices resolved at a price list's default location.",
		}, []string{"price_list"}),
		stale: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "stale_sell_orders",
			Help:      "Active sell orders whose inventory sync is missing or older than the staleness window.",
		}),
	}
	reg.MustRegister(m.duration, m.orders, m.unresolved, m.fallbacks, m.stale)
	return m
}

// Observe records one operation's duration, labelled ok or error.
func (m *QuoteMetrics) Observe(operation string, started time.Time, err error) {
	if m == nil || m.duration == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.duration.WithLabelValues(normalizeLabel(operation), outcome).Observe(time.Since(started).Seconds())
}

func (m *QuoteMetrics) IncOrders(pricingMode string) {
	if m == nil || m.orders == nil {
		return
	}
	m.orders.WithLabelValues(normalizeLabel(pricingMode)).Inc()
}

func (m *QuoteMetrics) IncUnresolved(priceList string) {
	if m == nil || m.unresolved == nil {
		return
	}
	m.unresolved.WithLabelValues(normalizeLabel(priceList)).Inc()
}

func (m *QuoteMetrics) IncFallback(priceList string) {
	if m == nil || m.fallbacks == nil {
		return
	}
	m.fallbacks.WithLabelValues(normalizeLabel(priceList)).Inc()
}

// SetStaleOrders publishes the latest staleness report count.
func (m *QuoteMetrics) SetStaleOrders(count int) {
	if m == nil || m.stale == nil {
		return
	}
	m.stale.Set(float64(count))
}
