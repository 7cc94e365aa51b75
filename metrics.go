package lit

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects engine counters on a private Prometheus registry so that
// embedding processes can expose them without colliding with the default
// registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ordersPlaced    prometheus.Counter
	ordersCancelled prometheus.Counter
	ordersAmended   prometheus.Counter
	ordersRejected  *prometheus.CounterVec
	tradesExecuted  prometheus.Counter
	volumeTraded    prometheus.Counter
	engineFaults    prometheus.Counter
	restingOrders   *prometheus.GaugeVec
}

// NewMetrics creates a Metrics instance under the given namespace.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Total number of orders accepted into the book",
		}),
		ordersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_cancelled_total",
			Help:      "Total number of orders cancelled",
		}),
		ordersAmended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_amended_total",
			Help:      "Total number of orders amended",
		}),
		ordersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_rejected_total",
			Help:      "Total number of rejected order entry commands",
		}, []string{"reason"}),
		tradesExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_executed_total",
			Help:      "Total number of trades derived by the matching loop",
		}),
		volumeTraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "volume_traded_total",
			Help:      "Total quantity traded",
		}),
		engineFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_faults_total",
			Help:      "Total internal invariant faults that halted matching",
		}),
		restingOrders: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resting_orders",
			Help:      "Current number of resting orders by side",
		}, []string{"side"}),
	}

	registry.MustRegister(
		m.ordersPlaced,
		m.ordersCancelled,
		m.ordersAmended,
		m.ordersRejected,
		m.tradesExecuted,
		m.volumeTraded,
		m.engineFaults,
		m.restingOrders,
	)

	return m
}

// Handler returns an HTTP handler serving this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) orderPlaced() {
	if m == nil {
		return
	}
	m.ordersPlaced.Inc()
}

func (m *Metrics) orderCancelled() {
	if m == nil {
		return
	}
	m.ordersCancelled.Inc()
}

func (m *Metrics) orderAmended() {
	if m == nil {
		return
	}
	m.ordersAmended.Inc()
}

func (m *Metrics) orderRejected(reason string) {
	if m == nil {
		return
	}
	m.ordersRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) tradeExecuted(quantity uint64) {
	if m == nil {
		return
	}
	m.tradesExecuted.Inc()
	m.volumeTraded.Add(float64(quantity))
}

func (m *Metrics) engineFault() {
	if m == nil {
		return
	}
	m.engineFaults.Inc()
}

func (m *Metrics) setResting(side Side, count int64) {
	if m == nil {
		return
	}
	m.restingOrders.WithLabelValues(side.String()).Set(float64(count))
}
