package trade

import (
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"

	. "github.com/meverselabs/stableswap/contract/exchange/util"
)

// Metrics is optional; a nil *Metrics records nothing.
type Metrics struct {
	operations    *prometheus.CounterVec
	failures      *prometheus.CounterVec
	volume        prometheus.Counter
	amplification prometheus.Gauge
	virtualPrice  prometheus.Gauge
}

// NewMetrics registers the pool collectors on reg. Several pools can share
// a registry as long as their names differ.
func NewMetrics(reg prometheus.Registerer, pool string) *Metrics {
	labels := prometheus.Labels{"pool": pool}
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "stableswap_operations_total",
			Help:        "Committed pool operations.",
			ConstLabels: labels,
		}, []string{"op"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "stableswap_operation_failures_total",
			Help:        "Aborted pool operations by error kind.",
			ConstLabels: labels,
		}, []string{"op", "kind"}),
		volume: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "stableswap_swap_volume_total",
			Help:        "Cumulative swap input volume in normalized units.",
			ConstLabels: labels,
		}),
		amplification: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "stableswap_amplification",
			Help:        "Effective amplification coefficient after the last operation.",
			ConstLabels: labels,
		}),
		virtualPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "stableswap_virtual_price",
			Help:        "LP token virtual price after the last liquidity change.",
			ConstLabels: labels,
		}),
	}
	reg.MustRegister(m.operations, m.failures, m.volume, m.amplification, m.virtualPrice)
	return m
}

func (m *Metrics) committed(op string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op).Inc()
}
func (m *Metrics) aborted(op string, err error) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(op, KindOf(err).String()).Inc()
}
func (m *Metrics) swapped(normalized *uint256.Int) {
	if m == nil {
		return
	}
	m.volume.Add(ToFloat64(normalized, 18))
}
func (m *Metrics) setA(amp *uint256.Int) {
	if m == nil {
		return
	}
	m.amplification.Set(ToFloat64(amp, 0))
}
func (m *Metrics) setVirtualPrice(price *uint256.Int) {
	if m == nil || price == nil {
		return
	}
	m.virtualPrice.Set(ToFloat64(price, 18))
}
