package metrics

import (
	"time"

	"github.com/elys-network/wpool/internal/types"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all the Prometheus metrics for the accountant.
type Metrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	poolsDeployed     prometheus.Gauge
	bptSupply         *prometheus.GaugeVec
	aumFeesMinted     *prometheus.CounterVec
	breakerTrips      *prometheus.CounterVec
}

// NewMetrics creates and registers the metrics for the accountant.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wpool_operations_total",
			Help: "Total number of pool operations, labeled by operation and result.",
		}, []string{"operation", "result"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wpool_operation_duration_seconds",
			Help:    "Time taken to price, settle and commit a pool operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		poolsDeployed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wpool_pools_deployed",
			Help: "Number of pools registered with the accountant.",
		}),
		bptSupply: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "wpool_bpt_total_supply",
			Help: "Total BPT supply of a pool in whole units.",
		}, []string{"pool_id"}),
		aumFeesMinted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wpool_aum_fee_collections_total",
			Help: "Number of management fee collections that minted BPT.",
		}, []string{"pool_id"}),
		breakerTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wpool_circuit_breaker_trips_total",
			Help: "Operations rejected by a circuit breaker.",
		}, []string{"pool_id"}),
	}
	reg.MustRegister(m.operationsTotal, m.operationDuration, m.poolsDeployed, m.bptSupply, m.aumFeesMinted, m.breakerTrips)
	return m
}

// ObserveOperation records the outcome and latency of one operation. A nil Metrics is a no-op.
func (m *Metrics) ObserveOperation(op types.OperationType, started time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.operationsTotal.WithLabelValues(string(op), result).Inc()
	m.operationDuration.WithLabelValues(string(op)).Observe(time.Since(started).Seconds())
}

func (m *Metrics) SetPoolsDeployed(n int) {
	if m == nil {
		return
	}
	m.poolsDeployed.Set(float64(n))
}

// SetBptSupply exports a pool's supply. The float conversion loses precision past 2^53 wei,
// which is acceptable for a dashboard.
func (m *Metrics) SetBptSupply(id string, supply float64) {
	if m == nil {
		return
	}
	m.bptSupply.WithLabelValues(id).Set(supply)
}

func (m *Metrics) IncAumCollection(id string) {
	if m == nil {
		return
	}
	m.aumFeesMinted.WithLabelValues(id).Inc()
}

func (m *Metrics) IncBreakerTrip(id string) {
	if m == nil {
		return
	}
	m.breakerTrips.WithLabelValues(id).Inc()
}
