package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RPCBuckets covers one ledger round trip: sub-second for reads, up to the
// tens-of-seconds wait modes for executed transactions.
var RPCBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Metrics holds the process's prometheus collectors. A nil *Metrics is a
// valid no-op receiver so library code never has to check.
type Metrics struct {
	registry *prometheus.Registry

	RPCCalls     *prometheus.CounterVec   // ledger JSON-RPC calls by method and outcome
	RPCDuration  *prometheus.HistogramVec // ledger JSON-RPC round-trip seconds by method
	Transactions *prometheus.CounterVec   // executed transactions by kind and status
	BattleOps    *prometheus.CounterVec   // battle lifecycle operations by op and outcome
	MarketCalls  *prometheus.CounterVec   // market data upstream calls by provider and outcome
}

// New creates a collector set on its own registry.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		RPCCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_calls_total",
			Help:      "Ledger JSON-RPC calls by method and outcome.",
		}, []string{"method", "outcome"}),
		RPCDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "Ledger JSON-RPC round-trip duration.",
			Buckets:   RPCBuckets,
		}, []string{"method"}),
		Transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Executed ledger transactions by kind and status.",
		}, []string{"kind", "status"}),
		BattleOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "battle_operations_total",
			Help:      "Battle lifecycle operations by op and outcome.",
		}, []string{"op", "outcome"}),
		MarketCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "market_calls_total",
			Help:      "Market data upstream calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
	}
}

// Handler exposes the registry for a /metrics route.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRPC records one ledger round trip.
func (m *Metrics) ObserveRPC(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RPCCalls.WithLabelValues(method, outcome).Inc()
	m.RPCDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// CountTransaction records one executed transaction.
func (m *Metrics) CountTransaction(kind, status string) {
	if m == nil {
		return
	}
	m.Transactions.WithLabelValues(kind, status).Inc()
}

// CountBattleOp records one battle lifecycle operation.
func (m *Metrics) CountBattleOp(op, outcome string) {
	if m == nil {
		return
	}
	m.BattleOps.WithLabelValues(op, outcome).Inc()
}

// CountMarketCall records one market data upstream call.
func (m *Metrics) CountMarketCall(provider, outcome string) {
	if m == nil {
		return
	}
	m.MarketCalls.WithLabelValues(provider, outcome).Inc()
}
