package metrics

import "github.com/prometheus/client_golang/prometheus"

// OrdersProcessed counts admitted orders by side.
var OrdersProcessed = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "xchain_orders_processed_total",
		Help: "Total number of orders admitted to the matching engine",
	},
	[]string{"side", "symbol"},
)

// OrderLatency records the matching loop's admission-to-return latency.
var OrderLatency = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "xchain_order_processing_latency_seconds",
		Help:    "Latency in seconds to match a single admitted order",
		Buckets: prometheus.DefBuckets,
	},
)

// TradesExecuted counts trades emitted by the matching engine.
var TradesExecuted = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "xchain_trades_executed_total",
		Help: "Total number of trades produced by the matching engine",
	},
	[]string{"symbol"},
)

// SettlementOutcomes counts settlement records by terminal status.
var SettlementOutcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "xchain_settlement_outcomes_total",
		Help: "Settlement records by terminal status",
	},
	[]string{"status"},
)

// ChainRPCLatency records chain client call latency per chain and method.
var ChainRPCLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "xchain_chain_rpc_latency_seconds",
		Help:    "Latency in seconds of chain client RPC calls",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"chain", "method"},
)

func init() {
	prometheus.MustRegister(OrdersProcessed, OrderLatency, TradesExecuted, SettlementOutcomes, ChainRPCLatency)
}
