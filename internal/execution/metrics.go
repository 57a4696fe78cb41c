package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TradesAttemptedTotal tracks execution attempts started.
	TradesAttemptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "solana_arb_trades_attempted_total",
		Help: "Total trade executions started",
	})

	// TradesSucceededTotal tracks trades that settled at a profit.
	TradesSucceededTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "solana_arb_trades_succeeded_total",
		Help: "Total trades settled with positive realized profit",
	})

	// TradesFailedTotal tracks failed trades by error kind.
	TradesFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solana_arb_trades_failed_total",
			Help: "Total failed trade executions by error kind",
		},
		[]string{"kind"},
	)

	// ExecutionDurationSeconds tracks end-to-end execution latency.
	ExecutionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "solana_arb_execution_duration_seconds",
		Help:    "Duration of a full two-leg trade execution",
		Buckets: prometheus.DefBuckets,
	})

	// TradeSizeUSD tracks committed position sizes.
	TradeSizeUSD = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "solana_arb_trade_size_usd",
		Help:    "Quote-asset amount committed to the buy leg",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 5000},
	})

	// SlippageObservedPct tracks observed pre-trade slippage per leg.
	SlippageObservedPct = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solana_arb_slippage_observed_pct",
			Help:    "Observed pre-trade slippage against the spot-implied expectation, in percent",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"leg"},
	)

	// RealizedProfitUSD tracks per-trade realized profit on successes.
	RealizedProfitUSD = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "solana_arb_realized_profit_usd",
		Help:    "Realized profit per successful trade in quote-asset units",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50},
	})
)
