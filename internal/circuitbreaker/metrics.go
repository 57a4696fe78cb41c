package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CircuitBreakerEnabled indicates whether the breaker allows trade execution.
	CircuitBreakerEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "solana_arb_circuit_breaker_enabled",
		Help: "Whether circuit breaker allows trade execution (1=enabled, 0=disabled)",
	})

	// CircuitBreakerBalance tracks the last checked quote-asset balance.
	CircuitBreakerBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "solana_arb_circuit_breaker_balance",
		Help: "Last checked quote-asset balance in the wallet",
	})

	// CircuitBreakerDisableThreshold tracks the current threshold for disabling execution.
	CircuitBreakerDisableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "solana_arb_circuit_breaker_disable_threshold",
		Help: "Current balance threshold for disabling execution (dynamically calculated)",
	})

	// CircuitBreakerEnableThreshold tracks the current threshold for re-enabling execution.
	CircuitBreakerEnableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "solana_arb_circuit_breaker_enable_threshold",
		Help: "Current balance threshold for re-enabling execution (with hysteresis)",
	})

	// CircuitBreakerAvgTradeSize tracks the rolling average trade size.
	CircuitBreakerAvgTradeSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "solana_arb_circuit_breaker_avg_trade_size",
		Help: "Rolling average trade size from recent trades (used for threshold calculation)",
	})

	// CircuitBreakerStateChanges tracks how often the breaker changed state.
	CircuitBreakerStateChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "solana_arb_circuit_breaker_state_changes_total",
		Help: "Total number of times circuit breaker changed state (enabled/disabled)",
	})

	// CircuitBreakerCheckDuration tracks the time taken to check balance.
	CircuitBreakerCheckDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "solana_arb_circuit_breaker_check_duration_seconds",
		Help:    "Time taken to check wallet balance",
		Buckets: prometheus.DefBuckets,
	})
)
