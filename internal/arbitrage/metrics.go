package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SamplesIngestedTotal tracks price samples accepted into history.
	SamplesIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solana_arb_samples_ingested_total",
			Help: "Total price samples accepted into price history",
		},
		[]string{"venue"},
	)

	// SamplesRejectedTotal tracks samples rejected at ingestion.
	SamplesRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "solana_arb_samples_rejected_total",
		Help: "Total price samples rejected at ingestion (non-positive price or malformed)",
	})

	// OpportunitiesDetectedTotal tracks arbitrage opportunities returned.
	OpportunitiesDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "solana_arb_opportunities_detected_total",
		Help: "Total arbitrage opportunities returned by detection",
	})

	// OpportunitiesRejectedTotal tracks rejected candidates by reason.
	OpportunitiesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solana_arb_opportunities_rejected_total",
			Help: "Total arbitrage candidates rejected during detection",
		},
		[]string{"reason"},
	)

	// DetectionDurationSeconds tracks detection scan latency.
	DetectionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "solana_arb_detection_duration_seconds",
		Help:    "Duration of a full detection scan",
		Buckets: prometheus.DefBuckets,
	})

	// NetProfitBPS tracks net profit of detected opportunities in basis points.
	NetProfitBPS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "solana_arb_net_profit_bps",
		Help:    "Net profit of detected opportunities after estimated costs, in basis points",
		Buckets: []float64{5, 10, 25, 50, 100, 200, 500, 1000, 2000},
	})

	// TradesRecordedTotal tracks settled trades fed back into the strategy.
	TradesRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solana_arb_trades_recorded_total",
			Help: "Total settled trades recorded by the strategy",
		},
		[]string{"result"},
	)

	// RealizedProfitTotal accumulates realized profit in quote-asset units.
	RealizedProfitTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "solana_arb_realized_profit_total",
		Help: "Cumulative realized profit from successful trades",
	})

	// MinProfitThresholdPct exposes the current adaptive profit threshold.
	MinProfitThresholdPct = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "solana_arb_min_profit_threshold_pct",
		Help: "Current adaptive minimum profit threshold in percent",
	})
)
