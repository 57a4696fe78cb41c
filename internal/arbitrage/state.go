package arbitrage

import (
	"github.com/solarb/solana-arb/pkg/types"
	"go.uber.org/zap"
)

// thresholdTightenFactor multiplies the minimum profit threshold after any
// failed trade. There is no corresponding relaxation on success; only Reset
// restores the configured value, so the strategy never forgets caution
// faster than it earns it back.
const thresholdTightenFactor = 1.05

// StrategyState tracks performance counters and the adaptive profit
// threshold for one strategy instance. Mutated only by the owning detector.
type StrategyState struct {
	minProfitPct     float64
	maxExposurePct   float64
	tradesExecuted   int
	successfulTrades int
	totalProfit      float64
	tradeHistory     []types.TradeRecord
	maxTradeHistory  int
}

func newStrategyState(minProfitPct, maxExposurePct float64, maxTradeHistory int) *StrategyState {
	return &StrategyState{
		minProfitPct:    minProfitPct,
		maxExposurePct:  maxExposurePct,
		maxTradeHistory: maxTradeHistory,
	}
}

// PerformanceMetrics is a snapshot of strategy counters for the status
// surface.
type PerformanceMetrics struct {
	TotalProfit      float64
	TradesExecuted   int
	SuccessfulTrades int
	SuccessRatePct   float64
	MinProfitPct     float64
	MaxExposurePct   float64
}

// OnTradeExecuted records a settled trade: counters and the bounded trade
// log always, and on failure the profit threshold ratchets up.
func (d *Detector) OnTradeExecuted(record *types.TradeRecord) {
	if record == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.state
	s.tradesExecuted++

	if record.Success {
		s.successfulTrades++
		s.totalProfit += record.RealizedProfit
		TradesRecordedTotal.WithLabelValues("success").Inc()
		RealizedProfitTotal.Add(record.RealizedProfit)
	} else {
		s.minProfitPct *= thresholdTightenFactor
		TradesRecordedTotal.WithLabelValues("failure").Inc()
		MinProfitThresholdPct.Set(s.minProfitPct)

		kind := "unknown"
		if record.Error != nil {
			kind = string(record.Error.Kind)
		}
		d.logger.Info("min-profit-threshold-tightened",
			zap.Float64("min-profit-pct", s.minProfitPct),
			zap.String("failure-kind", kind))
	}

	s.tradeHistory = append(s.tradeHistory, *record)
	if len(s.tradeHistory) > s.maxTradeHistory {
		s.tradeHistory = s.tradeHistory[len(s.tradeHistory)-s.maxTradeHistory:]
	}
}

// MinProfitPct returns the current (possibly tightened) profit threshold.
func (d *Detector) MinProfitPct() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.minProfitPct
}

// MaxExposurePct returns the configured exposure cap.
func (d *Detector) MaxExposurePct() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.maxExposurePct
}

// Performance returns a snapshot of the strategy counters.
func (d *Detector) Performance() PerformanceMetrics {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.state
	rate := 0.0
	if s.tradesExecuted > 0 {
		rate = float64(s.successfulTrades) / float64(s.tradesExecuted) * 100
	}

	return PerformanceMetrics{
		TotalProfit:      s.totalProfit,
		TradesExecuted:   s.tradesExecuted,
		SuccessfulTrades: s.successfulTrades,
		SuccessRatePct:   rate,
		MinProfitPct:     s.minProfitPct,
		MaxExposurePct:   s.maxExposurePct,
	}
}

// RecentTrades returns up to limit most recent trade records, newest last.
func (d *Detector) RecentTrades(limit int) []types.TradeRecord {
	d.mu.Lock()
	defer d.mu.Unlock()

	history := d.state.tradeHistory
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}

	out := make([]types.TradeRecord, len(history))
	copy(out, history)
	return out
}
