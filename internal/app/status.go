package app

import (
	"context"

	"github.com/solarb/solana-arb/pkg/types"
	"go.uber.org/zap"
)

// statusRecentTrades bounds the trade log embedded in a status snapshot.
const statusRecentTrades = 10

// GetStatus returns a point-in-time snapshot of engine state. Safe to call
// concurrently with trading; it only takes read paths.
func (a *App) GetStatus(ctx context.Context) types.StatusSnapshot {
	perf := a.detector.Performance()

	portfolio, err := a.backend.GetBalance(ctx, a.cfg.QuoteToken)
	if err != nil {
		a.logger.Warn("status-balance-read-failed", zap.Error(err))
		portfolio = 0
	}

	return types.StatusSnapshot{
		Running:        a.running.Load(),
		Mode:           a.cfg.TradingMode,
		TradingEnabled: a.tradingEnabled.Load(),
		PortfolioValue: portfolio,
		TotalPnL:       perf.TotalProfit,
		Uptime:         a.healthChecker.Uptime().String(),
		TradesExecuted: perf.TradesExecuted,
		SuccessRatePct: perf.SuccessRatePct,
		MinProfitPct:   perf.MinProfitPct,
		RecentTrades:   a.detector.RecentTrades(statusRecentTrades),
	}
}

// RecentTrades returns up to limit most recent settled trades.
func (a *App) RecentTrades(limit int) []types.TradeRecord {
	return a.detector.RecentTrades(limit)
}

// SetTradingEnabled toggles the execution gate at runtime. Detection keeps
// running either way.
func (a *App) SetTradingEnabled(enabled bool) {
	old := a.tradingEnabled.Swap(enabled)
	if old == enabled {
		return
	}

	status := "trading-disabled"
	if enabled {
		status = "trading-enabled"
	}
	a.notifyStatusChange(status)
}
