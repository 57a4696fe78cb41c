package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/solarb/solana-arb/internal/arbitrage"
	"github.com/solarb/solana-arb/pkg/types"
	"go.uber.org/zap"
)

// Run starts the engine and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("engine-starting",
		zap.String("mode", a.cfg.TradingMode),
		zap.Bool("trading-enabled", a.tradingEnabled.Load()),
		zap.Float64("min-profit-pct", a.cfg.MinProfitPct),
		zap.String("log-level", a.cfg.LogLevel))

	err := a.startComponents()
	if err != nil {
		return err
	}

	a.running.Store(true)
	a.healthChecker.SetReady(true)
	a.notifyStatusChange("running")

	a.logger.Info("engine-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.Strings("venues", a.cfg.FeedVenues))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	a.wg.Add(1)
	go a.runHTTPServer()

	// Give HTTP server a moment to start
	time.Sleep(100 * time.Millisecond)

	err := a.feedManager.Start(a.ctx)
	if err != nil {
		return fmt.Errorf("start feed manager: %w", err)
	}

	if a.stream != nil {
		err = a.stream.Start(a.ctx)
		if err != nil {
			return fmt.Errorf("start price stream: %w", err)
		}
	}

	if a.breaker != nil {
		a.breaker.Start(a.ctx)
	}

	a.wg.Add(1)
	go a.runEngineLoop()

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

// healthLogEveryTicks spaces the periodic health line to roughly once a
// minute at the default poll interval.
const healthLogEveryTicks = 6

// runEngineLoop scans for opportunities on the feed cadence and executes at
// most one trade per tick. A cancellation between ticks stops the loop; a
// cancellation during a trade lets the trade finish first.
func (a *App) runEngineLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.cfg.FeedPollInterval)
	defer ticker.Stop()

	ticks := 0
	for {
		select {
		case <-a.ctx.Done():
			a.logger.Info("engine-loop-stopping")
			return
		case <-ticker.C:
			ticks++
			if ticks%healthLogEveryTicks == 0 {
				a.logHealth()
			}
			a.runCycle()
		}
	}
}

func (a *App) logHealth() {
	perf := a.detector.Performance()
	a.logger.Info("engine-health",
		zap.String("uptime", a.healthChecker.Uptime().String()),
		zap.Int("trades-executed", perf.TradesExecuted),
		zap.Int("successful-trades", perf.SuccessfulTrades),
		zap.Float64("total-profit", perf.TotalProfit),
		zap.Float64("min-profit-pct", perf.MinProfitPct),
		zap.Bool("trading-enabled", a.tradingEnabled.Load()))
}

func (a *App) runCycle() {
	opp := a.detector.Detect()
	if opp == nil {
		return
	}

	err := a.storage.StoreOpportunity(a.ctx, opp)
	if err != nil {
		a.logger.Error("store-opportunity-error",
			zap.Error(err),
			zap.String("opportunity-id", opp.ID))
	}

	if a.executor == nil {
		a.logger.Info("opportunity-detected-not-traded",
			zap.String("opportunity", opp.String()),
			zap.String("reason", "detect-only mode"))
		return
	}

	if !a.tradingEnabled.Load() {
		a.logger.Info("opportunity-detected-not-traded",
			zap.String("opportunity", opp.String()),
			zap.String("reason", "trading disabled"))
		return
	}

	if a.breaker != nil && !a.breaker.IsEnabled() {
		a.logger.Warn("opportunity-detected-not-traded",
			zap.String("opportunity", opp.String()),
			zap.String("reason", "circuit breaker open"))
		return
	}

	a.executeOpportunity(opp)
}

// executeOpportunity runs one trade end to end and feeds the outcome back
// into strategy state, storage and subscribers. The execution context
// survives engine cancellation so an in-flight trade is never abandoned
// between legs.
func (a *App) executeOpportunity(opp *arbitrage.Opportunity) {
	execCtx, cancel := context.WithTimeout(context.WithoutCancel(a.ctx), a.cfg.SwapTimeout*2)
	defer cancel()

	result := a.executor.Execute(execCtx, opp, a.detector.MaxExposurePct())
	record := result.Record()

	a.detector.OnTradeExecuted(record)

	if a.breaker != nil && result.TradeAmount > 0 {
		a.breaker.RecordTrade(result.TradeAmount)
	}

	err := a.storage.StoreTrade(execCtx, record)
	if err != nil {
		a.logger.Error("store-trade-error",
			zap.Error(err),
			zap.String("trade-id", record.ID))
	}

	a.notifyTradeExecuted(record)

	if result.Err != nil {
		a.notifyTradeError(types.ErrorReport{
			Stage:   "execute",
			Kind:    result.Err.Kind,
			Message: result.Err.Message,
			At:      record.Timestamp,
		})
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
