package app

import (
	"context"

	"github.com/solarb/solana-arb/pkg/types"
	"go.uber.org/zap"
)

// Subscriber receives engine events. The callback set is closed: every event
// the engine emits maps to exactly one method, and new event kinds mean a
// new method here rather than an ad hoc registration key.
//
// Callbacks run on engine goroutines and must not block. A panicking
// subscriber is isolated and logged; it cannot take the engine down.
type Subscriber interface {
	OnPriceUpdate(sample *types.PriceSample)
	OnTradeExecuted(record *types.TradeRecord)
	OnStatusChange(snapshot types.StatusSnapshot)
	OnTradeError(report types.ErrorReport)
}

// AddSubscriber registers an event subscriber. Safe before Run; not safe to
// call concurrently with a running engine.
func (a *App) AddSubscriber(sub Subscriber) {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	a.subscribers = append(a.subscribers, sub)
}

func (a *App) notifyPriceUpdate(sample *types.PriceSample) {
	a.eachSubscriber(func(sub Subscriber) {
		sub.OnPriceUpdate(sample)
	})
}

func (a *App) notifyTradeExecuted(record *types.TradeRecord) {
	a.eachSubscriber(func(sub Subscriber) {
		sub.OnTradeExecuted(record)
	})
}

// notifyStatusChange delivers a full snapshot with the lifecycle label set,
// so subscribers see mode, PnL and uptime without a follow-up query.
func (a *App) notifyStatusChange(status string) {
	snapshot := a.GetStatus(context.Background())
	snapshot.Status = status
	a.eachSubscriber(func(sub Subscriber) {
		sub.OnStatusChange(snapshot)
	})
}

func (a *App) notifyTradeError(report types.ErrorReport) {
	a.eachSubscriber(func(sub Subscriber) {
		sub.OnTradeError(report)
	})
}

func (a *App) eachSubscriber(fn func(Subscriber)) {
	a.subMu.RLock()
	subscribers := a.subscribers
	a.subMu.RUnlock()

	for _, sub := range subscribers {
		a.callSubscriber(sub, fn)
	}
}

func (a *App) callSubscriber(sub Subscriber, fn func(Subscriber)) {
	defer func() {
		r := recover()
		if r != nil {
			a.logger.Error("subscriber-panic", zap.Any("panic", r))
		}
	}()
	fn(sub)
}

// LoggingSubscriber logs engine events. Price updates log at debug because
// they arrive on every poll tick; trades and errors are operator-facing.
type LoggingSubscriber struct {
	logger *zap.Logger
}

// NewLoggingSubscriber creates a subscriber that logs all events.
func NewLoggingSubscriber(logger *zap.Logger) *LoggingSubscriber {
	return &LoggingSubscriber{logger: logger}
}

func (l *LoggingSubscriber) OnPriceUpdate(sample *types.PriceSample) {
	l.logger.Debug("price-update",
		zap.String("venue", sample.Venue),
		zap.String("pair", sample.Pair.String()),
		zap.Float64("price", sample.Price),
		zap.Bool("derived", sample.Derived))
}

func (l *LoggingSubscriber) OnTradeExecuted(record *types.TradeRecord) {
	if record.Success {
		l.logger.Info("trade-recorded",
			zap.String("trade-id", record.ID),
			zap.String("pair", record.Pair.String()),
			zap.Float64("realized-profit", record.RealizedProfit))
		return
	}

	kind := "unknown"
	if record.Error != nil {
		kind = string(record.Error.Kind)
	}
	l.logger.Warn("trade-recorded",
		zap.String("trade-id", record.ID),
		zap.String("pair", record.Pair.String()),
		zap.String("failure-kind", kind))
}

func (l *LoggingSubscriber) OnStatusChange(snapshot types.StatusSnapshot) {
	l.logger.Info("engine-status-changed",
		zap.String("status", snapshot.Status),
		zap.String("mode", snapshot.Mode),
		zap.Bool("trading-enabled", snapshot.TradingEnabled),
		zap.Float64("total-pnl", snapshot.TotalPnL),
		zap.String("uptime", snapshot.Uptime))
}

func (l *LoggingSubscriber) OnTradeError(report types.ErrorReport) {
	l.logger.Warn("trade-error",
		zap.String("stage", report.Stage),
		zap.String("kind", string(report.Kind)),
		zap.String("message", report.Message))
}
