package circuitbreaker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// tradeWindowSize bounds the rolling window of trade sizes used for
// threshold calculation.
const tradeWindowSize = 20

// BalanceFetcher reads the wallet's balance for a token. The execution
// backend satisfies this; tests use a mock.
type BalanceFetcher interface {
	GetBalance(ctx context.Context, token string) (float64, error)
}

// BalanceCircuitBreaker monitors the quote-asset balance and halts trade
// execution when it drops below a dynamic floor. The floor tracks recent
// trade sizes, and hysteresis keeps the breaker from flapping around the
// threshold.
type BalanceCircuitBreaker struct {
	enabled atomic.Bool // lock-free reads on the hot path

	checkInterval   time.Duration
	balances        BalanceFetcher
	token           string
	logger          *zap.Logger
	tradeMultiplier float64 // multiplier over avg trade size
	minAbsolute     float64 // absolute minimum balance
	hysteresisRatio float64 // re-enable at ratio * disable threshold

	mu               sync.RWMutex
	lastBalance      float64
	lastCheck        time.Time
	recentTrades     []float64
	disableThreshold float64
	enableThreshold  float64
}

// Config holds circuit breaker configuration.
type Config struct {
	CheckInterval   time.Duration
	TradeMultiplier float64
	MinAbsolute     float64
	HysteresisRatio float64
	Balances        BalanceFetcher
	Token           string
	Logger          *zap.Logger
}

// Status holds current circuit breaker status for debugging.
type Status struct {
	Enabled          bool
	LastBalance      float64
	LastCheck        time.Time
	DisableThreshold float64
	EnableThreshold  float64
	AvgTradeSize     float64
	RecentTradeCount int
}

// New creates a new circuit breaker with the given configuration.
func New(cfg *Config) (*BalanceCircuitBreaker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Balances == nil {
		return nil, fmt.Errorf("balance fetcher cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}
	if cfg.CheckInterval <= 0 {
		return nil, fmt.Errorf("check interval must be positive")
	}
	if cfg.TradeMultiplier <= 0 {
		return nil, fmt.Errorf("trade multiplier must be positive")
	}
	if cfg.MinAbsolute <= 0 {
		return nil, fmt.Errorf("min absolute must be positive")
	}
	if cfg.HysteresisRatio < 1.0 {
		return nil, fmt.Errorf("hysteresis ratio must be >= 1.0")
	}

	breaker := &BalanceCircuitBreaker{
		checkInterval:    cfg.CheckInterval,
		balances:         cfg.Balances,
		token:            cfg.Token,
		logger:           cfg.Logger,
		tradeMultiplier:  cfg.TradeMultiplier,
		minAbsolute:      cfg.MinAbsolute,
		hysteresisRatio:  cfg.HysteresisRatio,
		recentTrades:     make([]float64, 0, tradeWindowSize),
		disableThreshold: cfg.MinAbsolute,
		enableThreshold:  cfg.MinAbsolute * cfg.HysteresisRatio,
	}

	// Start enabled by default
	breaker.enabled.Store(true)

	CircuitBreakerEnabled.Set(1)
	CircuitBreakerDisableThreshold.Set(breaker.disableThreshold)
	CircuitBreakerEnableThreshold.Set(breaker.enableThreshold)
	CircuitBreakerAvgTradeSize.Set(0)

	return breaker, nil
}

// IsEnabled returns true if trades should be executed.
// This is lock-free and safe to call from hot paths.
func (b *BalanceCircuitBreaker) IsEnabled() bool {
	return b.enabled.Load()
}

// RecordTrade adds a trade to the rolling window and recalculates
// thresholds. Call this after each executed trade.
func (b *BalanceCircuitBreaker) RecordTrade(tradeSize float64) {
	if tradeSize <= 0 {
		b.logger.Warn("invalid-trade-size",
			zap.Float64("size", tradeSize))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.recentTrades = append(b.recentTrades, tradeSize)
	if len(b.recentTrades) > tradeWindowSize {
		b.recentTrades = b.recentTrades[1:]
	}

	sum := 0.0
	for _, size := range b.recentTrades {
		sum += size
	}
	avgTradeSize := sum / float64(len(b.recentTrades))

	b.disableThreshold = math.Max(avgTradeSize*b.tradeMultiplier, b.minAbsolute)
	b.enableThreshold = b.disableThreshold * b.hysteresisRatio

	CircuitBreakerAvgTradeSize.Set(avgTradeSize)
	CircuitBreakerDisableThreshold.Set(b.disableThreshold)
	CircuitBreakerEnableThreshold.Set(b.enableThreshold)

	b.logger.Debug("thresholds-updated",
		zap.Float64("avg-trade-size", avgTradeSize),
		zap.Int("trade-count", len(b.recentTrades)),
		zap.Float64("disable-threshold", b.disableThreshold),
		zap.Float64("enable-threshold", b.enableThreshold))
}

// CheckBalance checks the current balance and updates the enabled state.
func (b *BalanceCircuitBreaker) CheckBalance(ctx context.Context) error {
	start := time.Now()
	defer func() {
		CircuitBreakerCheckDuration.Observe(time.Since(start).Seconds())
	}()

	balance, err := b.balances.GetBalance(ctx, b.token)
	if err != nil {
		b.logger.Error("failed-to-check-balance",
			zap.Error(err),
			zap.String("token", b.token))
		return fmt.Errorf("get balance: %w", err)
	}

	b.mu.RLock()
	disableThreshold := b.disableThreshold
	enableThreshold := b.enableThreshold
	b.mu.RUnlock()

	currentlyEnabled := b.enabled.Load()

	b.mu.Lock()
	b.lastBalance = balance
	b.lastCheck = time.Now()
	b.mu.Unlock()

	CircuitBreakerBalance.Set(balance)

	// State transition logic with hysteresis
	shouldDisable := currentlyEnabled && balance < disableThreshold
	shouldEnable := !currentlyEnabled && balance >= enableThreshold

	if shouldDisable {
		b.enabled.Store(false)
		CircuitBreakerEnabled.Set(0)
		CircuitBreakerStateChanges.Inc()

		b.logger.Warn("circuit-breaker-disabled",
			zap.Float64("balance", balance),
			zap.Float64("disable-threshold", disableThreshold),
			zap.Float64("enable-threshold", enableThreshold))
	} else if shouldEnable {
		b.enabled.Store(true)
		CircuitBreakerEnabled.Set(1)
		CircuitBreakerStateChanges.Inc()

		b.logger.Info("circuit-breaker-enabled",
			zap.Float64("balance", balance),
			zap.Float64("disable-threshold", disableThreshold),
			zap.Float64("enable-threshold", enableThreshold))
	} else {
		b.logger.Debug("balance-checked",
			zap.Float64("balance", balance),
			zap.Bool("enabled", currentlyEnabled),
			zap.Float64("disable-threshold", disableThreshold),
			zap.Float64("enable-threshold", enableThreshold))
	}

	return nil
}

// Start begins the background monitoring loop. It runs until the context is
// cancelled.
func (b *BalanceCircuitBreaker) Start(ctx context.Context) {
	b.logger.Info("circuit-breaker-started",
		zap.Duration("check-interval", b.checkInterval),
		zap.Float64("trade-multiplier", b.tradeMultiplier),
		zap.Float64("min-absolute", b.minAbsolute),
		zap.Float64("hysteresis-ratio", b.hysteresisRatio))

	// Check balance immediately on startup
	err := b.CheckBalance(ctx)
	if err != nil {
		b.logger.Error("initial-balance-check-failed", zap.Error(err))
	}

	go b.monitorLoop(ctx)
}

func (b *BalanceCircuitBreaker) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(b.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("circuit-breaker-stopped")
			return
		case <-ticker.C:
			err := b.CheckBalance(ctx)
			if err != nil {
				// Keep monitoring through transient RPC failures
				b.logger.Error("balance-check-error", zap.Error(err))
			}
		}
	}
}

// GetStatus returns current circuit breaker status for debugging.
func (b *BalanceCircuitBreaker) GetStatus() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	sum := 0.0
	for _, size := range b.recentTrades {
		sum += size
	}
	avgTradeSize := 0.0
	if len(b.recentTrades) > 0 {
		avgTradeSize = sum / float64(len(b.recentTrades))
	}

	return Status{
		Enabled:          b.enabled.Load(),
		LastBalance:      b.lastBalance,
		LastCheck:        b.lastCheck,
		DisableThreshold: b.disableThreshold,
		EnableThreshold:  b.enableThreshold,
		AvgTradeSize:     avgTradeSize,
		RecentTradeCount: len(b.recentTrades),
	}
}
