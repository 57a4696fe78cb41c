package execution

import (
	"context"
	"errors"
	"time"

	"github.com/solarb/solana-arb/internal/arbitrage"
	"github.com/solarb/solana-arb/pkg/types"
	"go.uber.org/zap"
)

// confidenceSizeFactor converts opportunity confidence into an exposure
// percentage: 10% of the portfolio per point of confidence.
const confidenceSizeFactor = 10.0

// Config holds executor configuration.
type Config struct {
	QuoteToken     string
	MaxSlippagePct float64
	MinTradeAmount float64
	QuoteRetries   int
	Backend        Backend
	Costs          *arbitrage.CostModel
	Logger         *zap.Logger
}

// Executor runs the two-leg trade state machine: size, validate, buy, sell,
// settle. Every expected failure surfaces as a typed TradeError in the
// Result; an executor never panics on market conditions.
type Executor struct {
	cfg     *Config
	backend Backend
	costs   *arbitrage.CostModel
	logger  *zap.Logger
}

// Result is the outcome of one execution attempt, success or failure.
type Result struct {
	Opportunity    *arbitrage.Opportunity
	TradeAmount    float64
	BuyResult      *types.SwapResult
	SellResult     *types.SwapResult
	RealizedProfit float64
	Success        bool
	Err            *types.TradeError
	CompletedAt    time.Time
	Duration       time.Duration
}

// Record converts the result into its storage representation.
func (r *Result) Record() *types.TradeRecord {
	return &types.TradeRecord{
		ID:             r.Opportunity.ID,
		Timestamp:      r.CompletedAt,
		Pair:           r.Opportunity.Pair,
		BuyVenue:       r.Opportunity.BuyVenue,
		SellVenue:      r.Opportunity.SellVenue,
		TradeAmount:    r.TradeAmount,
		BuyPrice:       r.Opportunity.BuyPrice,
		SellPrice:      r.Opportunity.SellPrice,
		RealizedProfit: r.RealizedProfit,
		Success:        r.Success,
		Error:          r.Err,
	}
}

// NewExecutor creates a trade executor over a backend.
func NewExecutor(cfg *Config) *Executor {
	return &Executor{
		cfg:     cfg,
		backend: cfg.Backend,
		costs:   cfg.Costs,
		logger:  cfg.Logger,
	}
}

// Execute runs one arbitrage attempt end to end. maxExposurePct is the
// current strategy ceiling on position size as a percentage of the
// quote-asset balance. Execute never returns nil; failures are carried in
// Result.Err.
func (e *Executor) Execute(ctx context.Context, opp *arbitrage.Opportunity, maxExposurePct float64) *Result {
	started := time.Now()
	TradesAttemptedTotal.Inc()

	result := e.run(ctx, opp, maxExposurePct)
	result.CompletedAt = time.Now()
	result.Duration = result.CompletedAt.Sub(started)
	ExecutionDurationSeconds.Observe(result.Duration.Seconds())

	if result.Success {
		TradesSucceededTotal.Inc()
		RealizedProfitUSD.Observe(result.RealizedProfit)
		e.logger.Info("trade-executed",
			zap.String("opportunity-id", opp.ID),
			zap.String("pair", opp.Pair.String()),
			zap.String("buy-venue", opp.BuyVenue),
			zap.String("sell-venue", opp.SellVenue),
			zap.Float64("trade-amount", result.TradeAmount),
			zap.Float64("realized-profit", result.RealizedProfit),
			zap.Duration("duration", result.Duration))
	} else {
		TradesFailedTotal.WithLabelValues(string(result.Err.Kind)).Inc()
		e.logger.Warn("trade-failed",
			zap.String("opportunity-id", opp.ID),
			zap.String("pair", opp.Pair.String()),
			zap.String("kind", string(result.Err.Kind)),
			zap.Error(result.Err))
	}

	return result
}

func (e *Executor) run(ctx context.Context, opp *arbitrage.Opportunity, maxExposurePct float64) *Result {
	result := &Result{Opportunity: opp}

	// 1. Size against the live balance. A balance read failure is treated
	// as zero funds rather than risking an oversized position.
	balance, err := e.backend.GetBalance(ctx, e.cfg.QuoteToken)
	if err != nil {
		e.logger.Warn("balance-check-failed", zap.Error(err))
		balance = 0
	}

	// Small positions are raised to the minimum trade size rather than
	// skipped; the balance still has to cover the floored amount.
	amount := e.positionSize(balance, opp.Confidence(), maxExposurePct)
	if amount < e.cfg.MinTradeAmount {
		amount = e.cfg.MinTradeAmount
	}
	if balance <= 0 || amount > balance {
		result.Err = types.NewInsufficientFunds(e.cfg.QuoteToken, balance)
		return result
	}
	result.TradeAmount = amount
	TradeSizeUSD.Observe(amount)

	// 2. Buy leg: quote asset in, base asset out on the cheap venue.
	buyQuote, terr := e.quoteBuyLeg(ctx, opp, amount)
	if terr != nil {
		result.Err = terr
		return result
	}

	buyRes, err := e.backend.SubmitSwap(ctx, buyQuote)
	if err != nil {
		result.Err = types.NewBuyFailed(err)
		result.BuyResult = buyRes
		return result
	}
	result.BuyResult = buyRes

	// 3. Sell leg, sized by what the buy actually delivered.
	sellQuote, terr := e.quoteSellLeg(ctx, opp, buyRes.OutAmount)
	if terr != nil {
		terr.BuyResult = buyRes
		result.Err = terr
		return result
	}

	sellRes, err := e.backend.SubmitSwap(ctx, sellQuote)
	if err != nil {
		// A live backend may hand back a submitted-but-unconfirmed result
		// alongside the error; keep it so the operator can reconcile.
		result.SellResult = sellRes
		result.Err = types.NewSellFailed(err, buyRes)
		return result
	}
	result.SellResult = sellRes

	// 4. Settlement. Both legs confirmed; the realized outcome is simply
	// what came back minus what went in.
	result.RealizedProfit = sellRes.OutAmount - amount
	if result.RealizedProfit <= 0 {
		result.Err = types.NewRealizedLoss(result.RealizedProfit)
		return result
	}

	result.Success = true
	return result
}

// positionSize returns the trade size in quote-asset units: confidence
// scales exposure up to the strategy ceiling.
func (e *Executor) positionSize(balance, confidence, maxExposurePct float64) float64 {
	exposurePct := confidenceSizeFactor * confidence
	if exposurePct > maxExposurePct {
		exposurePct = maxExposurePct
	}
	return balance * exposurePct / 100
}

// quoteBuyLeg produces the buy-leg quote. Simulated backends get a
// deterministic fill derived from the detected venue price; live backends
// fetch a real quote and validate its slippage before any submission.
func (e *Executor) quoteBuyLeg(ctx context.Context, opp *arbitrage.Opportunity, amount float64) (*types.Quote, *types.TradeError) {
	slip := e.costs.SlippagePct(opp.Pair)

	if e.backend.Simulated() {
		fee := e.costs.FeePct(opp.BuyVenue)
		out := amount / opp.BuyPrice * (1 - fee/100) * (1 - slip/100)
		return &types.Quote{
			InToken:        opp.Pair.Quote,
			OutToken:       opp.Pair.Base,
			InAmount:       amount,
			OutAmount:      out,
			PriceImpactPct: slip,
			Route:          opp.BuyVenue,
			FetchedAt:      time.Now(),
		}, nil
	}

	quote, terr := e.fetchQuote(ctx, opp.Pair.Quote, opp.Pair.Base, amount)
	if terr != nil {
		return nil, terr
	}

	expected := amount / opp.BuyPrice
	observed := observedSlippagePct(expected, quote.OutAmount, quote.PriceImpactPct)
	SlippageObservedPct.WithLabelValues("buy").Observe(observed)
	if observed > e.cfg.MaxSlippagePct {
		return nil, types.NewExcessiveSlippage("buy", observed, e.cfg.MaxSlippagePct)
	}

	return quote, nil
}

// quoteSellLeg mirrors quoteBuyLeg for the sell venue, sized by the base
// amount the buy leg actually delivered.
func (e *Executor) quoteSellLeg(ctx context.Context, opp *arbitrage.Opportunity, received float64) (*types.Quote, *types.TradeError) {
	slip := e.costs.SlippagePct(opp.Pair)

	if e.backend.Simulated() {
		fee := e.costs.FeePct(opp.SellVenue)
		out := received * opp.SellPrice * (1 - fee/100) * (1 - slip/100)
		return &types.Quote{
			InToken:        opp.Pair.Base,
			OutToken:       opp.Pair.Quote,
			InAmount:       received,
			OutAmount:      out,
			PriceImpactPct: slip,
			Route:          opp.SellVenue,
			FetchedAt:      time.Now(),
		}, nil
	}

	quote, terr := e.fetchQuote(ctx, opp.Pair.Base, opp.Pair.Quote, received)
	if terr != nil {
		return nil, terr
	}

	expected := received * opp.SellPrice
	observed := observedSlippagePct(expected, quote.OutAmount, quote.PriceImpactPct)
	SlippageObservedPct.WithLabelValues("sell").Observe(observed)
	if observed > e.cfg.MaxSlippagePct {
		return nil, types.NewExcessiveSlippage("sell", observed, e.cfg.MaxSlippagePct)
	}

	return quote, nil
}

// fetchQuote retries the idempotent quote read a bounded number of times.
// Asset mapping failures are permanent and skip the retry loop.
func (e *Executor) fetchQuote(ctx context.Context, inToken, outToken string, amount float64) (*types.Quote, *types.TradeError) {
	attempts := e.cfg.QuoteRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		quote, err := e.backend.GetQuote(ctx, inToken, outToken, amount)
		if err == nil {
			return quote, nil
		}

		var terr *types.TradeError
		if errors.As(err, &terr) && terr.Kind == types.ErrKindMissingAssetMapping {
			return nil, terr
		}

		lastErr = err
		e.logger.Debug("quote-fetch-retry",
			zap.String("in-token", inToken),
			zap.String("out-token", outToken),
			zap.Int("attempt", i+1),
			zap.Error(err))

		select {
		case <-ctx.Done():
			i = attempts
		case <-time.After(time.Duration(i+1) * 200 * time.Millisecond):
		}
	}

	return nil, &types.TradeError{
		Kind:     types.ErrKindTransientNetwork,
		Message:  "quote fetch exhausted retries",
		ChainErr: lastErr,
	}
}

// observedSlippagePct returns the worse of the quote's own impact figure and
// the shortfall against the spot-implied expectation.
func observedSlippagePct(expected, quoted, impactPct float64) float64 {
	if expected <= 0 {
		return impactPct
	}
	shortfall := (expected - quoted) / expected * 100
	if shortfall > impactPct {
		return shortfall
	}
	return impactPct
}
