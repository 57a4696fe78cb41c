package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/solarb/solana-arb/pkg/types"
	"go.uber.org/zap"
)

// SpotFunc resolves a current spot price (quote per base) for a pair.
// The paper backend uses it to quote swaps without any network I/O.
type SpotFunc func(base, quote string) (float64, bool)

// PaperBackend simulates execution against in-memory balances. Fills are
// deterministic: the quote's OutAmount is exactly what the swap delivers.
type PaperBackend struct {
	logger *zap.Logger
	spot   SpotFunc

	mu       sync.Mutex
	balances map[string]float64
}

// NewPaperBackend creates a paper backend seeded with a quote-asset balance.
func NewPaperBackend(quoteToken string, quoteBalance float64, spot SpotFunc, logger *zap.Logger) *PaperBackend {
	logger.Info("paper-backend-initialized",
		zap.String("quote-token", quoteToken),
		zap.Float64("quote-balance", quoteBalance))

	return &PaperBackend{
		logger:   logger,
		spot:     spot,
		balances: map[string]float64{quoteToken: quoteBalance},
	}
}

// GetQuote quotes at the current spot price. No slippage or fee is applied
// here; the executor bakes the fill model into the quotes it submits.
func (p *PaperBackend) GetQuote(ctx context.Context, inToken, outToken string, amount float64) (*types.Quote, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("quote amount must be positive, got %f", amount)
	}

	price, ok := p.spot(outToken, inToken)
	if ok {
		// Spot is quoted as inToken per outToken: buying outToken.
		return &types.Quote{
			InToken:   inToken,
			OutToken:  outToken,
			InAmount:  amount,
			OutAmount: amount / price,
			Route:     "paper",
			FetchedAt: time.Now(),
		}, nil
	}

	// Reverse direction: selling outToken-denominated spot.
	price, ok = p.spot(inToken, outToken)
	if !ok {
		return nil, types.NewMissingAssetMapping(inToken + "/" + outToken)
	}

	return &types.Quote{
		InToken:   inToken,
		OutToken:  outToken,
		InAmount:  amount,
		OutAmount: amount * price,
		Route:     "paper",
		FetchedAt: time.Now(),
	}, nil
}

// SubmitSwap applies the quote to the in-memory balances.
func (p *PaperBackend) SubmitSwap(ctx context.Context, quote *types.Quote) (*types.SwapResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.balances[quote.InToken] < quote.InAmount {
		return nil, fmt.Errorf("paper balance too low: %s %.4f < %.4f",
			quote.InToken, p.balances[quote.InToken], quote.InAmount)
	}

	p.balances[quote.InToken] -= quote.InAmount
	p.balances[quote.OutToken] += quote.OutAmount

	result := &types.SwapResult{
		Signature:   "paper-" + uuid.New().String(),
		InToken:     quote.InToken,
		OutToken:    quote.OutToken,
		InAmount:    quote.InAmount,
		OutAmount:   quote.OutAmount,
		Confirmed:   true,
		SubmittedAt: time.Now(),
	}

	p.logger.Debug("paper-swap-filled",
		zap.String("in-token", quote.InToken),
		zap.Float64("in-amount", quote.InAmount),
		zap.String("out-token", quote.OutToken),
		zap.Float64("out-amount", quote.OutAmount))

	return result, nil
}

// GetBalance returns the simulated balance for a token.
func (p *PaperBackend) GetBalance(ctx context.Context, token string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balances[token], nil
}

// SetBalance overrides a simulated balance. Used by tests and the reset path.
func (p *PaperBackend) SetBalance(token string, amount float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances[token] = amount
}

// Simulated always reports true.
func (p *PaperBackend) Simulated() bool {
	return true
}

// Close is a no-op for the paper backend.
func (p *PaperBackend) Close() error {
	return nil
}
