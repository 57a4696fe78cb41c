package execution

import (
	"context"

	"github.com/solarb/solana-arb/pkg/types"
)

// Backend is the chain-facing capability the executor trades through:
// quote, swap, balance. The paper implementation is a pure in-memory stub;
// the live one talks to the Jupiter aggregator and a Solana RPC node.
// The executor itself never branches on trading mode beyond what
// Simulated() exposes.
type Backend interface {
	// GetQuote returns a quote for swapping amount of inToken into outToken.
	// Read-only and idempotent; callers may retry it.
	GetQuote(ctx context.Context, inToken, outToken string, amount float64) (*types.Quote, error)

	// SubmitSwap submits a swap for a previously obtained quote. Never
	// retried by callers: a second submission risks a double spend.
	SubmitSwap(ctx context.Context, quote *types.Quote) (*types.SwapResult, error)

	// GetBalance returns the wallet balance for a token symbol.
	GetBalance(ctx context.Context, token string) (float64, error)

	// Simulated reports whether fills are simulated. Simulated backends
	// fill deterministically, so pre-trade quote validation is skipped.
	Simulated() bool

	// Close releases any held connections.
	Close() error
}
