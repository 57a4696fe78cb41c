package storage

import (
	"context"

	"github.com/solarb/solana-arb/internal/arbitrage"
	"github.com/solarb/solana-arb/pkg/types"
)

// Storage persists detected opportunities and settled trades.
type Storage interface {
	// StoreOpportunity stores a detected arbitrage opportunity.
	StoreOpportunity(ctx context.Context, opp *arbitrage.Opportunity) error

	// StoreTrade stores one settled trade, successful or failed.
	StoreTrade(ctx context.Context, record *types.TradeRecord) error

	// Close closes the storage connection.
	Close() error
}
