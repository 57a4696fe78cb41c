package arbitrage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/solarb/solana-arb/pkg/types"
)

// Opportunity is a transient cross-venue price discrepancy: buy on the cheap
// venue, sell on the expensive one. NetProfitPct already has estimated fees,
// slippage and the drift buffer subtracted.
type Opportunity struct {
	ID             string
	Pair           types.Pair
	BuyVenue       string
	BuyPrice       float64
	SellVenue      string
	SellPrice      float64
	GrossProfitPct float64
	NetProfitPct   float64
	BuyDerived     bool
	SellDerived    bool
	DetectedAt     time.Time
}

// NewOpportunity creates an opportunity with profit accounting.
// Prices are quote-asset per base-asset; sellPrice > buyPrice always holds
// for a detected opportunity.
func NewOpportunity(pair types.Pair, buyVenue string, buyPrice float64, sellVenue string, sellPrice float64, grossPct, netPct float64) *Opportunity {
	return &Opportunity{
		ID:             uuid.New().String(),
		Pair:           pair,
		BuyVenue:       buyVenue,
		BuyPrice:       buyPrice,
		SellVenue:      sellVenue,
		SellPrice:      sellPrice,
		GrossProfitPct: grossPct,
		NetProfitPct:   netPct,
		DetectedAt:     time.Now(),
	}
}

// Confidence scales with net profit up to a 3x cap; the executor uses it to
// size positions.
func (o *Opportunity) Confidence() float64 {
	c := o.NetProfitPct / 2
	if c > 3.0 {
		return 3.0
	}
	if c < 0 {
		return 0
	}
	return c
}

// String returns a human-readable representation of the opportunity.
func (o *Opportunity) String() string {
	return fmt.Sprintf(
		"Opportunity[%s] %s buy=%s@%.4f sell=%s@%.4f gross=%.2f%% net=%.2f%%",
		o.ID[:8],
		o.Pair,
		o.BuyVenue,
		o.BuyPrice,
		o.SellVenue,
		o.SellPrice,
		o.GrossProfitPct,
		o.NetProfitPct,
	)
}
