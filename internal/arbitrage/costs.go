package arbitrage

import (
	"github.com/solarb/solana-arb/pkg/config"
	"github.com/solarb/solana-arb/pkg/types"
)

// CostModel estimates the total cost of a two-leg arbitrage as a percentage
// of the traded amount. It is a pure function of the static venue catalog
// and the asset identities, so it is cheap and deterministic inside the
// detection loop.
type CostModel struct {
	catalog *config.VenueCatalog
}

// NewCostModel creates a cost model over a venue catalog.
func NewCostModel(catalog *config.VenueCatalog) *CostModel {
	return &CostModel{catalog: catalog}
}

// Estimate returns the estimated execution cost in percent for buying on
// buyVenue and selling on sellVenue: both venues' trading fees, a
// liquidity-tiered slippage estimate per leg, and a fixed buffer for price
// drift between the legs.
func (m *CostModel) Estimate(buyVenue, sellVenue string, pair types.Pair) float64 {
	fees := m.catalog.FeePct(buyVenue) + m.catalog.FeePct(sellVenue)
	slippage := m.SlippagePct(pair)
	return fees + slippage*2 + m.catalog.DriftBufferPct
}

// SlippagePct returns the per-leg slippage estimate in percent for a pair.
// Pairs of exclusively high-liquidity tokens get half the base estimate;
// each medium-liquidity token multiplies it by 1.25 and each low-liquidity
// token by 1.5.
func (m *CostModel) SlippagePct(pair types.Pair) float64 {
	base := m.catalog.BaseSlippagePct

	baseTier := m.catalog.Tier(pair.Base)
	quoteTier := m.catalog.Tier(pair.Quote)

	if baseTier == config.LiquidityHigh && quoteTier == config.LiquidityHigh {
		return base * 0.5
	}

	multiplier := 1.0
	for _, tier := range []config.LiquidityTier{baseTier, quoteTier} {
		switch tier {
		case config.LiquidityHigh:
			// no adjustment
		case config.LiquidityMedium:
			multiplier *= 1.25
		default:
			multiplier *= 1.5
		}
	}

	return base * multiplier
}

// FeePct exposes the venue fee lookup for the execution layer, which uses
// the same figures when simulating paper fills.
func (m *CostModel) FeePct(venue string) float64 {
	return m.catalog.FeePct(venue)
}
