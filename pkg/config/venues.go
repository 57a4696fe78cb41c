package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LiquidityTier buckets tokens by how deep their pools typically are.
// The tier drives the detector's slippage estimate.
type LiquidityTier string

const (
	LiquidityHigh   LiquidityTier = "high"
	LiquidityMedium LiquidityTier = "medium"
	LiquidityLow    LiquidityTier = "low"
)

// VenueInfo is static per-venue data: trading fee and the offset applied
// when a venue price has to be derived from the reference price.
type VenueInfo struct {
	FeePct        float64 `yaml:"fee_pct"`
	DerivedOffset float64 `yaml:"derived_offset"` // fraction, e.g. -0.0015 = -0.15%
}

// VenueCatalog holds the static venue and token data consumed by the cost
// model and the venue clients. It never changes at runtime, which keeps the
// detector's cost function pure.
type VenueCatalog struct {
	Venues          map[string]VenueInfo     `yaml:"venues"`
	DefaultFeePct   float64                  `yaml:"default_fee_pct"`
	TokenMints      map[string]string        `yaml:"token_mints"`
	TokenDecimals   map[string]int           `yaml:"token_decimals"`
	LiquidityTiers  map[string]LiquidityTier `yaml:"liquidity_tiers"`
	BaseSlippagePct float64                  `yaml:"base_slippage_pct"`
	DriftBufferPct  float64                  `yaml:"drift_buffer_pct"`
}

// DefaultVenueCatalog returns the built-in catalog covering the major
// Solana DEXes. Fees are the venues' published trading fees.
func DefaultVenueCatalog() *VenueCatalog {
	return &VenueCatalog{
		Venues: map[string]VenueInfo{
			"jupiter":   {FeePct: 0.10, DerivedOffset: 0},
			"raydium":   {FeePct: 0.22, DerivedOffset: -0.0015},
			"openbook":  {FeePct: 0.14, DerivedOffset: 0.003},
			"orca":      {FeePct: 0.25, DerivedOffset: -0.002},
			"meteora":   {FeePct: 0.20, DerivedOffset: -0.001},
			"phoenix":   {FeePct: 0.05, DerivedOffset: 0.0025},
			"invariant": {FeePct: 0.18, DerivedOffset: 0},
			"cykura":    {FeePct: 0.30, DerivedOffset: 0},
			"saros":     {FeePct: 0.20, DerivedOffset: 0},
			"step":      {FeePct: 0.25, DerivedOffset: 0},
		},
		DefaultFeePct: 0.25,
		TokenMints: map[string]string{
			"SOL":  "So11111111111111111111111111111111111111112",
			"USDC": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
			"USDT": "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB",
			"ETH":  "7vfCXTUXx5WJV5JADk17DUJ4ksgau7utNKj4b963voxs",
			"BTC":  "9n4nbM75f5Ui33ZbPYXn59EwSgE8CGsHtAeTH5YFeJ9E",
			"RAY":  "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R",
			"MNGO": "MangoCzJ36AjZyKwVj3VnYU4GTonjfVEnJmvvWaxLac",
			"ORCA": "orcaEKTdK7LKz57vaAYr9QeNsVEPfiu6QeMU1kektZE",
			"SBR":  "Saber2gLauYim4Mvftnrasomsv6NvAuncvMEZwcLpD1",
		},
		TokenDecimals: map[string]int{
			"SOL": 9, "USDC": 6, "USDT": 6, "ETH": 8, "BTC": 6,
			"RAY": 6, "MNGO": 6, "ORCA": 6, "SBR": 6,
		},
		LiquidityTiers: map[string]LiquidityTier{
			"SOL": LiquidityHigh, "USDC": LiquidityHigh, "USDT": LiquidityHigh, "ETH": LiquidityHigh,
			"RAY": LiquidityMedium, "ORCA": LiquidityMedium, "SRM": LiquidityMedium, "MNGO": LiquidityMedium,
		},
		BaseSlippagePct: 0.05,
		DriftBufferPct:  0.03,
	}
}

// LoadVenueCatalog loads the catalog from a YAML file, falling back to the
// built-in defaults for any section the file leaves empty. An empty path
// returns the defaults.
func LoadVenueCatalog(path string) (*VenueCatalog, error) {
	catalog := DefaultVenueCatalog()
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read venue catalog %s: %w", path, err)
	}

	var loaded VenueCatalog
	err = yaml.Unmarshal(data, &loaded)
	if err != nil {
		return nil, fmt.Errorf("parse venue catalog %s: %w", path, err)
	}

	if len(loaded.Venues) > 0 {
		catalog.Venues = loaded.Venues
	}
	if loaded.DefaultFeePct > 0 {
		catalog.DefaultFeePct = loaded.DefaultFeePct
	}
	if len(loaded.TokenMints) > 0 {
		catalog.TokenMints = loaded.TokenMints
	}
	if len(loaded.TokenDecimals) > 0 {
		catalog.TokenDecimals = loaded.TokenDecimals
	}
	if len(loaded.LiquidityTiers) > 0 {
		catalog.LiquidityTiers = loaded.LiquidityTiers
	}
	if loaded.BaseSlippagePct > 0 {
		catalog.BaseSlippagePct = loaded.BaseSlippagePct
	}
	if loaded.DriftBufferPct > 0 {
		catalog.DriftBufferPct = loaded.DriftBufferPct
	}

	return catalog, nil
}

// FeePct returns the trading fee percentage for a venue, or the default
// when the venue is unknown.
func (c *VenueCatalog) FeePct(venue string) float64 {
	if info, ok := c.Venues[venue]; ok {
		return info.FeePct
	}
	return c.DefaultFeePct
}

// DerivedOffset returns the fractional offset applied when deriving a
// venue's price from the reference price. Unknown venues derive at parity.
func (c *VenueCatalog) DerivedOffset(venue string) float64 {
	if info, ok := c.Venues[venue]; ok {
		return info.DerivedOffset
	}
	return 0
}

// Tier returns a token's liquidity tier; unknown tokens are low liquidity.
func (c *VenueCatalog) Tier(token string) LiquidityTier {
	if tier, ok := c.LiquidityTiers[token]; ok {
		return tier
	}
	return LiquidityLow
}

// Mint returns the mint address for a token symbol.
func (c *VenueCatalog) Mint(token string) (string, bool) {
	mint, ok := c.TokenMints[token]
	return mint, ok
}

// Decimals returns the on-chain decimals for a token symbol, defaulting to 6.
func (c *VenueCatalog) Decimals(token string) int {
	if d, ok := c.TokenDecimals[token]; ok {
		return d
	}
	return 6
}
