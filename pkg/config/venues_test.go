package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCatalogLookups(t *testing.T) {
	catalog := DefaultVenueCatalog()

	if got := catalog.FeePct("raydium"); got != 0.22 {
		t.Errorf("expected raydium fee 0.22, got %f", got)
	}
	if got := catalog.FeePct("unknown-dex"); got != 0.25 {
		t.Errorf("expected default fee 0.25, got %f", got)
	}

	if got := catalog.DerivedOffset("orca"); got != -0.002 {
		t.Errorf("expected orca offset -0.002, got %f", got)
	}
	if got := catalog.DerivedOffset("unknown-dex"); got != 0 {
		t.Errorf("expected zero offset for unknown venue, got %f", got)
	}

	if got := catalog.Tier("SOL"); got != LiquidityHigh {
		t.Errorf("expected SOL high tier, got %s", got)
	}
	if got := catalog.Tier("BONK"); got != LiquidityLow {
		t.Errorf("expected unknown token low tier, got %s", got)
	}

	if got := catalog.Decimals("SOL"); got != 9 {
		t.Errorf("expected 9 decimals for SOL, got %d", got)
	}
	if got := catalog.Decimals("BONK"); got != 6 {
		t.Errorf("expected default 6 decimals, got %d", got)
	}

	mint, ok := catalog.Mint("USDC")
	if !ok || mint != "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v" {
		t.Errorf("unexpected USDC mint %q ok=%v", mint, ok)
	}
	if _, ok := catalog.Mint("BONK"); ok {
		t.Error("expected unknown token to have no mint")
	}
}

func TestLoadVenueCatalog(t *testing.T) {
	t.Run("empty-path-returns-defaults", func(t *testing.T) {
		catalog, err := LoadVenueCatalog("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if catalog.FeePct("jupiter") != 0.10 {
			t.Errorf("expected built-in jupiter fee, got %f", catalog.FeePct("jupiter"))
		}
	})

	t.Run("missing-file", func(t *testing.T) {
		if _, err := LoadVenueCatalog("/nonexistent/venues.yaml"); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("partial-file-keeps-default-sections", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "venues.yaml")
		content := `
venues:
  jupiter:
    fee_pct: 0.30
base_slippage_pct: 0.10
`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}

		catalog, err := LoadVenueCatalog(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := catalog.FeePct("jupiter"); got != 0.30 {
			t.Errorf("expected overridden fee 0.30, got %f", got)
		}
		if catalog.BaseSlippagePct != 0.10 {
			t.Errorf("expected overridden base slippage, got %f", catalog.BaseSlippagePct)
		}
		// Sections the file omits fall back to the built-ins
		if got := catalog.Tier("SOL"); got != LiquidityHigh {
			t.Errorf("expected default tiers retained, got %s", got)
		}
		if _, ok := catalog.Mint("SOL"); !ok {
			t.Error("expected default mints retained")
		}
	})

	t.Run("malformed-yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "venues.yaml")
		if err := os.WriteFile(path, []byte("venues: ["), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
		if _, err := LoadVenueCatalog(path); err == nil {
			t.Error("expected parse error")
		}
	})
}
