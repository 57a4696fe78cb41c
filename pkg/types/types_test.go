package types

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParsePair(t *testing.T) {
	tests := []struct {
		input   string
		want    Pair
		wantErr bool
	}{
		{"SOL/USDC", Pair{Base: "SOL", Quote: "USDC"}, false},
		{"RAY/USDT", Pair{Base: "RAY", Quote: "USDT"}, false},
		{"SOLUSDC", Pair{}, true},
		{"/USDC", Pair{}, true},
		{"SOL/", Pair{}, true},
		{"", Pair{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePair(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestPairString(t *testing.T) {
	pair := Pair{Base: "SOL", Quote: "USDC"}
	if pair.String() != "SOL/USDC" {
		t.Errorf("unexpected string %s", pair.String())
	}
}

func TestPriceSampleValid(t *testing.T) {
	pair := Pair{Base: "SOL", Quote: "USDC"}
	now := time.Now()

	tests := []struct {
		name   string
		sample *PriceSample
		want   bool
	}{
		{"valid", &PriceSample{Venue: "jupiter", Pair: pair, Price: 150, ObservedAt: now}, true},
		{"nil", nil, false},
		{"zero-price", &PriceSample{Venue: "jupiter", Pair: pair, Price: 0}, false},
		{"negative-price", &PriceSample{Venue: "jupiter", Pair: pair, Price: -1}, false},
		{"missing-venue", &PriceSample{Pair: pair, Price: 150}, false},
		{"missing-base", &PriceSample{Venue: "jupiter", Pair: Pair{Quote: "USDC"}, Price: 150}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sample.Valid(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestTradeErrorMessages(t *testing.T) {
	chainErr := errors.New("blockhash expired")

	tests := []struct {
		name     string
		err      *TradeError
		wantKind ErrorKind
		contains []string
	}{
		{
			name:     "insufficient-funds",
			err:      NewInsufficientFunds("USDC", 3.25),
			wantKind: ErrKindInsufficientFunds,
			contains: []string{"insufficient_funds", "USDC", "3.25"},
		},
		{
			name:     "excessive-slippage",
			err:      NewExcessiveSlippage("buy", 2.5, 1.0),
			wantKind: ErrKindExcessiveSlippage,
			contains: []string{"excessive_slippage", "buy", "2.50", "1.00"},
		},
		{
			name:     "buy-failed",
			err:      NewBuyFailed(chainErr),
			wantKind: ErrKindBuyFailed,
			contains: []string{"buy_failed", "blockhash expired"},
		},
		{
			name:     "realized-loss",
			err:      NewRealizedLoss(-0.42),
			wantKind: ErrKindRealizedLoss,
			contains: []string{"realized_loss", "-0.42"},
		},
		{
			name:     "missing-asset-mapping",
			err:      NewMissingAssetMapping("BONK"),
			wantKind: ErrKindMissingAssetMapping,
			contains: []string{"missing_asset_mapping", "BONK"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.wantKind {
				t.Errorf("expected kind %s, got %s", tt.wantKind, tt.err.Kind)
			}
			msg := tt.err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(msg, want) {
					t.Errorf("message %q missing %q", msg, want)
				}
			}
		})
	}
}

func TestTradeErrorUnwrap(t *testing.T) {
	chainErr := errors.New("rpc timeout")
	terr := NewSellFailed(chainErr, &SwapResult{Signature: "sig"})

	if !errors.Is(terr, chainErr) {
		t.Error("expected Unwrap to expose the chain error")
	}
	if terr.BuyResult == nil || terr.BuyResult.Signature != "sig" {
		t.Error("expected buy result retained")
	}

	var target *TradeError
	if !errors.As(error(terr), &target) {
		t.Error("expected errors.As to match TradeError")
	}
}
