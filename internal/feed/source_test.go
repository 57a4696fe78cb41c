package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/solarb/solana-arb/pkg/config"
	"github.com/solarb/solana-arb/pkg/types"
)

func TestJupiterSourceFetch(t *testing.T) {
	catalog := config.DefaultVenueCatalog()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("inputMint") != "So11111111111111111111111111111111111111112" {
			t.Errorf("unexpected inputMint %s", q.Get("inputMint"))
		}
		// 1 SOL = 10^9 atomic units in
		if q.Get("amount") != "1000000000" {
			t.Errorf("unexpected amount %s", q.Get("amount"))
		}
		// 150.25 USDC out, 6 decimals
		w.Write([]byte(`{"outAmount":"150250000"}`))
	}))
	defer server.Close()

	source := NewJupiterSource(server.URL, catalog, time.Second)
	if source.Venue() != "jupiter" {
		t.Errorf("unexpected venue %s", source.Venue())
	}

	sample, err := source.Fetch(context.Background(), solUSDC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sample.Price != 150.25 {
		t.Errorf("expected price 150.25, got %f", sample.Price)
	}
	if sample.Derived {
		t.Error("source samples are observed, not derived")
	}
	if !sample.Valid() {
		t.Error("expected valid sample")
	}
}

func TestJupiterSourceFetchErrors(t *testing.T) {
	catalog := config.DefaultVenueCatalog()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		pair    types.Pair
	}{
		{
			name: "unknown-token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"outAmount":"1"}`))
			},
			pair: types.Pair{Base: "BONK", Quote: "USDC"},
		},
		{
			name: "api-error-status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "rate limited", http.StatusTooManyRequests)
			},
			pair: solUSDC,
		},
		{
			name: "malformed-out-amount",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"outAmount":"not-a-number"}`))
			},
			pair: solUSDC,
		},
		{
			name: "zero-price",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"outAmount":"0"}`))
			},
			pair: solUSDC,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			source := NewJupiterSource(server.URL, catalog, time.Second)
			if _, err := source.Fetch(context.Background(), tt.pair); err == nil {
				t.Error("expected error")
			}
		})
	}
}
