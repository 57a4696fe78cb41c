package execution

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/solarb/solana-arb/pkg/config"
	"github.com/solarb/solana-arb/pkg/types"
	"go.uber.org/zap"
)

func newLiveBackend(quoteURL, swapURL, rpcURL string) *LiveBackend {
	logger, _ := zap.NewDevelopment()
	return NewLiveBackend(&LiveConfig{
		QuoteURL:      quoteURL,
		SwapURL:       swapURL,
		RPCURL:        rpcURL,
		WalletAddress: "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
		Catalog:       config.DefaultVenueCatalog(),
		Timeout:       time.Second,
		Logger:        logger,
	})
}

func TestLiveGetQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		// 250 USDC in, 6 decimals
		if q.Get("amount") != "250000000" {
			t.Errorf("unexpected amount %s", q.Get("amount"))
		}
		if q.Get("slippageBps") != "50" {
			t.Errorf("unexpected slippageBps %s", q.Get("slippageBps"))
		}
		w.Write([]byte(`{
			"inAmount": "250000000",
			"outAmount": "1660000000",
			"priceImpactPct": "0.0012",
			"routePlan": [{"swapInfo": {"label": "Raydium CLMM"}}]
		}`))
	}))
	defer server.Close()

	backend := newLiveBackend(server.URL, "", "")
	quote, err := backend.GetQuote(context.Background(), "USDC", "SOL", 250)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 1660000000 lamports = 1.66 SOL
	if math.Abs(quote.OutAmount-1.66) > 1e-9 {
		t.Errorf("expected out 1.66 SOL, got %f", quote.OutAmount)
	}
	// Impact arrives as a fraction and is reported in percent
	if math.Abs(quote.PriceImpactPct-0.12) > 1e-9 {
		t.Errorf("expected impact 0.12%%, got %f", quote.PriceImpactPct)
	}
	if quote.Route != "Raydium CLMM" {
		t.Errorf("unexpected route %s", quote.Route)
	}
}

func TestLiveGetQuoteMissingMapping(t *testing.T) {
	backend := newLiveBackend("http://unused", "", "")

	_, err := backend.GetQuote(context.Background(), "USDC", "BONK", 100)

	var terr *types.TradeError
	if !errors.As(err, &terr) || terr.Kind != types.ErrKindMissingAssetMapping {
		t.Fatalf("expected missing_asset_mapping, got %v", err)
	}
}

func TestLiveSubmitSwap(t *testing.T) {
	var gotReq swapRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"signature": "5j7s...abc", "confirmed": true, "outAmount": "1650000000"}`))
	}))
	defer server.Close()

	backend := newLiveBackend("", server.URL, "")
	quote := &types.Quote{
		InToken:   "USDC",
		OutToken:  "SOL",
		InAmount:  250,
		OutAmount: 1.66,
	}

	result, err := backend.SubmitSwap(context.Background(), quote)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotReq.Amount != 250000000 {
		t.Errorf("expected atomic in 250000000, got %d", gotReq.Amount)
	}
	if gotReq.SlippageBps != 50 {
		t.Errorf("expected slippageBps 50, got %d", gotReq.SlippageBps)
	}

	if !result.Confirmed {
		t.Error("expected confirmed result")
	}
	// Actual fill from the response, not the quote
	if math.Abs(result.OutAmount-1.65) > 1e-9 {
		t.Errorf("expected fill 1.65 SOL, got %f", result.OutAmount)
	}
}

func TestLiveSubmitSwapUnconfirmed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"signature": "pending-sig", "confirmed": false}`))
	}))
	defer server.Close()

	backend := newLiveBackend("", server.URL, "")
	quote := &types.Quote{InToken: "USDC", OutToken: "SOL", InAmount: 250, OutAmount: 1.66}

	result, err := backend.SubmitSwap(context.Background(), quote)
	if err == nil {
		t.Fatal("expected error for unconfirmed swap")
	}
	// Partial state must be visible: funds may be committed
	if result == nil || result.Signature != "pending-sig" {
		t.Fatalf("expected result alongside error, got %+v", result)
	}
	if result.Confirmed {
		t.Error("result must report unconfirmed")
	}
}

func TestLiveSubmitSwapRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "slippage tolerance exceeded"}`))
	}))
	defer server.Close()

	backend := newLiveBackend("", server.URL, "")
	quote := &types.Quote{InToken: "USDC", OutToken: "SOL", InAmount: 250, OutAmount: 1.66}

	_, err := backend.SubmitSwap(context.Background(), quote)
	if err == nil || !strings.Contains(err.Error(), "slippage tolerance exceeded") {
		t.Fatalf("expected rejection error, got %v", err)
	}
}

func TestLiveGetBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode rpc request: %v", err)
		}

		switch req.Method {
		case "getBalance":
			// 2.5 SOL in lamports
			w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"value":2500000000}}`))
		case "getTokenAccountsByOwner":
			w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"value":[
				{"account":{"data":{"parsed":{"info":{"tokenAmount":{"uiAmount":120.5}}}}}},
				{"account":{"data":{"parsed":{"info":{"tokenAmount":{"uiAmount":30.25}}}}}}
			]}}`))
		default:
			t.Errorf("unexpected rpc method %s", req.Method)
		}
	}))
	defer server.Close()

	backend := newLiveBackend("", "", server.URL)

	sol, err := backend.GetBalance(context.Background(), "SOL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(sol-2.5) > 1e-9 {
		t.Errorf("expected 2.5 SOL, got %f", sol)
	}

	// SPL balances sum across token accounts
	usdc, err := backend.GetBalance(context.Background(), "USDC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(usdc-150.75) > 1e-9 {
		t.Errorf("expected 150.75 USDC, got %f", usdc)
	}
}

func TestLiveGetBalanceRPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"message":"node is behind"}}`))
	}))
	defer server.Close()

	backend := newLiveBackend("", "", server.URL)

	_, err := backend.GetBalance(context.Background(), "SOL")
	if err == nil || !strings.Contains(err.Error(), "node is behind") {
		t.Fatalf("expected rpc error, got %v", err)
	}
}

func TestAtomicConversions(t *testing.T) {
	tests := []struct {
		amount   float64
		decimals int
		atomic   uint64
	}{
		{1.0, 9, 1000000000},
		{250.0, 6, 250000000},
		{0.000001, 6, 1},
		{1.5, 0, 2}, // rounds
	}

	for _, tt := range tests {
		if got := toAtomic(tt.amount, tt.decimals); got != tt.atomic {
			t.Errorf("toAtomic(%f, %d) = %d, want %d", tt.amount, tt.decimals, got, tt.atomic)
		}
	}

	if got := fromAtomic(1500000, 6); got != 1.5 {
		t.Errorf("fromAtomic = %f, want 1.5", got)
	}
}
