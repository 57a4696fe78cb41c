package execution

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/solarb/solana-arb/internal/arbitrage"
	"github.com/solarb/solana-arb/internal/testutil"
	"github.com/solarb/solana-arb/pkg/config"
	"github.com/solarb/solana-arb/pkg/types"
	"go.uber.org/zap"
)

func testOpportunity() *arbitrage.Opportunity {
	pair := types.Pair{Base: "SOL", Quote: "USDC"}
	// gross 1.0%, net 0.5% -> confidence 0.25 -> 2.5% exposure
	return arbitrage.NewOpportunity(pair, "raydium", 100.00, "orca", 101.00, 1.0, 0.5)
}

func newTestExecutor(backend Backend) *Executor {
	logger, _ := zap.NewDevelopment()
	return NewExecutor(&Config{
		QuoteToken:     "USDC",
		MaxSlippagePct: 1.0,
		MinTradeAmount: 5.0,
		QuoteRetries:   3,
		Backend:        backend,
		Costs:          arbitrage.NewCostModel(config.DefaultVenueCatalog()),
		Logger:         logger,
	})
}

func TestExecuteInsufficientFunds(t *testing.T) {
	tests := []struct {
		name    string
		balance float64
		balErr  error
	}{
		{"zero-balance", 0, nil},
		{"floored-above-balance", 3, nil}, // floored to min 5 > balance 3
		{"balance-read-failure", 0, errors.New("rpc timeout")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &testutil.MockBackend{
				IsSimulated: true,
				BalanceFunc: func(ctx context.Context, token string) (float64, error) {
					return tt.balance, tt.balErr
				},
			}
			executor := newTestExecutor(backend)

			result := executor.Execute(context.Background(), testOpportunity(), 30.0)

			if result.Success {
				t.Fatal("expected failure")
			}
			if result.Err == nil || result.Err.Kind != types.ErrKindInsufficientFunds {
				t.Fatalf("expected insufficient_funds, got %v", result.Err)
			}
			if backend.SwapCalls != 0 {
				t.Errorf("expected no swap submissions, got %d", backend.SwapCalls)
			}
		})
	}
}

func TestExecuteFloorsSmallPositionToMinTrade(t *testing.T) {
	backend := &testutil.MockBackend{
		IsSimulated: true,
		BalanceFunc: func(ctx context.Context, token string) (float64, error) {
			return 100, nil
		},
	}
	executor := newTestExecutor(backend)

	// 2.5% exposure of 100 computes to 2.50; the trade runs at the 5.00
	// minimum instead of being skipped.
	result := executor.Execute(context.Background(), testOpportunity(), 30.0)

	if !result.Success {
		t.Fatalf("expected success, got %v", result.Err)
	}
	if math.Abs(result.TradeAmount-5.0) > 1e-9 {
		t.Errorf("expected trade amount floored to 5, got %f", result.TradeAmount)
	}
	if backend.SwapCalls != 2 {
		t.Errorf("expected both legs submitted, got %d", backend.SwapCalls)
	}
	if math.Abs(backend.Submissions[0].InAmount-5.0) > 1e-9 {
		t.Errorf("buy leg sized at %f, expected 5", backend.Submissions[0].InAmount)
	}
}

func TestExecutePaperTrade(t *testing.T) {
	backend := &testutil.MockBackend{
		IsSimulated: true,
		BalanceFunc: func(ctx context.Context, token string) (float64, error) {
			return 10000, nil
		},
	}
	executor := newTestExecutor(backend)

	opp := testOpportunity()
	result := executor.Execute(context.Background(), opp, 30.0)

	if !result.Success {
		t.Fatalf("expected success, got %v", result.Err)
	}

	// confidence 0.25 -> exposure 2.5% of 10000 = 250
	if math.Abs(result.TradeAmount-250.0) > 1e-9 {
		t.Errorf("expected trade amount 250, got %f", result.TradeAmount)
	}
	if backend.SwapCalls != 2 {
		t.Fatalf("expected 2 swap submissions, got %d", backend.SwapCalls)
	}

	buy := backend.Submissions[0]
	if buy.InToken != "USDC" || buy.OutToken != "SOL" {
		t.Errorf("buy leg tokens wrong: %s -> %s", buy.InToken, buy.OutToken)
	}

	// Synthetic fill: 250/100 * (1 - 0.0022) * (1 - 0.00025)
	wantOut := 250.0 / 100.0 * (1 - 0.22/100) * (1 - 0.025/100)
	if math.Abs(buy.OutAmount-wantOut) > 1e-9 {
		t.Errorf("expected buy out %f, got %f", wantOut, buy.OutAmount)
	}

	sell := backend.Submissions[1]
	if sell.InToken != "SOL" || sell.OutToken != "USDC" {
		t.Errorf("sell leg tokens wrong: %s -> %s", sell.InToken, sell.OutToken)
	}
	if math.Abs(sell.InAmount-wantOut) > 1e-9 {
		t.Errorf("sell leg sized at %f, expected buy delivery %f", sell.InAmount, wantOut)
	}

	if result.RealizedProfit <= 0 {
		t.Errorf("expected positive realized profit, got %f", result.RealizedProfit)
	}
	record := result.Record()
	if record.ID != opp.ID || !record.Success {
		t.Errorf("record mismatch: %+v", record)
	}
}

func TestExecuteExcessiveSlippage(t *testing.T) {
	backend := &testutil.MockBackend{
		IsSimulated: false,
		BalanceFunc: func(ctx context.Context, token string) (float64, error) {
			return 10000, nil
		},
		QuoteFunc: func(ctx context.Context, inToken, outToken string, amount float64) (*types.Quote, error) {
			// 5% worse than the spot-implied expectation
			return &types.Quote{
				InToken:   inToken,
				OutToken:  outToken,
				InAmount:  amount,
				OutAmount: amount / 100.0 * 0.95,
			}, nil
		},
	}
	executor := newTestExecutor(backend)

	result := executor.Execute(context.Background(), testOpportunity(), 30.0)

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Err == nil || result.Err.Kind != types.ErrKindExcessiveSlippage {
		t.Fatalf("expected excessive_slippage, got %v", result.Err)
	}
	if backend.SwapCalls != 0 {
		t.Errorf("slippage must be rejected before submission, got %d swaps", backend.SwapCalls)
	}
}

func TestExecuteBuyFailure(t *testing.T) {
	backend := &testutil.MockBackend{
		IsSimulated: true,
		BalanceFunc: func(ctx context.Context, token string) (float64, error) {
			return 10000, nil
		},
		SwapFunc: func(ctx context.Context, quote *types.Quote) (*types.SwapResult, error) {
			return nil, errors.New("transaction simulation failed")
		},
	}
	executor := newTestExecutor(backend)

	result := executor.Execute(context.Background(), testOpportunity(), 30.0)

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Err == nil || result.Err.Kind != types.ErrKindBuyFailed {
		t.Fatalf("expected buy_failed, got %v", result.Err)
	}
	if backend.SwapCalls != 1 {
		t.Errorf("expected exactly the buy submission, got %d", backend.SwapCalls)
	}
}

func TestExecuteSellFailureRetainsBuyState(t *testing.T) {
	backend := &testutil.MockBackend{
		IsSimulated: true,
		BalanceFunc: func(ctx context.Context, token string) (float64, error) {
			return 10000, nil
		},
	}
	backend.SwapFunc = func(ctx context.Context, quote *types.Quote) (*types.SwapResult, error) {
		if quote.OutToken == "SOL" {
			return &types.SwapResult{
				Signature: "buy-sig",
				InToken:   quote.InToken,
				OutToken:  quote.OutToken,
				InAmount:  quote.InAmount,
				OutAmount: quote.OutAmount,
				Confirmed: true,
			}, nil
		}
		return nil, errors.New("blockhash expired")
	}
	executor := newTestExecutor(backend)

	result := executor.Execute(context.Background(), testOpportunity(), 30.0)

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Err == nil || result.Err.Kind != types.ErrKindSellFailed {
		t.Fatalf("expected sell_failed, got %v", result.Err)
	}

	// The buy leg already moved funds; its result must survive for the
	// operator to reconcile.
	if result.Err.BuyResult == nil || result.Err.BuyResult.Signature != "buy-sig" {
		t.Errorf("expected retained buy result, got %+v", result.Err.BuyResult)
	}
	if result.BuyResult == nil {
		t.Error("expected buy result on the trade result as well")
	}
}

func TestExecuteSellUnconfirmedRetainsSellState(t *testing.T) {
	backend := &testutil.MockBackend{
		IsSimulated: true,
		BalanceFunc: func(ctx context.Context, token string) (float64, error) {
			return 10000, nil
		},
	}
	backend.SwapFunc = func(ctx context.Context, quote *types.Quote) (*types.SwapResult, error) {
		res := &types.SwapResult{
			Signature: "buy-sig",
			InToken:   quote.InToken,
			OutToken:  quote.OutToken,
			InAmount:  quote.InAmount,
			OutAmount: quote.OutAmount,
			Confirmed: true,
		}
		if quote.OutToken == "SOL" {
			return res, nil
		}
		// Submitted but never confirmed: the backend hands back the
		// partial result alongside the error.
		res.Signature = "sell-sig"
		res.Confirmed = false
		res.OutAmount = 0
		return res, errors.New("swap submitted but not confirmed: sell-sig")
	}
	executor := newTestExecutor(backend)

	result := executor.Execute(context.Background(), testOpportunity(), 30.0)

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Err == nil || result.Err.Kind != types.ErrKindSellFailed {
		t.Fatalf("expected sell_failed, got %v", result.Err)
	}
	if result.SellResult == nil || result.SellResult.Signature != "sell-sig" {
		t.Errorf("expected retained sell result for reconciliation, got %+v", result.SellResult)
	}
	if result.SellResult != nil && result.SellResult.Confirmed {
		t.Error("retained sell result must be unconfirmed")
	}
}

func TestExecuteRealizedLoss(t *testing.T) {
	backend := &testutil.MockBackend{
		IsSimulated: true,
		BalanceFunc: func(ctx context.Context, token string) (float64, error) {
			return 10000, nil
		},
		SwapFunc: func(ctx context.Context, quote *types.Quote) (*types.SwapResult, error) {
			out := quote.OutAmount
			if quote.OutToken == "USDC" {
				out = quote.InAmount * 90 // fill far below quote
			}
			return &types.SwapResult{
				Signature: "sig",
				InToken:   quote.InToken,
				OutToken:  quote.OutToken,
				InAmount:  quote.InAmount,
				OutAmount: out,
				Confirmed: true,
			}, nil
		},
	}
	executor := newTestExecutor(backend)

	result := executor.Execute(context.Background(), testOpportunity(), 30.0)

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Err == nil || result.Err.Kind != types.ErrKindRealizedLoss {
		t.Fatalf("expected realized_loss, got %v", result.Err)
	}
	if result.RealizedProfit >= 0 {
		t.Errorf("expected negative realized profit, got %f", result.RealizedProfit)
	}
	if record := result.Record(); record.Success {
		t.Error("loss trade must be recorded as failed")
	}
}

func TestExecuteQuoteRetryExhaustion(t *testing.T) {
	backend := &testutil.MockBackend{
		IsSimulated: false,
		BalanceFunc: func(ctx context.Context, token string) (float64, error) {
			return 10000, nil
		},
		QuoteFunc: func(ctx context.Context, inToken, outToken string, amount float64) (*types.Quote, error) {
			return nil, fmt.Errorf("quote api: 503")
		},
	}
	executor := newTestExecutor(backend)

	result := executor.Execute(context.Background(), testOpportunity(), 30.0)

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Err == nil || result.Err.Kind != types.ErrKindTransientNetwork {
		t.Fatalf("expected transient_network, got %v", result.Err)
	}
	if backend.QuoteCalls != 3 {
		t.Errorf("expected 3 quote attempts, got %d", backend.QuoteCalls)
	}
}

func TestExecuteMissingAssetMappingSkipsRetries(t *testing.T) {
	backend := &testutil.MockBackend{
		IsSimulated: false,
		BalanceFunc: func(ctx context.Context, token string) (float64, error) {
			return 10000, nil
		},
		QuoteFunc: func(ctx context.Context, inToken, outToken string, amount float64) (*types.Quote, error) {
			return nil, types.NewMissingAssetMapping(outToken)
		},
	}
	executor := newTestExecutor(backend)

	result := executor.Execute(context.Background(), testOpportunity(), 30.0)

	if result.Err == nil || result.Err.Kind != types.ErrKindMissingAssetMapping {
		t.Fatalf("expected missing_asset_mapping, got %v", result.Err)
	}
	if backend.QuoteCalls != 1 {
		t.Errorf("permanent failure must not retry, got %d attempts", backend.QuoteCalls)
	}
}

func TestPositionSizeCappedByExposure(t *testing.T) {
	backend := &testutil.MockBackend{IsSimulated: true}
	executor := newTestExecutor(backend)

	tests := []struct {
		name       string
		balance    float64
		confidence float64
		maxPct     float64
		want       float64
	}{
		{"confidence-scaled", 10000, 0.25, 30.0, 250},
		{"ceiling-applies", 10000, 3.0, 30.0, 3000},
		{"tightened-ceiling", 10000, 3.0, 10.0, 1000},
		{"zero-balance", 0, 1.0, 30.0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := executor.positionSize(tt.balance, tt.confidence, tt.maxPct)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
		})
	}
}
