package storage

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/solarb/solana-arb/internal/arbitrage"
	"github.com/solarb/solana-arb/pkg/types"
	"go.uber.org/zap"
)

func sampleOpportunity() *arbitrage.Opportunity {
	pair := types.Pair{Base: "SOL", Quote: "USDC"}
	return arbitrage.NewOpportunity(pair, "raydium", 149.80, "orca", 150.40, 0.40, 0.12)
}

func sampleTrade(success bool, terr *types.TradeError) *types.TradeRecord {
	return &types.TradeRecord{
		ID:             "0d9f2c6a-9a41-4a7f-8a2e-3f1b7c5d9e01",
		Timestamp:      time.Now(),
		Pair:           types.Pair{Base: "SOL", Quote: "USDC"},
		BuyVenue:       "raydium",
		SellVenue:      "orca",
		TradeAmount:    250,
		BuyPrice:       149.80,
		SellPrice:      150.40,
		RealizedProfit: 0.31,
		Success:        success,
		Error:          terr,
	}
}

// captureStdout redirects stdout for the duration of fn and returns what
// was written.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read pipe: %v", err)
	}
	return string(out)
}

func TestConsoleStoreOpportunity(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	store := NewConsoleStorage(logger)
	opp := sampleOpportunity()

	out := captureStdout(t, func() {
		err := store.StoreOpportunity(context.Background(), opp)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	for _, want := range []string{
		"ARBITRAGE OPPORTUNITY DETECTED",
		"SOL/USDC",
		"raydium",
		"orca",
		opp.ID[:8],
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConsoleStoreTrade(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	store := NewConsoleStorage(logger)

	t.Run("success", func(t *testing.T) {
		out := captureStdout(t, func() {
			err := store.StoreTrade(context.Background(), sampleTrade(true, nil))
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
		if !strings.Contains(out, "TRADE SETTLED") {
			t.Errorf("expected settled banner:\n%s", out)
		}
	})

	t.Run("failure-with-error", func(t *testing.T) {
		terr := types.NewInsufficientFunds("USDC", 3.2)
		out := captureStdout(t, func() {
			err := store.StoreTrade(context.Background(), sampleTrade(false, terr))
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
		if !strings.Contains(out, "TRADE FAILED") {
			t.Errorf("expected failed banner:\n%s", out)
		}
		if !strings.Contains(out, "insufficient_funds") {
			t.Errorf("expected error detail:\n%s", out)
		}
	})
}

func TestPostgresStoreOpportunity(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	logger, _ := zap.NewDevelopment()
	store := &PostgresStorage{db: db, logger: logger}
	opp := sampleOpportunity()

	mock.ExpectExec("INSERT INTO arbitrage_opportunities").
		WithArgs(
			opp.ID,
			"SOL/USDC",
			opp.BuyVenue,
			opp.BuyPrice,
			opp.SellVenue,
			opp.SellPrice,
			opp.GrossProfitPct,
			opp.NetProfitPct,
			opp.BuyDerived,
			opp.SellDerived,
			opp.DetectedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := store.StoreOpportunity(context.Background(), opp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreTrade(t *testing.T) {
	tests := []struct {
		name        string
		record      *types.TradeRecord
		wantKind    interface{}
		wantMessage interface{}
	}{
		{
			name:        "success-null-error-columns",
			record:      sampleTrade(true, nil),
			wantKind:    nil,
			wantMessage: nil,
		},
		{
			name:        "failure-error-columns-populated",
			record:      sampleTrade(false, types.NewRealizedLoss(-1.2)),
			wantKind:    "realized_loss",
			wantMessage: "trade executed but settled at a loss",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("sqlmock: %v", err)
			}
			defer db.Close()

			logger, _ := zap.NewDevelopment()
			store := &PostgresStorage{db: db, logger: logger}

			mock.ExpectExec("INSERT INTO trades").
				WithArgs(
					tt.record.ID,
					tt.record.Timestamp,
					"SOL/USDC",
					tt.record.BuyVenue,
					tt.record.SellVenue,
					tt.record.TradeAmount,
					tt.record.BuyPrice,
					tt.record.SellPrice,
					tt.record.RealizedProfit,
					tt.record.Success,
					tt.wantKind,
					tt.wantMessage,
				).
				WillReturnResult(sqlmock.NewResult(1, 1))

			if err := store.StoreTrade(context.Background(), tt.record); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}

func TestPostgresStoreTradeError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	logger, _ := zap.NewDevelopment()
	store := &PostgresStorage{db: db, logger: logger}

	mock.ExpectExec("INSERT INTO trades").
		WillReturnError(io.ErrUnexpectedEOF)

	if err := store.StoreTrade(context.Background(), sampleTrade(true, nil)); err == nil {
		t.Fatal("expected insert error to propagate")
	}
}
