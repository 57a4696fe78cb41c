package storage

import (
	"context"
	"fmt"

	"github.com/solarb/solana-arb/internal/arbitrage"
	"github.com/solarb/solana-arb/pkg/types"
	"go.uber.org/zap"
)

const consoleRule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// ConsoleStorage implements Storage by pretty-printing to console.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		logger: logger,
	}
}

// StoreOpportunity pretty-prints an arbitrage opportunity to console.
func (c *ConsoleStorage) StoreOpportunity(ctx context.Context, opp *arbitrage.Opportunity) error {
	fmt.Println("\n" + consoleRule)
	fmt.Printf("🎯 ARBITRAGE OPPORTUNITY DETECTED\n")
	fmt.Println(consoleRule)
	fmt.Printf("ID:       %s\n", opp.ID[:8])
	fmt.Printf("Pair:     %s\n", opp.Pair)
	fmt.Printf("Time:     %s\n", opp.DetectedAt.Format("2006-01-02 15:04:05"))
	fmt.Println(consoleRule)
	fmt.Printf("📊 PRICES\n")
	fmt.Printf("  Buy:   %s @ %.6f%s\n", opp.BuyVenue, opp.BuyPrice, derivedTag(opp.BuyDerived))
	fmt.Printf("  Sell:  %s @ %.6f%s\n", opp.SellVenue, opp.SellPrice, derivedTag(opp.SellDerived))
	fmt.Println(consoleRule)
	fmt.Printf("💰 PROFIT ANALYSIS\n")
	fmt.Printf("  Gross Spread:    %.4f%%\n", opp.GrossProfitPct)
	fmt.Printf("  Net (after costs): %.4f%%\n", opp.NetProfitPct)
	fmt.Printf("  Confidence:      %.2f\n", opp.Confidence())
	fmt.Println(consoleRule)

	return nil
}

// StoreTrade pretty-prints a settled trade to console.
func (c *ConsoleStorage) StoreTrade(ctx context.Context, record *types.TradeRecord) error {
	fmt.Println("\n" + consoleRule)
	if record.Success {
		fmt.Printf("✅ TRADE SETTLED\n")
	} else {
		fmt.Printf("❌ TRADE FAILED\n")
	}
	fmt.Println(consoleRule)
	fmt.Printf("ID:       %s\n", record.ID[:8])
	fmt.Printf("Pair:     %s\n", record.Pair)
	fmt.Printf("Route:    buy %s @ %.6f, sell %s @ %.6f\n",
		record.BuyVenue, record.BuyPrice, record.SellVenue, record.SellPrice)
	fmt.Printf("Size:     %.2f\n", record.TradeAmount)
	fmt.Printf("Realized: %+.4f\n", record.RealizedProfit)
	if record.Error != nil {
		fmt.Printf("Error:    %s\n", record.Error.Error())
	}
	fmt.Println(consoleRule)

	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}

func derivedTag(derived bool) string {
	if derived {
		return " (derived)"
	}
	return ""
}
