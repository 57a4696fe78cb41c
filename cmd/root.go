package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "solana-arb",
	Short: "Solana cross-venue arbitrage engine",
	Long: `Solana arbitrage engine that polls prices across DEX venues,
detects cross-venue discrepancies that clear fees, slippage and drift,
and executes two-leg trades in paper or live mode.

Prices are aggregated through the Jupiter quote API with per-venue
derivation for venues without a direct feed. Every settled trade feeds
back into the strategy: failures tighten the profit threshold.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	// Flags can be added here if needed
}
