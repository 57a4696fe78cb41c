package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/solarb/solana-arb/internal/execution"
	"github.com/solarb/solana-arb/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Check wallet balances",
	Long: `Display the configured wallet's balances for every token in the
venue catalog. Requires SOLANA_WALLET_ADDRESS.`,
	RunE: runBalance,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().DurationP("timeout", "t", 30*time.Second, "Total timeout for all balance queries")
}

func runBalance(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.WalletAddress == "" {
		return fmt.Errorf("SOLANA_WALLET_ADDRESS not set")
	}

	logger, err := config.NewLogger("warn")
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	catalog, err := config.LoadVenueCatalog(cfg.VenueCatalogPath)
	if err != nil {
		return fmt.Errorf("load venue catalog: %w", err)
	}

	backend := execution.NewLiveBackend(&execution.LiveConfig{
		QuoteURL:      cfg.JupiterQuoteURL,
		SwapURL:       cfg.JupiterSwapURL,
		RPCURL:        cfg.SolanaRPCURL,
		WalletAddress: cfg.WalletAddress,
		Catalog:       catalog,
		Logger:        logger,
	})
	defer func() {
		_ = backend.Close()
	}()

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fmt.Printf("Wallet: %s\n\n", cfg.WalletAddress)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TOKEN\tBALANCE")

	for token := range catalog.TokenMints {
		balance, balErr := backend.GetBalance(ctx, token)
		if balErr != nil {
			fmt.Fprintf(w, "%s\t(error: %v)\n", token, balErr)
			continue
		}
		fmt.Fprintf(w, "%s\t%.6f\n", token, balance)
	}

	return w.Flush()
}
