package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/solarb/solana-arb/internal/app"
	"github.com/solarb/solana-arb/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the arbitrage engine",
	Long: `Starts the Solana arbitrage engine, which will:
1. Poll venue prices on a fixed interval
2. Detect cross-venue spreads that clear estimated execution costs
3. Execute two-leg trades through the configured backend
4. Tighten the profit threshold after every failed trade

Use --detect-only to log opportunities without trading.`,
	RunE: runEngine,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolP("detect-only", "d", false, "Detect and log opportunities without executing trades")
	runCmd.Flags().StringP("mode", "m", "", "Override trading mode (paper or live)")
	runCmd.Flags().Bool("trading-enabled", true, "Start with trade execution enabled")
}

func runEngine(cmd *cobra.Command, args []string) error {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
		cfg.TradingMode = mode
	}
	if cmd.Flags().Changed("trading-enabled") {
		cfg.TradingEnabled, _ = cmd.Flags().GetBool("trading-enabled")
	}
	err = cfg.Validate()
	if err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	detectOnly, _ := cmd.Flags().GetBool("detect-only")

	application, err := app.New(cfg, logger, &app.Options{
		DetectOnly: detectOnly,
	})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
