package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/solarb/solana-arb/internal/feed"
	"github.com/solarb/solana-arb/pkg/config"
	"github.com/solarb/solana-arb/pkg/types"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var watchPricesCmd = &cobra.Command{
	Use:   "watch-prices <pair>",
	Short: "Watch live venue prices for a pair",
	Long: `Polls venue prices for one pair and prints each sample as it arrives.
Useful for verifying feed connectivity and derived-price offsets.

Example:
  solana-arb watch-prices SOL/USDC`,
	Args: cobra.ExactArgs(1),
	RunE: runWatchPrices,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(watchPricesCmd)
	watchPricesCmd.Flags().BoolP("json", "j", false, "Output samples as JSON lines")
}

func runWatchPrices(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	pair, err := types.ParsePair(args[0])
	if err != nil {
		return err
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
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

	jsonOutput, _ := cmd.Flags().GetBool("json")

	sources := map[string]feed.Source{
		"jupiter": feed.NewJupiterSource(cfg.JupiterQuoteURL, catalog, cfg.FeedFetchTimeout),
	}

	manager := feed.New(&feed.Config{
		PollInterval:   cfg.FeedPollInterval,
		FetchTimeout:   cfg.FeedFetchTimeout,
		Venues:         cfg.FeedVenues,
		ReferenceVenue: cfg.ReferenceVenue,
		Pairs:          []types.Pair{pair},
		Catalog:        catalog,
		Sources:        sources,
		Logger:         logger,
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if !jsonOutput {
		fmt.Fprintln(w, "TIME\tVENUE\tPAIR\tPRICE\tDERIVED")
		w.Flush()
	}

	manager.Subscribe(func(sample *types.PriceSample) {
		if jsonOutput {
			line, marshalErr := json.Marshal(map[string]interface{}{
				"time":    sample.ObservedAt.Format("15:04:05"),
				"venue":   sample.Venue,
				"pair":    sample.Pair.String(),
				"price":   sample.Price,
				"derived": sample.Derived,
			})
			if marshalErr == nil {
				fmt.Println(string(line))
			}
			return
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%.6f\t%v\n",
			sample.ObservedAt.Format("15:04:05"),
			sample.Venue,
			sample.Pair,
			sample.Price,
			sample.Derived)
		w.Flush()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = manager.Start(ctx)
	if err != nil {
		return fmt.Errorf("start feed: %w", err)
	}

	fmt.Printf("Watching %s on %v (Ctrl+C to stop)\n\n", pair, cfg.FeedVenues)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	manager.Stop()
	return nil
}
