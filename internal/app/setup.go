package app

import (
	"context"
	"fmt"

	"github.com/solarb/solana-arb/internal/arbitrage"
	"github.com/solarb/solana-arb/internal/circuitbreaker"
	"github.com/solarb/solana-arb/internal/execution"
	"github.com/solarb/solana-arb/internal/feed"
	"github.com/solarb/solana-arb/internal/storage"
	"github.com/solarb/solana-arb/pkg/cache"
	"github.com/solarb/solana-arb/pkg/config"
	"github.com/solarb/solana-arb/pkg/healthprobe"
	"github.com/solarb/solana-arb/pkg/httpserver"
	"github.com/solarb/solana-arb/pkg/types"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	catalog, err := config.LoadVenueCatalog(cfg.VenueCatalogPath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("load venue catalog: %w", err)
	}

	costModel := arbitrage.NewCostModel(catalog)
	detector := setupDetector(cfg, logger, costModel)
	feedManager := setupFeed(cfg, logger, catalog)
	stream := setupStream(cfg, logger, feedManager)

	backend, err := setupBackend(cfg, logger, catalog, feedManager)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup backend: %w", err)
	}

	executor := setupExecutor(cfg, logger, backend, costModel, opts)

	breaker, err := setupBreaker(cfg, logger, backend, executor)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup circuit breaker: %w", err)
	}

	tradeStorage, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	a := &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		feedManager:   feedManager,
		stream:        stream,
		detector:      detector,
		backend:       backend,
		executor:      executor,
		breaker:       breaker,
		storage:       tradeStorage,
		ctx:           ctx,
		cancel:        cancel,
	}
	a.tradingEnabled.Store(cfg.TradingEnabled)

	// The HTTP server serves the app's own status snapshots.
	a.httpServer = httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Status:        a,
	})

	// Every sample flows into price history and out to subscribers.
	feedManager.Subscribe(func(sample *types.PriceSample) {
		detector.UpdatePrices(sample)
		a.notifyPriceUpdate(sample)
	})

	a.AddSubscriber(NewLoggingSubscriber(logger))

	return a, nil
}

func setupDetector(cfg *config.Config, logger *zap.Logger, costs *arbitrage.CostModel) *arbitrage.Detector {
	return arbitrage.New(arbitrage.Config{
		MinProfitPct:       cfg.MinProfitPct,
		MaxExposurePct:     cfg.MaxExposurePct,
		MinSamples:         cfg.MinSamples,
		CooldownPeriod:     cfg.CooldownPeriod,
		MaxPriceHistory:    cfg.MaxPriceHistory,
		MaxTradeHistory:    cfg.MaxTradeHistory,
		RequireObservedLeg: cfg.RequireObservedLeg,
		Tokens:             cfg.Tokens,
		Venues:             cfg.FeedVenues,
		Logger:             logger,
	}, costs)
}

func setupFeed(cfg *config.Config, logger *zap.Logger, catalog *config.VenueCatalog) *feed.Manager {
	sources := map[string]feed.Source{}
	for _, venue := range cfg.FeedVenues {
		if venue == "jupiter" {
			sources[venue] = feed.NewJupiterSource(cfg.JupiterQuoteURL, catalog, cfg.FeedFetchTimeout)
		}
	}

	pairs := make([]types.Pair, 0, len(cfg.Tokens))
	for _, token := range cfg.Tokens {
		if token == cfg.QuoteToken {
			continue
		}
		pairs = append(pairs, types.Pair{Base: token, Quote: cfg.QuoteToken})
	}

	return feed.New(&feed.Config{
		PollInterval:   cfg.FeedPollInterval,
		FetchTimeout:   cfg.FeedFetchTimeout,
		Venues:         cfg.FeedVenues,
		ReferenceVenue: cfg.ReferenceVenue,
		Pairs:          pairs,
		Catalog:        catalog,
		Sources:        sources,
		Logger:         logger,
	})
}

func setupStream(cfg *config.Config, logger *zap.Logger, feedManager *feed.Manager) *feed.Stream {
	if !cfg.StreamEnabled {
		return nil
	}

	return feed.NewStream(&feed.StreamConfig{
		URL:         cfg.StreamURL,
		Venue:       cfg.ReferenceVenue,
		DialTimeout: cfg.StreamDialTimeout,
		ReadTimeout: cfg.StreamReadTimeout,
		Publish:     feedManager.Ingest,
		Logger:      logger,
	})
}

func setupBackend(
	cfg *config.Config,
	logger *zap.Logger,
	catalog *config.VenueCatalog,
	feedManager *feed.Manager,
) (execution.Backend, error) {
	if cfg.TradingMode == "live" {
		balanceCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
			NumCounters: 1000,
			MaxCost:     100,
			BufferItems: 64,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create balance cache: %w", err)
		}

		return execution.NewLiveBackend(&execution.LiveConfig{
			QuoteURL:      cfg.JupiterQuoteURL,
			SwapURL:       cfg.JupiterSwapURL,
			RPCURL:        cfg.SolanaRPCURL,
			WalletAddress: cfg.WalletAddress,
			Catalog:       catalog,
			Timeout:       cfg.SwapTimeout,
			BalanceCache:  balanceCache,
			Logger:        logger,
		}), nil
	}

	spot := func(base, quote string) (float64, bool) {
		sample, err := feedManager.GetCurrentPrice(
			context.Background(),
			cfg.ReferenceVenue,
			types.Pair{Base: base, Quote: quote},
		)
		if err != nil {
			return 0, false
		}
		return sample.Price, true
	}

	return execution.NewPaperBackend(cfg.QuoteToken, cfg.PaperBalance, spot, logger), nil
}

func setupExecutor(
	cfg *config.Config,
	logger *zap.Logger,
	backend execution.Backend,
	costs *arbitrage.CostModel,
	opts *Options,
) *execution.Executor {
	if opts.DetectOnly {
		logger.Info("executor-disabled-detect-only",
			zap.String("note", "opportunities will be detected and logged only"))
		return nil
	}

	return execution.NewExecutor(&execution.Config{
		QuoteToken:     cfg.QuoteToken,
		MaxSlippagePct: cfg.MaxSlippagePct,
		MinTradeAmount: cfg.MinTradeAmount,
		QuoteRetries:   cfg.QuoteRetries,
		Backend:        backend,
		Costs:          costs,
		Logger:         logger,
	})
}

func setupBreaker(
	cfg *config.Config,
	logger *zap.Logger,
	backend execution.Backend,
	executor *execution.Executor,
) (*circuitbreaker.BalanceCircuitBreaker, error) {
	if !cfg.CircuitBreakerEnabled || executor == nil {
		return nil, nil
	}

	return circuitbreaker.New(&circuitbreaker.Config{
		CheckInterval:   cfg.CircuitBreakerCheckInterval,
		TradeMultiplier: cfg.CircuitBreakerTradeMultiplier,
		MinAbsolute:     cfg.CircuitBreakerMinAbsolute,
		HysteresisRatio: cfg.CircuitBreakerHysteresisRatio,
		Balances:        backend,
		Token:           cfg.QuoteToken,
		Logger:          logger,
	})
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	}

	return storage.NewConsoleStorage(logger), nil
}
