package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Trading
	TradingMode    string // "paper" or "live"
	TradingEnabled bool
	BaseToken      string
	QuoteToken     string
	Tokens         []string // tokens considered for pair enumeration
	PaperBalance   float64  // quote-asset balance seeded in paper mode

	// Price feeds
	FeedPollInterval  time.Duration
	FeedFetchTimeout  time.Duration
	FeedVenues        []string
	ReferenceVenue    string
	StreamEnabled     bool
	StreamURL         string
	StreamDialTimeout time.Duration
	StreamReadTimeout time.Duration

	// Venue catalog
	VenueCatalogPath string // optional YAML overriding built-in venue data

	// Arbitrage detection
	MinProfitPct       float64 // percent, e.g. 0.5 means 0.5%
	MaxExposurePct     float64
	MinSamples         int
	CooldownPeriod     time.Duration
	MaxPriceHistory    int
	MaxTradeHistory    int
	RequireObservedLeg bool

	// Execution
	MaxSlippagePct  float64
	MinTradeAmount  float64
	QuoteRetries    int
	QuoteTimeout    time.Duration
	SwapTimeout     time.Duration
	JupiterQuoteURL string
	JupiterSwapURL  string
	SolanaRPCURL    string
	WalletAddress   string // public key only; signing is the swap service's concern

	// Circuit breaker
	CircuitBreakerEnabled         bool
	CircuitBreakerCheckInterval   time.Duration
	CircuitBreakerTradeMultiplier float64
	CircuitBreakerMinAbsolute     float64
	CircuitBreakerHysteresisRatio float64

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Trading defaults
		TradingMode:    getEnvOrDefault("TRADING_MODE", "paper"),
		TradingEnabled: getBoolOrDefault("TRADING_ENABLED", true),
		BaseToken:      getEnvOrDefault("TRADING_BASE_TOKEN", "SOL"),
		QuoteToken:     getEnvOrDefault("TRADING_QUOTE_TOKEN", "USDC"),
		Tokens:         getListOrDefault("TRADING_TOKENS", []string{"SOL", "USDC", "USDT", "RAY", "MNGO", "SBR", "ORCA"}),
		PaperBalance:   getFloat64OrDefault("TRADING_PAPER_BALANCE", 10000.0),

		// Price feed defaults
		FeedPollInterval:  getDurationOrDefault("FEED_POLL_INTERVAL", 10*time.Second),
		FeedFetchTimeout:  getDurationOrDefault("FEED_FETCH_TIMEOUT", 5*time.Second),
		FeedVenues:        getListOrDefault("FEED_VENUES", []string{"jupiter", "raydium", "orca", "openbook", "meteora", "phoenix"}),
		ReferenceVenue:    getEnvOrDefault("FEED_REFERENCE_VENUE", "jupiter"),
		StreamEnabled:     getBoolOrDefault("FEED_STREAM_ENABLED", false),
		StreamURL:         getEnvOrDefault("FEED_STREAM_URL", ""),
		StreamDialTimeout: getDurationOrDefault("FEED_STREAM_DIAL_TIMEOUT", 10*time.Second),
		StreamReadTimeout: getDurationOrDefault("FEED_STREAM_READ_TIMEOUT", 30*time.Second),

		VenueCatalogPath: os.Getenv("VENUE_CATALOG_PATH"),

		// Arbitrage defaults
		MinProfitPct:       getFloat64OrDefault("ARB_MIN_PROFIT_PCT", 0.5),
		MaxExposurePct:     getFloat64OrDefault("ARB_MAX_EXPOSURE_PCT", 30.0),
		MinSamples:         getIntOrDefault("ARB_MIN_SAMPLES", 10),
		CooldownPeriod:     getDurationOrDefault("ARB_COOLDOWN_PERIOD", 5*time.Minute),
		MaxPriceHistory:    getIntOrDefault("ARB_MAX_PRICE_HISTORY", 100),
		MaxTradeHistory:    getIntOrDefault("ARB_MAX_TRADE_HISTORY", 100),
		RequireObservedLeg: getBoolOrDefault("ARB_REQUIRE_OBSERVED_LEG", true),

		// Execution defaults
		MaxSlippagePct:  getFloat64OrDefault("EXEC_MAX_SLIPPAGE_PCT", 1.0),
		MinTradeAmount:  getFloat64OrDefault("EXEC_MIN_TRADE_AMOUNT", 5.0),
		QuoteRetries:    getIntOrDefault("EXEC_QUOTE_RETRIES", 3),
		QuoteTimeout:    getDurationOrDefault("EXEC_QUOTE_TIMEOUT", 10*time.Second),
		SwapTimeout:     getDurationOrDefault("EXEC_SWAP_TIMEOUT", 30*time.Second),
		JupiterQuoteURL: getEnvOrDefault("JUPITER_QUOTE_URL", "https://quote-api.jup.ag/v6/quote"),
		JupiterSwapURL:  getEnvOrDefault("JUPITER_SWAP_URL", "https://quote-api.jup.ag/v6/swap"),
		SolanaRPCURL:    getEnvOrDefault("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		WalletAddress:   os.Getenv("SOLANA_WALLET_ADDRESS"),

		// Circuit breaker defaults
		CircuitBreakerEnabled:         getBoolOrDefault("CIRCUIT_BREAKER_ENABLED", true),
		CircuitBreakerCheckInterval:   getDurationOrDefault("CIRCUIT_BREAKER_CHECK_INTERVAL", 30*time.Second),
		CircuitBreakerTradeMultiplier: getFloat64OrDefault("CIRCUIT_BREAKER_TRADE_MULTIPLIER", 2.0),
		CircuitBreakerMinAbsolute:     getFloat64OrDefault("CIRCUIT_BREAKER_MIN_ABSOLUTE", 10.0),
		CircuitBreakerHysteresisRatio: getFloat64OrDefault("CIRCUIT_BREAKER_HYSTERESIS_RATIO", 1.2),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "solarb"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "solarb123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "solana_arb"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.TradingMode != "paper" && c.TradingMode != "live" {
		return fmt.Errorf("TRADING_MODE must be 'paper' or 'live', got %q", c.TradingMode)
	}

	if c.TradingMode == "live" && c.WalletAddress == "" {
		return fmt.Errorf("SOLANA_WALLET_ADDRESS required in live mode")
	}

	if c.MinProfitPct <= 0 {
		return fmt.Errorf("ARB_MIN_PROFIT_PCT must be positive, got %f", c.MinProfitPct)
	}

	if c.MaxExposurePct <= 0 || c.MaxExposurePct > 100 {
		return fmt.Errorf("ARB_MAX_EXPOSURE_PCT must be in (0, 100], got %f", c.MaxExposurePct)
	}

	if c.MinSamples < 1 {
		return fmt.Errorf("ARB_MIN_SAMPLES must be at least 1, got %d", c.MinSamples)
	}

	if c.MaxSlippagePct <= 0 {
		return fmt.Errorf("EXEC_MAX_SLIPPAGE_PCT must be positive, got %f", c.MaxSlippagePct)
	}

	if len(c.FeedVenues) < 2 {
		return fmt.Errorf("FEED_VENUES needs at least 2 venues to arbitrage, got %d", len(c.FeedVenues))
	}

	hasReference := false
	for _, v := range c.FeedVenues {
		if v == c.ReferenceVenue {
			hasReference = true
			break
		}
	}
	if !hasReference {
		return fmt.Errorf("FEED_REFERENCE_VENUE %q must be listed in FEED_VENUES", c.ReferenceVenue)
	}

	if c.StreamEnabled && c.StreamURL == "" {
		return fmt.Errorf("FEED_STREAM_URL required when FEED_STREAM_ENABLED is true")
	}

	if c.CircuitBreakerEnabled && c.CircuitBreakerHysteresisRatio < 1.0 {
		return fmt.Errorf("CIRCUIT_BREAKER_HYSTERESIS_RATIO must be >= 1.0, got %f", c.CircuitBreakerHysteresisRatio)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}

	return out
}
