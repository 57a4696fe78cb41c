package feed

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/solarb/solana-arb/pkg/config"
	"github.com/solarb/solana-arb/pkg/types"
	"golang.org/x/time/rate"
)

// Source is a per-venue price client. Fetch returns one observed sample for
// the pair or an error; it must respect ctx deadlines.
type Source interface {
	Venue() string
	Fetch(ctx context.Context, pair types.Pair) (*types.PriceSample, error)
}

// jupiterRatePerSec keeps the poller under the public quote API limits even
// with several pairs per tick.
const jupiterRatePerSec = 5

// JupiterSource prices a pair by quoting one whole base unit through the
// Jupiter aggregator, which reflects the best executable route rather than a
// single pool's mid.
type JupiterSource struct {
	quoteURL   string
	catalog    *config.VenueCatalog
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewJupiterSource creates a Jupiter-backed price source.
func NewJupiterSource(quoteURL string, catalog *config.VenueCatalog, timeout time.Duration) *JupiterSource {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &JupiterSource{
		quoteURL:   quoteURL,
		catalog:    catalog,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(jupiterRatePerSec, 2),
	}
}

// Venue returns the venue identifier.
func (j *JupiterSource) Venue() string {
	return "jupiter"
}

// Fetch quotes 1 base unit into the quote asset and reports the effective
// price.
func (j *JupiterSource) Fetch(ctx context.Context, pair types.Pair) (*types.PriceSample, error) {
	baseMint, ok := j.catalog.Mint(pair.Base)
	if !ok {
		return nil, fmt.Errorf("no mint for token %s", pair.Base)
	}
	quoteMint, ok := j.catalog.Mint(pair.Quote)
	if !ok {
		return nil, fmt.Errorf("no mint for token %s", pair.Quote)
	}

	err := j.limiter.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("price rate limit: %w", err)
	}

	baseDecimals := j.catalog.Decimals(pair.Base)
	oneBase := uint64(math.Pow10(baseDecimals))

	params := url.Values{}
	params.Set("inputMint", baseMint)
	params.Set("outputMint", quoteMint)
	params.Set("amount", strconv.FormatUint(oneBase, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.quoteURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build price request: %w", err)
	}

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch price: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("price API status %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		OutAmount string `json:"outAmount"`
	}
	err = json.NewDecoder(resp.Body).Decode(&payload)
	if err != nil {
		return nil, fmt.Errorf("decode price: %w", err)
	}

	outAtomic, err := strconv.ParseUint(payload.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse price outAmount %q: %w", payload.OutAmount, err)
	}

	price := float64(outAtomic) / math.Pow10(j.catalog.Decimals(pair.Quote))
	if price <= 0 {
		return nil, fmt.Errorf("non-positive price %f for %s", price, pair)
	}

	return &types.PriceSample{
		Venue:      j.Venue(),
		Pair:       pair,
		Price:      price,
		ObservedAt: time.Now(),
	}, nil
}
