package execution

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/solarb/solana-arb/pkg/cache"
	"github.com/solarb/solana-arb/pkg/config"
	"github.com/solarb/solana-arb/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// quoteRatePerSec keeps us well under Jupiter's public API limits.
const quoteRatePerSec = 10

// balanceCacheTTL bounds how stale a cached balance read may be. The status
// endpoint polls balances too; without the cache every status request would
// hit the RPC node.
const balanceCacheTTL = 5 * time.Second

// LiveBackend executes real swaps through the Jupiter aggregator and reads
// balances from a Solana RPC node.
type LiveBackend struct {
	quoteURL      string
	swapURL       string
	rpcURL        string
	walletAddress string
	catalog       *config.VenueCatalog
	httpClient    *http.Client
	limiter       *rate.Limiter
	balances      cache.Cache
	logger        *zap.Logger
}

// LiveConfig holds live backend configuration.
type LiveConfig struct {
	QuoteURL      string
	SwapURL       string
	RPCURL        string
	WalletAddress string
	Catalog       *config.VenueCatalog
	Timeout       time.Duration
	BalanceCache  cache.Cache
	Logger        *zap.Logger
}

// NewLiveBackend creates a live Jupiter-backed execution backend.
func NewLiveBackend(cfg *LiveConfig) *LiveBackend {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	cfg.Logger.Info("live-backend-initialized",
		zap.String("quote-url", cfg.QuoteURL),
		zap.String("rpc-url", cfg.RPCURL),
		zap.String("wallet", cfg.WalletAddress))

	return &LiveBackend{
		quoteURL:      cfg.QuoteURL,
		swapURL:       cfg.SwapURL,
		rpcURL:        cfg.RPCURL,
		walletAddress: cfg.WalletAddress,
		catalog:       cfg.Catalog,
		httpClient:    &http.Client{Timeout: timeout},
		limiter:       rate.NewLimiter(quoteRatePerSec, 5),
		balances:      cfg.BalanceCache,
		logger:        cfg.Logger,
	}
}

// jupiterQuoteResponse is the subset of the Jupiter v6 quote payload we use.
type jupiterQuoteResponse struct {
	InAmount       string `json:"inAmount"`
	OutAmount      string `json:"outAmount"`
	PriceImpactPct string `json:"priceImpactPct"`
	RoutePlan      []struct {
		SwapInfo struct {
			Label string `json:"label"`
		} `json:"swapInfo"`
	} `json:"routePlan"`
}

// GetQuote fetches a Jupiter quote for swapping amount of inToken into
// outToken. Amounts cross the wire in atomic units per the tokens' decimals.
func (l *LiveBackend) GetQuote(ctx context.Context, inToken, outToken string, amount float64) (*types.Quote, error) {
	inMint, ok := l.catalog.Mint(inToken)
	if !ok {
		return nil, types.NewMissingAssetMapping(inToken)
	}
	outMint, ok := l.catalog.Mint(outToken)
	if !ok {
		return nil, types.NewMissingAssetMapping(outToken)
	}

	err := l.limiter.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("quote rate limit: %w", err)
	}

	atomicIn := toAtomic(amount, l.catalog.Decimals(inToken))

	params := url.Values{}
	params.Set("inputMint", inMint)
	params.Set("outputMint", outMint)
	params.Set("amount", strconv.FormatUint(atomicIn, 10))
	params.Set("slippageBps", "50")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.quoteURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build quote request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch quote: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("quote API status %d: %s", resp.StatusCode, string(body))
	}

	var payload jupiterQuoteResponse
	err = json.NewDecoder(resp.Body).Decode(&payload)
	if err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}

	outAtomic, err := strconv.ParseUint(payload.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse quote outAmount %q: %w", payload.OutAmount, err)
	}

	impact, _ := strconv.ParseFloat(payload.PriceImpactPct, 64)

	route := ""
	if len(payload.RoutePlan) > 0 {
		route = payload.RoutePlan[0].SwapInfo.Label
	}

	quote := &types.Quote{
		InToken:        inToken,
		OutToken:       outToken,
		InAmount:       amount,
		OutAmount:      fromAtomic(outAtomic, l.catalog.Decimals(outToken)),
		PriceImpactPct: impact * 100, // Jupiter reports a fraction
		Route:          route,
		FetchedAt:      time.Now(),
	}

	l.logger.Debug("quote-fetched",
		zap.String("in-token", inToken),
		zap.String("out-token", outToken),
		zap.Float64("in-amount", amount),
		zap.Float64("out-amount", quote.OutAmount),
		zap.Float64("price-impact-pct", quote.PriceImpactPct))

	return quote, nil
}

// swapRequest asks the swap service to build, sign and send the transaction
// for a quoted route on behalf of the wallet.
type swapRequest struct {
	UserPublicKey string `json:"userPublicKey"`
	InputMint     string `json:"inputMint"`
	OutputMint    string `json:"outputMint"`
	Amount        uint64 `json:"amount"`
	SlippageBps   int    `json:"slippageBps"`
	QuotedOut     uint64 `json:"quotedOutAmount"`
}

type swapResponse struct {
	Signature string `json:"signature"`
	Confirmed bool   `json:"confirmed"`
	OutAmount string `json:"outAmount"`
	Error     string `json:"error"`
}

// SubmitSwap submits the quoted swap. Never retried here or by callers.
func (l *LiveBackend) SubmitSwap(ctx context.Context, quote *types.Quote) (*types.SwapResult, error) {
	inMint, ok := l.catalog.Mint(quote.InToken)
	if !ok {
		return nil, types.NewMissingAssetMapping(quote.InToken)
	}
	outMint, ok := l.catalog.Mint(quote.OutToken)
	if !ok {
		return nil, types.NewMissingAssetMapping(quote.OutToken)
	}

	body, err := json.Marshal(swapRequest{
		UserPublicKey: l.walletAddress,
		InputMint:     inMint,
		OutputMint:    outMint,
		Amount:        toAtomic(quote.InAmount, l.catalog.Decimals(quote.InToken)),
		SlippageBps:   50,
		QuotedOut:     toAtomic(quote.OutAmount, l.catalog.Decimals(quote.OutToken)),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal swap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.swapURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build swap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	submittedAt := time.Now()

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit swap: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var payload swapResponse
	err = json.NewDecoder(resp.Body).Decode(&payload)
	if err != nil {
		return nil, fmt.Errorf("decode swap response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || payload.Error != "" {
		return nil, fmt.Errorf("swap rejected (status %d): %s", resp.StatusCode, payload.Error)
	}

	received := quote.OutAmount
	if payload.OutAmount != "" {
		outAtomic, parseErr := strconv.ParseUint(payload.OutAmount, 10, 64)
		if parseErr == nil {
			received = fromAtomic(outAtomic, l.catalog.Decimals(quote.OutToken))
		}
	}

	result := &types.SwapResult{
		Signature:   payload.Signature,
		InToken:     quote.InToken,
		OutToken:    quote.OutToken,
		InAmount:    quote.InAmount,
		OutAmount:   received,
		Confirmed:   payload.Confirmed,
		SubmittedAt: submittedAt,
	}

	if !payload.Confirmed {
		// Funds may be committed without confirmation; the caller must see
		// the partial state instead of a clean failure.
		return result, fmt.Errorf("swap %s submitted but not confirmed", payload.Signature)
	}

	if l.balances != nil {
		l.balances.Delete(balanceKey(quote.InToken))
		l.balances.Delete(balanceKey(quote.OutToken))
	}

	l.logger.Info("swap-confirmed",
		zap.String("signature", payload.Signature),
		zap.String("in-token", quote.InToken),
		zap.String("out-token", quote.OutToken),
		zap.Float64("out-amount", received))

	return result, nil
}

func balanceKey(token string) string {
	return "balance:" + token
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// GetBalance reads the wallet's balance for a token: lamports for SOL,
// summed parsed token accounts for SPL tokens. Reads are served from a
// short-TTL cache; a confirmed swap invalidates both legs' entries.
func (l *LiveBackend) GetBalance(ctx context.Context, token string) (float64, error) {
	if l.balances != nil {
		if cached, ok := l.balances.Get(balanceKey(token)); ok {
			if balance, ok := cached.(float64); ok {
				return balance, nil
			}
		}
	}

	balance, err := l.fetchBalance(ctx, token)
	if err != nil {
		return 0, err
	}

	if l.balances != nil {
		l.balances.Set(balanceKey(token), balance, balanceCacheTTL)
	}

	return balance, nil
}

func (l *LiveBackend) fetchBalance(ctx context.Context, token string) (float64, error) {
	if token == "SOL" {
		var result struct {
			Value uint64 `json:"value"`
		}
		err := l.rpcCall(ctx, "getBalance", []interface{}{l.walletAddress}, &result)
		if err != nil {
			return 0, err
		}
		return fromAtomic(result.Value, 9), nil
	}

	mint, ok := l.catalog.Mint(token)
	if !ok {
		return 0, types.NewMissingAssetMapping(token)
	}

	var result struct {
		Value []struct {
			Account struct {
				Data struct {
					Parsed struct {
						Info struct {
							TokenAmount struct {
								UIAmount float64 `json:"uiAmount"`
							} `json:"tokenAmount"`
						} `json:"info"`
					} `json:"parsed"`
				} `json:"data"`
			} `json:"account"`
		} `json:"value"`
	}

	params := []interface{}{
		l.walletAddress,
		map[string]string{"mint": mint},
		map[string]string{"encoding": "jsonParsed"},
	}
	err := l.rpcCall(ctx, "getTokenAccountsByOwner", params, &result)
	if err != nil {
		return 0, err
	}

	total := 0.0
	for _, acct := range result.Value {
		total += acct.Account.Data.Parsed.Info.TokenAmount.UIAmount
	}

	return total, nil
}

func (l *LiveBackend) rpcCall(ctx context.Context, method string, params []interface{}, result interface{}) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.rpcURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rpc %s: %w", method, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rpc %s status %d", method, resp.StatusCode)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	err = json.NewDecoder(resp.Body).Decode(&envelope)
	if err != nil {
		return fmt.Errorf("decode rpc response: %w", err)
	}

	if envelope.Error != nil {
		return fmt.Errorf("rpc %s: %s", method, envelope.Error.Message)
	}

	err = json.Unmarshal(envelope.Result, result)
	if err != nil {
		return fmt.Errorf("unmarshal rpc result: %w", err)
	}

	return nil
}

// Simulated always reports false.
func (l *LiveBackend) Simulated() bool {
	return false
}

// Close releases idle connections.
func (l *LiveBackend) Close() error {
	l.httpClient.CloseIdleConnections()
	return nil
}

func toAtomic(amount float64, decimals int) uint64 {
	return uint64(math.Round(amount * math.Pow10(decimals)))
}

func fromAtomic(amount uint64, decimals int) float64 {
	return float64(amount) / math.Pow10(decimals)
}
