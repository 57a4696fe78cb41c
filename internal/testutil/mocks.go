package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/solarb/solana-arb/internal/arbitrage"
	"github.com/solarb/solana-arb/pkg/types"
)

// MockStorage is an in-memory storage implementation for testing.
type MockStorage struct {
	Opportunities []*arbitrage.Opportunity
	Trades        []*types.TradeRecord
	mu            sync.Mutex
}

// NewMockStorage creates a new mock storage.
func NewMockStorage() *MockStorage {
	return &MockStorage{}
}

// StoreOpportunity stores an opportunity in memory.
func (m *MockStorage) StoreOpportunity(ctx context.Context, opp *arbitrage.Opportunity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Opportunities = append(m.Opportunities, opp)
	return nil
}

// StoreTrade stores a trade record in memory.
func (m *MockStorage) StoreTrade(ctx context.Context, record *types.TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Trades = append(m.Trades, record)
	return nil
}

// Close is a no-op.
func (m *MockStorage) Close() error {
	return nil
}

// OpportunityCount returns the number of stored opportunities.
func (m *MockStorage) OpportunityCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Opportunities)
}

// TradeCount returns the number of stored trades.
func (m *MockStorage) TradeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Trades)
}

// MockBackend is a scriptable execution backend for testing. Each function
// field overrides the default behavior; unset fields return zero values.
type MockBackend struct {
	QuoteFunc   func(ctx context.Context, inToken, outToken string, amount float64) (*types.Quote, error)
	SwapFunc    func(ctx context.Context, quote *types.Quote) (*types.SwapResult, error)
	BalanceFunc func(ctx context.Context, token string) (float64, error)
	IsSimulated bool

	mu          sync.Mutex
	QuoteCalls  int
	SwapCalls   int
	Submissions []*types.Quote
}

// GetQuote returns the scripted quote.
func (m *MockBackend) GetQuote(ctx context.Context, inToken, outToken string, amount float64) (*types.Quote, error) {
	m.mu.Lock()
	m.QuoteCalls++
	m.mu.Unlock()

	if m.QuoteFunc != nil {
		return m.QuoteFunc(ctx, inToken, outToken, amount)
	}
	return &types.Quote{
		InToken:   inToken,
		OutToken:  outToken,
		InAmount:  amount,
		OutAmount: amount,
		FetchedAt: time.Now(),
	}, nil
}

// SubmitSwap records the submission and returns the scripted result.
func (m *MockBackend) SubmitSwap(ctx context.Context, quote *types.Quote) (*types.SwapResult, error) {
	m.mu.Lock()
	m.SwapCalls++
	m.Submissions = append(m.Submissions, quote)
	m.mu.Unlock()

	if m.SwapFunc != nil {
		return m.SwapFunc(ctx, quote)
	}
	return &types.SwapResult{
		Signature:   "mock-signature",
		InToken:     quote.InToken,
		OutToken:    quote.OutToken,
		InAmount:    quote.InAmount,
		OutAmount:   quote.OutAmount,
		Confirmed:   true,
		SubmittedAt: time.Now(),
	}, nil
}

// GetBalance returns the scripted balance.
func (m *MockBackend) GetBalance(ctx context.Context, token string) (float64, error) {
	if m.BalanceFunc != nil {
		return m.BalanceFunc(ctx, token)
	}
	return 0, nil
}

// Simulated reports the configured mode.
func (m *MockBackend) Simulated() bool {
	return m.IsSimulated
}

// Close is a no-op.
func (m *MockBackend) Close() error {
	return nil
}

// MockSource is a scriptable price source for feed tests.
type MockSource struct {
	VenueName string
	FetchFunc func(ctx context.Context, pair types.Pair) (*types.PriceSample, error)

	mu         sync.Mutex
	FetchCalls int
}

// Venue returns the configured venue name.
func (m *MockSource) Venue() string {
	return m.VenueName
}

// Fetch returns the scripted sample.
func (m *MockSource) Fetch(ctx context.Context, pair types.Pair) (*types.PriceSample, error) {
	m.mu.Lock()
	m.FetchCalls++
	m.mu.Unlock()
	return m.FetchFunc(ctx, pair)
}

// Fetches returns the number of Fetch calls so far.
func (m *MockSource) Fetches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.FetchCalls
}
