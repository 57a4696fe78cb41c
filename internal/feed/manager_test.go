package feed

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/solarb/solana-arb/internal/testutil"
	"github.com/solarb/solana-arb/pkg/config"
	"github.com/solarb/solana-arb/pkg/types"
	"go.uber.org/zap"
)

var solUSDC = types.Pair{Base: "SOL", Quote: "USDC"}

func staticSource(venue string, price float64) *testutil.MockSource {
	return &testutil.MockSource{
		VenueName: venue,
		FetchFunc: func(ctx context.Context, pair types.Pair) (*types.PriceSample, error) {
			return &types.PriceSample{
				Venue:      venue,
				Pair:       pair,
				Price:      price,
				ObservedAt: time.Now(),
			}, nil
		},
	}
}

func newTestManager(t *testing.T, sources map[string]Source, venues []string) *Manager {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	return New(&Config{
		PollInterval:   10 * time.Second,
		FetchTimeout:   time.Second,
		Venues:         venues,
		ReferenceVenue: "jupiter",
		Pairs:          []types.Pair{solUSDC},
		Catalog:        config.DefaultVenueCatalog(),
		Sources:        sources,
		Logger:         logger,
	})
}

type sampleCollector struct {
	mu      sync.Mutex
	samples []*types.PriceSample
}

func (c *sampleCollector) collect(s *types.PriceSample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = append(c.samples, s)
}

func (c *sampleCollector) byVenue() map[string]*types.PriceSample {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]*types.PriceSample)
	for _, s := range c.samples {
		out[s.Venue] = s
	}
	return out
}

func TestPollOncePublishesObservedAndDerived(t *testing.T) {
	sources := map[string]Source{"jupiter": staticSource("jupiter", 150.0)}
	manager := newTestManager(t, sources, []string{"jupiter", "raydium", "openbook"})

	collector := &sampleCollector{}
	manager.Subscribe(collector.collect)

	manager.pollOnce(context.Background())

	byVenue := collector.byVenue()
	if len(byVenue) != 3 {
		t.Fatalf("expected samples for 3 venues, got %d", len(byVenue))
	}

	jup := byVenue["jupiter"]
	if jup == nil || jup.Derived {
		t.Fatalf("expected observed jupiter sample, got %+v", jup)
	}
	if jup.Price != 150.0 {
		t.Errorf("expected jupiter price 150, got %f", jup.Price)
	}

	// raydium has no source: derived at reference * (1 - 0.0015)
	ray := byVenue["raydium"]
	if ray == nil || !ray.Derived {
		t.Fatalf("expected derived raydium sample, got %+v", ray)
	}
	if math.Abs(ray.Price-150.0*(1-0.0015)) > 1e-9 {
		t.Errorf("unexpected raydium derived price %f", ray.Price)
	}

	// openbook offset is positive
	ob := byVenue["openbook"]
	if ob == nil || math.Abs(ob.Price-150.0*(1+0.003)) > 1e-9 {
		t.Errorf("unexpected openbook derived price %+v", ob)
	}
}

func TestPollOnceSkipsDerivedWithoutReference(t *testing.T) {
	failing := &testutil.MockSource{
		VenueName: "jupiter",
		FetchFunc: func(ctx context.Context, pair types.Pair) (*types.PriceSample, error) {
			return nil, context.DeadlineExceeded
		},
	}
	manager := newTestManager(t, map[string]Source{"jupiter": failing}, []string{"jupiter", "raydium"})

	collector := &sampleCollector{}
	manager.Subscribe(collector.collect)

	manager.pollOnce(context.Background())

	if got := len(collector.byVenue()); got != 0 {
		t.Errorf("expected no samples when the reference fetch fails, got %d", got)
	}
}

func TestPublishDropsInvalidSamples(t *testing.T) {
	manager := newTestManager(t, nil, []string{"jupiter"})

	collector := &sampleCollector{}
	manager.Subscribe(collector.collect)

	manager.Ingest(&types.PriceSample{Venue: "jupiter", Pair: solUSDC, Price: 0})
	manager.Ingest(&types.PriceSample{Venue: "", Pair: solUSDC, Price: 100, ObservedAt: time.Now()})

	if got := len(collector.byVenue()); got != 0 {
		t.Errorf("expected invalid samples dropped, got %d published", got)
	}
}

func TestSubscriberPanicIsolation(t *testing.T) {
	manager := newTestManager(t, nil, []string{"jupiter"})

	manager.Subscribe(func(s *types.PriceSample) {
		panic("bad subscriber")
	})
	collector := &sampleCollector{}
	manager.Subscribe(collector.collect)

	manager.Ingest(&types.PriceSample{
		Venue: "jupiter", Pair: solUSDC, Price: 150, ObservedAt: time.Now(),
	})

	if got := len(collector.byVenue()); got != 1 {
		t.Errorf("expected delivery to survive an earlier panic, got %d", got)
	}
}

func TestGetCurrentPriceFresh(t *testing.T) {
	source := staticSource("jupiter", 150.0)
	manager := newTestManager(t, map[string]Source{"jupiter": source}, []string{"jupiter"})

	manager.pollOnce(context.Background())
	fetchesAfterPoll := source.Fetches()

	sample, err := manager.GetCurrentPrice(context.Background(), "jupiter", solUSDC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sample.Price != 150.0 {
		t.Errorf("expected 150, got %f", sample.Price)
	}
	if source.Fetches() != fetchesAfterPoll {
		t.Errorf("fresh sample must not trigger a refetch")
	}
}

func TestGetCurrentPriceStaleRefetch(t *testing.T) {
	source := staticSource("jupiter", 150.0)
	manager := newTestManager(t, map[string]Source{"jupiter": source}, []string{"jupiter"})

	manager.pollOnce(context.Background())
	fetchesAfterPoll := source.Fetches()

	// Age the cached sample past twice the poll interval
	manager.now = func() time.Time { return time.Now().Add(21 * time.Second) }

	sample, err := manager.GetCurrentPrice(context.Background(), "jupiter", solUSDC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sample == nil || sample.Price != 150.0 {
		t.Fatalf("expected refetched sample, got %+v", sample)
	}
	if source.Fetches() != fetchesAfterPoll+1 {
		t.Errorf("expected exactly one refetch, got %d extra", source.Fetches()-fetchesAfterPoll)
	}
}

func TestGetCurrentPriceDerivedStaleRefetchesReference(t *testing.T) {
	source := staticSource("jupiter", 150.0)
	manager := newTestManager(t, map[string]Source{"jupiter": source}, []string{"jupiter", "raydium"})

	// Nothing cached for raydium: the reference must be fetched first and
	// the derived price computed from it.
	sample, err := manager.GetCurrentPrice(context.Background(), "raydium", solUSDC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sample.Derived {
		t.Error("expected a derived sample")
	}
	if math.Abs(sample.Price-150.0*(1-0.0015)) > 1e-9 {
		t.Errorf("unexpected derived price %f", sample.Price)
	}
	if source.Fetches() != 1 {
		t.Errorf("expected one reference fetch, got %d", source.Fetches())
	}
}

func TestGetCurrentPriceUnavailable(t *testing.T) {
	manager := newTestManager(t, nil, []string{"jupiter"})

	_, err := manager.GetCurrentPrice(context.Background(), "jupiter", solUSDC)
	if err == nil {
		t.Fatal("expected error with no cache and no source")
	}
}

func TestStartStopLifecycle(t *testing.T) {
	source := staticSource("jupiter", 150.0)
	manager := newTestManager(t, map[string]Source{"jupiter": source}, []string{"jupiter"})

	// Stop before Start is a no-op
	manager.Stop()

	ctx := context.Background()
	if err := manager.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	// Second Start must not spawn a second poll loop
	if err := manager.Start(ctx); err != nil {
		t.Fatalf("re-start failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for source.Fetches() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if source.Fetches() == 0 {
		t.Fatal("expected an immediate first poll")
	}

	manager.Stop()
	manager.Stop()
}
