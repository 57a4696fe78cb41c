package arbitrage

import (
	"sync"
	"time"

	"github.com/solarb/solana-arb/pkg/types"
	"go.uber.org/zap"
)

// safetyMarginPct is the fixed margin net profit must clear to absorb
// execution variance between detection and settlement.
const safetyMarginPct = 0.05

// Config holds detector configuration. Percent values are percent numbers:
// MinProfitPct 0.5 means 0.5%.
type Config struct {
	MinProfitPct       float64
	MaxExposurePct     float64
	MinSamples         int
	CooldownPeriod     time.Duration
	MaxPriceHistory    int
	MaxTradeHistory    int
	RequireObservedLeg bool
	Tokens             []string
	Venues             []string
	Logger             *zap.Logger
}

type historyKey struct {
	venue string
	pair  types.Pair
}

type corridorKey struct {
	buyVenue  string
	sellVenue string
	pair      types.Pair
}

// pricePoint is one history entry. Only the latest point per venue takes
// part in detection; the rest exist to enforce the min-samples warmup.
type pricePoint struct {
	price      float64
	derived    bool
	observedAt time.Time
}

// Detector finds, sizes and gates the single best cross-venue opportunity.
// All shared state (history, cooldown ledger, strategy counters) is mutated
// only under d.mu by the detector's own methods.
type Detector struct {
	config Config
	costs  *CostModel
	logger *zap.Logger

	mu        sync.Mutex
	histories map[historyKey][]pricePoint
	lastFired map[corridorKey]time.Time
	state     *StrategyState
	now       func() time.Time
}

// New creates a detector over a cost model.
func New(cfg Config, costs *CostModel) *Detector {
	if cfg.MaxPriceHistory <= 0 {
		cfg.MaxPriceHistory = 100
	}
	if cfg.MaxTradeHistory <= 0 {
		cfg.MaxTradeHistory = 100
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = 1
	}

	d := &Detector{
		config:    cfg,
		costs:     costs,
		logger:    cfg.Logger,
		histories: make(map[historyKey][]pricePoint),
		lastFired: make(map[corridorKey]time.Time),
		state:     newStrategyState(cfg.MinProfitPct, cfg.MaxExposurePct, cfg.MaxTradeHistory),
		now:       time.Now,
	}

	d.logger.Info("arbitrage-detector-initialized",
		zap.Int("venues", len(cfg.Venues)),
		zap.Int("tokens", len(cfg.Tokens)),
		zap.Float64("min-profit-pct", cfg.MinProfitPct),
		zap.Duration("cooldown", cfg.CooldownPeriod))

	return d
}

// UpdatePrices appends a sample to the per-(venue, pair) bounded history.
// Samples with non-positive prices never enter history. There is no
// detection side effect; callers batch updates and then call Detect.
func (d *Detector) UpdatePrices(sample *types.PriceSample) {
	if !sample.Valid() {
		SamplesRejectedTotal.Inc()
		d.logger.Debug("price-sample-rejected", zap.Any("sample", sample))
		return
	}

	key := historyKey{venue: sample.Venue, pair: sample.Pair}

	d.mu.Lock()
	defer d.mu.Unlock()

	history := d.histories[key]
	history = append(history, pricePoint{
		price:      sample.Price,
		derived:    sample.Derived,
		observedAt: sample.ObservedAt,
	})
	if len(history) > d.config.MaxPriceHistory {
		history = history[len(history)-d.config.MaxPriceHistory:]
	}
	d.histories[key] = history

	SamplesIngestedTotal.WithLabelValues(sample.Venue).Inc()
}

// Detect scans every token pair and venue corridor for the best
// net-profitable opportunity. The winning candidate (and every candidate
// that cleared the gross threshold) stamps its corridor's cooldown entry.
// Returns nil when no candidate survives.
func (d *Detector) Detect() *Opportunity {
	start := time.Now()
	defer func() {
		DetectionDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	minProfit := d.state.minProfitPct

	var best *Opportunity
	candidates := 0

	for _, base := range d.config.Tokens {
		for _, quote := range d.config.Tokens {
			if base == quote {
				continue
			}
			pair := types.Pair{Base: base, Quote: quote}

			opp := d.scanPair(pair, minProfit, now)
			if opp == nil {
				continue
			}

			candidates++
			if best == nil || opp.NetProfitPct > best.NetProfitPct {
				best = opp
			}
		}
	}

	if best == nil {
		return nil
	}

	OpportunitiesDetectedTotal.Inc()
	NetProfitBPS.Observe(best.NetProfitPct * 100)

	d.logger.Info("arbitrage-opportunity-detected",
		zap.String("opportunity-id", best.ID),
		zap.String("pair", best.Pair.String()),
		zap.String("buy-venue", best.BuyVenue),
		zap.String("sell-venue", best.SellVenue),
		zap.Float64("gross-profit-pct", best.GrossProfitPct),
		zap.Float64("net-profit-pct", best.NetProfitPct),
		zap.Int("candidates", candidates))

	return best
}

// scanPair returns the best surviving candidate for one pair, stamping the
// cooldown ledger for every corridor that cleared the gross threshold.
// Caller holds d.mu.
func (d *Detector) scanPair(pair types.Pair, minProfit float64, now time.Time) *Opportunity {
	type latest struct {
		venue string
		point pricePoint
	}

	// Latest sample per venue, only for venues past the warmup count.
	// Venue iteration follows configured order so tie-breaks are stable.
	quotes := make([]latest, 0, len(d.config.Venues))
	for _, venue := range d.config.Venues {
		history := d.histories[historyKey{venue: venue, pair: pair}]
		if len(history) < d.config.MinSamples {
			continue
		}
		quotes = append(quotes, latest{venue: venue, point: history[len(history)-1]})
	}

	if len(quotes) < 2 {
		return nil
	}

	low, high := quotes[0], quotes[0]
	for _, q := range quotes[1:] {
		if q.point.price < low.point.price {
			low = q
		}
		if q.point.price > high.point.price {
			high = q
		}
	}

	if low.venue == high.venue || high.point.price <= low.point.price {
		return nil
	}

	grossPct := (high.point.price - low.point.price) / low.point.price * 100
	if grossPct <= minProfit {
		OpportunitiesRejectedTotal.WithLabelValues("below_min_profit").Inc()
		return nil
	}

	if d.config.RequireObservedLeg && low.point.derived && high.point.derived {
		OpportunitiesRejectedTotal.WithLabelValues("both_legs_derived").Inc()
		return nil
	}

	corridor := corridorKey{buyVenue: low.venue, sellVenue: high.venue, pair: pair}
	if fired, ok := d.lastFired[corridor]; ok && now.Sub(fired) < d.config.CooldownPeriod {
		OpportunitiesRejectedTotal.WithLabelValues("cooldown").Inc()
		return nil
	}

	costPct := d.costs.Estimate(low.venue, high.venue, pair)
	netPct := grossPct - costPct
	if netPct <= safetyMarginPct {
		OpportunitiesRejectedTotal.WithLabelValues("negative_net_profit").Inc()
		return nil
	}

	d.lastFired[corridor] = now

	opp := NewOpportunity(pair, low.venue, low.point.price, high.venue, high.point.price, grossPct, netPct)
	opp.BuyDerived = low.point.derived
	opp.SellDerived = high.point.derived
	return opp
}

// HistoryLen reports the current history depth for a venue and pair.
func (d *Detector) HistoryLen(venue string, pair types.Pair) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.histories[historyKey{venue: venue, pair: pair}])
}

// Reset restores the configured profit threshold and clears history, the
// cooldown ledger, and all counters.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.histories = make(map[historyKey][]pricePoint)
	d.lastFired = make(map[corridorKey]time.Time)
	d.state = newStrategyState(d.config.MinProfitPct, d.config.MaxExposurePct, d.config.MaxTradeHistory)

	d.logger.Info("arbitrage-detector-reset")
}
