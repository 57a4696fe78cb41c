package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/solarb/solana-arb/pkg/config"
	"github.com/solarb/solana-arb/pkg/types"
	"go.uber.org/zap"
)

// stalenessFactor times the poll interval is the age past which a cached
// sample is refetched instead of served.
const stalenessFactor = 2

// errorLogEvery suppresses repeated per-venue failure logs: the first failure
// and every Nth after it log at warn, the rest at debug.
const errorLogEvery = 10

// SampleFunc receives every published price sample. Callbacks must not
// block; slow consumers should hand off to their own goroutine.
type SampleFunc func(*types.PriceSample)

type sampleKey struct {
	venue string
	pair  types.Pair
}

// Config holds feed manager configuration.
type Config struct {
	PollInterval   time.Duration
	FetchTimeout   time.Duration
	Venues         []string
	ReferenceVenue string
	Pairs          []types.Pair
	Catalog        *config.VenueCatalog
	Sources        map[string]Source
	Logger         *zap.Logger
}

// Manager polls venue price sources on a fixed interval and fans samples out
// to subscribers. Venues without a direct source are derived from the
// reference venue's price using the catalog offsets. One Manager instance
// serves the whole process.
type Manager struct {
	cfg    *Config
	logger *zap.Logger

	mu     sync.RWMutex
	latest map[sampleKey]*types.PriceSample

	subMu       sync.RWMutex
	subscribers []SampleFunc

	errMu     sync.Mutex
	errCounts map[string]int

	runMu   sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	now func() time.Time
}

// New creates a feed manager.
func New(cfg *Config) *Manager {
	return &Manager{
		cfg:       cfg,
		logger:    cfg.Logger,
		latest:    make(map[sampleKey]*types.PriceSample),
		errCounts: make(map[string]int),
		now:       time.Now,
	}
}

// Subscribe registers a callback for every published sample. Safe to call
// before or after Start.
func (m *Manager) Subscribe(fn SampleFunc) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

// Start launches the poll loop. Calling Start on a running manager is a
// no-op, so restarts from supervisory code cannot double the poll rate.
func (m *Manager) Start(ctx context.Context) error {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if m.started {
		m.logger.Warn("feed-already-running")
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.started = true

	m.logger.Info("feed-starting",
		zap.Duration("poll-interval", m.cfg.PollInterval),
		zap.Strings("venues", m.cfg.Venues),
		zap.String("reference-venue", m.cfg.ReferenceVenue),
		zap.Int("pairs", len(m.cfg.Pairs)))

	m.wg.Add(1)
	go m.pollLoop(runCtx)

	return nil
}

// Stop halts polling and waits for in-flight fetches. Safe to call without a
// prior Start, and safe to call twice.
func (m *Manager) Stop() {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if !m.started {
		return
	}

	m.cancel()
	m.wg.Wait()
	m.started = false
	m.logger.Info("feed-stopped")
}

func (m *Manager) pollLoop(ctx context.Context) {
	defer m.wg.Done()

	// First poll immediately so the detector has data before the first tick.
	m.pollOnce(ctx)

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pollOnce(ctx)
		}
	}
}

// pollOnce fetches every (venue, pair) combination for one tick. The
// reference venue is fetched first and synchronously because derived venues
// need its price; the remaining venues run concurrently.
func (m *Manager) pollOnce(ctx context.Context) {
	timer := prometheus.NewTimer(PollDurationSeconds)
	defer timer.ObserveDuration()

	for _, pair := range m.cfg.Pairs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ref := m.fetchObserved(ctx, m.cfg.ReferenceVenue, pair)
		if ref != nil {
			m.publish(ref)
		}

		var wg sync.WaitGroup
		for _, venue := range m.cfg.Venues {
			if venue == m.cfg.ReferenceVenue {
				continue
			}

			wg.Add(1)
			go func(venue string) {
				defer wg.Done()
				sample := m.fetchVenue(ctx, venue, pair, ref)
				if sample != nil {
					m.publish(sample)
				}
			}(venue)
		}
		wg.Wait()
	}
}

// fetchVenue returns an observed sample when the venue has a source, and a
// derived one from the reference price otherwise.
func (m *Manager) fetchVenue(ctx context.Context, venue string, pair types.Pair, ref *types.PriceSample) *types.PriceSample {
	if _, ok := m.cfg.Sources[venue]; ok {
		return m.fetchObserved(ctx, venue, pair)
	}
	if ref == nil {
		return nil
	}
	return m.derive(venue, ref)
}

func (m *Manager) fetchObserved(ctx context.Context, venue string, pair types.Pair) *types.PriceSample {
	source, ok := m.cfg.Sources[venue]
	if !ok {
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, m.cfg.FetchTimeout)
	defer cancel()

	sample, err := source.Fetch(fetchCtx, pair)
	if err != nil {
		m.recordFetchError(venue, pair, err)
		return nil
	}

	m.recordFetchSuccess(venue)
	return sample
}

// derive estimates a venue's price from the reference sample and the
// catalog's per-venue offset.
func (m *Manager) derive(venue string, ref *types.PriceSample) *types.PriceSample {
	offset := m.cfg.Catalog.DerivedOffset(venue)
	return &types.PriceSample{
		Venue:      venue,
		Pair:       ref.Pair,
		Price:      ref.Price * (1 + offset),
		Derived:    true,
		ObservedAt: ref.ObservedAt,
	}
}

// Ingest publishes an externally sourced sample, e.g. from the ticker
// stream, through the same validation and fanout as polled samples.
func (m *Manager) Ingest(sample *types.PriceSample) {
	m.publish(sample)
}

// publish stores the sample and fans it out. A panicking subscriber is
// isolated so one bad consumer cannot take the feed down.
func (m *Manager) publish(sample *types.PriceSample) {
	if !sample.Valid() {
		SamplesDroppedTotal.Inc()
		return
	}

	m.mu.Lock()
	m.latest[sampleKey{venue: sample.Venue, pair: sample.Pair}] = sample
	m.mu.Unlock()

	kind := "observed"
	if sample.Derived {
		kind = "derived"
	}
	SamplesPublishedTotal.WithLabelValues(sample.Venue, kind).Inc()

	m.subMu.RLock()
	subscribers := m.subscribers
	m.subMu.RUnlock()

	for _, fn := range subscribers {
		m.notify(fn, sample)
	}
}

func (m *Manager) notify(fn SampleFunc, sample *types.PriceSample) {
	defer func() {
		r := recover()
		if r != nil {
			SubscriberPanicsTotal.Inc()
			m.logger.Error("subscriber-panic",
				zap.Any("panic", r),
				zap.String("venue", sample.Venue),
				zap.String("pair", sample.Pair.String()))
		}
	}()
	fn(sample)
}

// GetCurrentPrice returns the latest sample for a (venue, pair). A sample
// older than twice the poll interval is refetched synchronously before being
// served; if the refetch fails an error is returned rather than stale data.
func (m *Manager) GetCurrentPrice(ctx context.Context, venue string, pair types.Pair) (*types.PriceSample, error) {
	m.mu.RLock()
	sample := m.latest[sampleKey{venue: venue, pair: pair}]
	m.mu.RUnlock()

	maxAge := stalenessFactor * m.cfg.PollInterval
	if sample != nil && m.now().Sub(sample.ObservedAt) < maxAge {
		return sample, nil
	}

	StaleRefetchesTotal.WithLabelValues(venue).Inc()

	var ref *types.PriceSample
	if venue != m.cfg.ReferenceVenue {
		if _, hasSource := m.cfg.Sources[venue]; !hasSource {
			ref = m.fetchObserved(ctx, m.cfg.ReferenceVenue, pair)
			if ref != nil {
				m.publish(ref)
			}
		}
	}

	fresh := m.fetchVenue(ctx, venue, pair, ref)
	if fresh == nil {
		return nil, fmt.Errorf("no fresh price for %s on %s", pair, venue)
	}
	m.publish(fresh)
	return fresh, nil
}

func (m *Manager) recordFetchError(venue string, pair types.Pair, err error) {
	FetchErrorsTotal.WithLabelValues(venue).Inc()

	m.errMu.Lock()
	m.errCounts[venue]++
	count := m.errCounts[venue]
	m.errMu.Unlock()

	fields := []zap.Field{
		zap.String("venue", venue),
		zap.String("pair", pair.String()),
		zap.Int("consecutive-errors", count),
		zap.Error(err),
	}
	if count == 1 || count%errorLogEvery == 0 {
		m.logger.Warn("price-fetch-failed", fields...)
	} else {
		m.logger.Debug("price-fetch-failed", fields...)
	}
}

func (m *Manager) recordFetchSuccess(venue string) {
	m.errMu.Lock()
	count := m.errCounts[venue]
	m.errCounts[venue] = 0
	m.errMu.Unlock()

	if count > 0 {
		m.logger.Info("venue-recovered",
			zap.String("venue", venue),
			zap.Int("errors-during-outage", count))
	}
}
