package app

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/solarb/solana-arb/internal/arbitrage"
	"github.com/solarb/solana-arb/internal/circuitbreaker"
	"github.com/solarb/solana-arb/internal/execution"
	"github.com/solarb/solana-arb/internal/feed"
	"github.com/solarb/solana-arb/internal/storage"
	"github.com/solarb/solana-arb/pkg/config"
	"github.com/solarb/solana-arb/pkg/healthprobe"
	"github.com/solarb/solana-arb/pkg/httpserver"
	"go.uber.org/zap"
)

// App is the main engine orchestrator: price feed, detector, executor and
// the HTTP surface, wired together with one lifecycle.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	feedManager   *feed.Manager
	stream        *feed.Stream
	detector      *arbitrage.Detector
	backend       execution.Backend
	executor      *execution.Executor
	breaker       *circuitbreaker.BalanceCircuitBreaker
	storage       storage.Storage

	subMu       sync.RWMutex
	subscribers []Subscriber

	running        atomic.Bool
	tradingEnabled atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options holds application options.
type Options struct {
	// DetectOnly disables execution regardless of config: opportunities are
	// detected, stored and reported, never traded.
	DetectOnly bool
}
