package feed

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/solarb/solana-arb/pkg/types"
	"go.uber.org/zap"
)

const (
	streamInitialBackoff = time.Second
	streamMaxBackoff     = 30 * time.Second
	streamBackoffFactor  = 2.0
	streamJitterPercent  = 0.2
)

// StreamConfig holds reference ticker stream configuration.
type StreamConfig struct {
	URL         string
	Venue       string
	DialTimeout time.Duration
	ReadTimeout time.Duration
	Publish     SampleFunc
	Logger      *zap.Logger
}

// Stream consumes a websocket price ticker and publishes each message as a
// sample for the configured venue, between poll ticks. The poll loop remains
// the source of truth; the stream only lowers reference-price latency.
type Stream struct {
	cfg    *StreamConfig
	logger *zap.Logger

	runMu   sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	backoff time.Duration
}

// NewStream creates a price ticker stream.
func NewStream(cfg *StreamConfig) *Stream {
	return &Stream{
		cfg:     cfg,
		logger:  cfg.Logger,
		backoff: streamInitialBackoff,
	}
}

// Start launches the stream read loop. Idempotent.
func (s *Stream) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.started = true

	s.logger.Info("stream-starting", zap.String("url", s.cfg.URL))

	s.wg.Add(1)
	go s.run(runCtx)

	return nil
}

// Stop closes the stream. Safe without a prior Start.
func (s *Stream) Stop() {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if !s.started {
		return
	}

	s.cancel()
	s.wg.Wait()
	s.started = false
	s.logger.Info("stream-stopped")
}

func (s *Stream) run(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := s.connectAndRead(ctx)
		if ctx.Err() != nil {
			return
		}

		StreamReconnectsTotal.Inc()
		delay := s.nextBackoff()
		s.logger.Warn("stream-disconnected",
			zap.Error(err),
			zap.Duration("reconnect-in", delay))

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// tickerMessage is the wire format of the ticker feed.
type tickerMessage struct {
	Pair  string  `json:"pair"`
	Price float64 `json:"price"`
}

func (s *Stream) connectAndRead(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: s.cfg.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = conn.Close()
	}()

	// Unblock ReadMessage when the context is cancelled.
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	s.resetBackoff()
	s.logger.Info("stream-connected", zap.String("url", s.cfg.URL))

	for {
		err = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		if err != nil {
			return err
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg tickerMessage
		err = json.Unmarshal(data, &msg)
		if err != nil {
			s.logger.Debug("stream-message-malformed", zap.Error(err))
			continue
		}

		pair, err := types.ParsePair(msg.Pair)
		if err != nil || msg.Price <= 0 {
			s.logger.Debug("stream-message-invalid",
				zap.String("pair", msg.Pair),
				zap.Float64("price", msg.Price))
			continue
		}

		StreamMessagesTotal.Inc()
		s.cfg.Publish(&types.PriceSample{
			Venue:      s.cfg.Venue,
			Pair:       pair,
			Price:      msg.Price,
			ObservedAt: time.Now(),
		})
	}
}

func (s *Stream) nextBackoff() time.Duration {
	jitter := rand.Float64() * streamJitterPercent
	delay := time.Duration(float64(s.backoff) * (1.0 + jitter))

	next := time.Duration(float64(s.backoff) * streamBackoffFactor)
	if next > streamMaxBackoff {
		next = streamMaxBackoff
	}
	s.backoff = next

	return delay
}

func (s *Stream) resetBackoff() {
	s.backoff = streamInitialBackoff
}
