package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SamplesPublishedTotal tracks samples delivered to subscribers.
	SamplesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solana_arb_feed_samples_published_total",
			Help: "Total price samples published to subscribers",
		},
		[]string{"venue", "kind"},
	)

	// SamplesDroppedTotal tracks samples rejected before publication.
	SamplesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "solana_arb_feed_samples_dropped_total",
		Help: "Total malformed price samples dropped before publication",
	})

	// FetchErrorsTotal tracks venue fetch failures.
	FetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solana_arb_feed_fetch_errors_total",
			Help: "Total price fetch failures by venue",
		},
		[]string{"venue"},
	)

	// PollDurationSeconds tracks the duration of a full poll tick.
	PollDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "solana_arb_feed_poll_duration_seconds",
		Help:    "Duration of one full poll across all venues and pairs",
		Buckets: prometheus.DefBuckets,
	})

	// StaleRefetchesTotal tracks synchronous refetches triggered by staleness.
	StaleRefetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solana_arb_feed_stale_refetches_total",
			Help: "Total synchronous refetches caused by stale cached prices",
		},
		[]string{"venue"},
	)

	// SubscriberPanicsTotal tracks recovered subscriber panics.
	SubscriberPanicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "solana_arb_feed_subscriber_panics_total",
		Help: "Total panics recovered from sample subscribers",
	})

	// StreamMessagesTotal tracks ticker messages consumed from the stream.
	StreamMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "solana_arb_feed_stream_messages_total",
		Help: "Total price messages consumed from the reference ticker stream",
	})

	// StreamReconnectsTotal tracks stream reconnect attempts.
	StreamReconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "solana_arb_feed_stream_reconnects_total",
		Help: "Total reconnect attempts of the reference ticker stream",
	})
)
