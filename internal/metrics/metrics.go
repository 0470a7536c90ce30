// Package metrics holds the engine's prometheus collectors. A nil *Metrics
// is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "auction_engine"

type Metrics struct {
	bidsPlaced       *prometheus.CounterVec
	bidsRejected     *prometheus.CounterVec
	placeBidDuration prometheus.Histogram
	eventsDropped    *prometheus.CounterVec
	auctionsClosed   prometheus.Counter
	sweepDuration    prometheus.Histogram
	sweepFailures    prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		bidsPlaced: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bids_placed_total",
			Help:      "Accepted bid submissions by outcome.",
		}, []string{"outcome"}),
		bidsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bids_rejected_total",
			Help:      "Rejected bid submissions by reason code.",
		}, []string{"reason"}),
		placeBidDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "place_bid_duration_seconds",
			Help:      "PlaceBid latency including lock wait.",
			Buckets:   prometheus.DefBuckets,
		}),
		eventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Post-commit events dropped because the queue was full or delivery failed.",
		}, []string{"type"}),
		auctionsClosed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auctions_closed_total",
			Help:      "Auctions moved to ENDED by the expiry sweep.",
		}),
		sweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "expiry_sweep_duration_seconds",
			Help:      "Expiry sweep latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		sweepFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expiry_sweep_failures_total",
			Help:      "Per-auction close failures during the expiry sweep.",
		}),
	}
}

func (m *Metrics) BidPlaced(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.bidsPlaced.WithLabelValues(outcome).Inc()
	m.placeBidDuration.Observe(took.Seconds())
}

func (m *Metrics) BidRejected(reason string, took time.Duration) {
	if m == nil {
		return
	}
	m.bidsRejected.WithLabelValues(reason).Inc()
	m.placeBidDuration.Observe(took.Seconds())
}

func (m *Metrics) EventDropped(eventType string) {
	if m == nil {
		return
	}
	m.eventsDropped.WithLabelValues(eventType).Inc()
}

func (m *Metrics) SweepFinished(closed int, failures int, took time.Duration) {
	if m == nil {
		return
	}
	m.auctionsClosed.Add(float64(closed))
	m.sweepFailures.Add(float64(failures))
	m.sweepDuration.Observe(took.Seconds())
}
