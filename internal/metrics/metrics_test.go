package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"auction_engine/internal/metrics"
)

func TestMetricsRecord(t *testing.T) {
	rq := require.New(t)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.BidPlaced("winning", time.Millisecond)
	m.BidPlaced("outbid", time.Millisecond)
	m.BidRejected("ALREADY_WINNING", time.Millisecond)
	m.EventDropped("bid:placed")
	m.SweepFinished(3, 1, time.Second)

	count, err := testutil.GatherAndCount(reg,
		"auction_engine_bids_placed_total",
		"auction_engine_bids_rejected_total",
		"auction_engine_events_dropped_total",
		"auction_engine_auctions_closed_total",
	)
	rq.NoError(err)
	rq.Equal(5, count)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics

	require.NotPanics(t, func() {
		m.BidPlaced("winning", time.Millisecond)
		m.BidRejected("x", time.Millisecond)
		m.EventDropped("x")
		m.SweepFinished(1, 0, time.Second)
	})
}
