package bidding_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"auction_engine/internal/domain/entity"
	"auction_engine/internal/domain/service/bidding"
)

type recordingNotifier struct {
	mu      sync.Mutex
	placed  []entity.BidPlacedEvent
	ended   []entity.AuctionEndedEvent
	failBid bool
}

func (n *recordingNotifier) BidPlaced(_ context.Context, e entity.BidPlacedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.failBid {
		return errors.New("broker unavailable")
	}
	n.placed = append(n.placed, e)
	return nil
}

func (n *recordingNotifier) AuctionEnded(_ context.Context, e entity.AuctionEndedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.ended = append(n.ended, e)
	return nil
}

func (n *recordingNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.placed), len(n.ended)
}

func TestDispatcherDelivers(t *testing.T) {
	rq := require.New(t)

	n := &recordingNotifier{}
	d := bidding.NewDispatcher(n, 8, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- d.Run(ctx) }()

	rq.True(d.EnqueueBidPlaced(ctx, entity.BidPlacedEvent{AuctionID: "a1"}))
	rq.True(d.EnqueueAuctionEnded(ctx, entity.AuctionEndedEvent{AuctionID: "a1"}))

	rq.Eventually(func() bool {
		placed, ended := n.counts()
		return placed == 1 && ended == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	rq.NoError(<-done)
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	rq := require.New(t)

	d := bidding.NewDispatcher(&recordingNotifier{}, 2, nil)
	ctx := context.Background()

	rq.True(d.EnqueueBidPlaced(ctx, entity.BidPlacedEvent{AuctionID: "a1"}))
	rq.True(d.EnqueueBidPlaced(ctx, entity.BidPlacedEvent{AuctionID: "a2"}))
	rq.False(d.EnqueueBidPlaced(ctx, entity.BidPlacedEvent{AuctionID: "a3"}))
	rq.Equal(2, d.Pending())
}

func TestDispatcherFlushesOnStop(t *testing.T) {
	rq := require.New(t)

	n := &recordingNotifier{}
	d := bidding.NewDispatcher(n, 8, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rq.True(d.EnqueueBidPlaced(ctx, entity.BidPlacedEvent{AuctionID: "a1"}))
	rq.True(d.EnqueueBidPlaced(ctx, entity.BidPlacedEvent{AuctionID: "a2"}))

	rq.NoError(d.Run(ctx))

	placed, _ := n.counts()
	rq.Equal(2, placed)
}

func TestDispatcherSwallowsDeliveryErrors(t *testing.T) {
	rq := require.New(t)

	n := &recordingNotifier{failBid: true}
	d := bidding.NewDispatcher(n, 8, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rq.True(d.EnqueueBidPlaced(ctx, entity.BidPlacedEvent{AuctionID: "a1"}))
	rq.True(d.EnqueueAuctionEnded(ctx, entity.AuctionEndedEvent{AuctionID: "a1"}))

	rq.NoError(d.Run(ctx))

	placed, ended := n.counts()
	rq.Zero(placed)
	rq.Equal(1, ended)
}
