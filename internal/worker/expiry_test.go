package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"auction_engine/internal/domain/entity"
	"auction_engine/internal/domain/service/bidding"
	"auction_engine/internal/domain/value"
	"auction_engine/internal/infrastructure/memstore"
	"auction_engine/internal/worker"
)

type endedSink struct {
	mu     sync.Mutex
	events []entity.AuctionEndedEvent
}

func (s *endedSink) EnqueueAuctionEnded(_ context.Context, e entity.AuctionEndedEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return true
}

func (s *endedSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func seed(store *memstore.Store, id string, end time.Time, winner *string) {
	a := entity.Auction{
		ID:           id,
		SellerID:     "seller",
		StartPrice:   100,
		StepPrice:    10,
		CurrentPrice: 100,
		EndTime:      end,
		Status:       value.AuctionStatusActive,
	}
	if winner != nil {
		a.CurrentWinnerID = winner
		a.BidCount = 1
	}
	store.PutAuction(a)
}

func strPtr(s string) *string { return &s }

func TestSweepNowIsIdempotent(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	now := time.Now()

	store := memstore.New(time.Second)
	seed(store, "expired-with-winner", now.Add(-time.Hour), strPtr("bidder"))
	seed(store, "expired-no-bids", now.Add(-time.Minute), nil)
	seed(store, "live", now.Add(time.Hour), nil)

	sink := &endedSink{}
	s := worker.NewExpiryScheduler(store, sink)

	closed, err := s.SweepNow(ctx)
	rq.NoError(err)
	rq.Equal(2, closed)
	rq.Equal(1, sink.count())
	rq.Equal("bidder", sink.events[0].WinnerID)

	closed, err = s.SweepNow(ctx)
	rq.NoError(err)
	rq.Zero(closed)
	rq.Equal(1, sink.count())

	live, err := store.GetAuction(ctx, "live")
	rq.NoError(err)
	rq.Equal(value.AuctionStatusActive, live.Status)
}

func TestSweepPagesThroughBatches(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	now := time.Now()

	store := memstore.New(time.Second)
	ids := []string{"a", "b", "c", "d", "e"}
	for i, id := range ids {
		seed(store, id, now.Add(-time.Duration(len(ids)-i)*time.Minute), strPtr("u-"+id))
	}

	sink := &endedSink{}
	s := worker.NewExpiryScheduler(store, sink).WithBatchSize(2)

	closed, err := s.SweepNow(ctx)
	rq.NoError(err)
	rq.Equal(len(ids), closed)
	rq.Equal(len(ids), sink.count())

	for _, id := range ids {
		a, err := store.GetAuction(ctx, id)
		rq.NoError(err)
		rq.Equal(value.AuctionStatusEnded, a.Status, id)
	}
}

func TestSweepLeavesBusyAuctionAndFinishes(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	now := time.Now()

	store := memstore.New(time.Second)
	seed(store, "busy", now.Add(-3*time.Minute), nil)
	seed(store, "x", now.Add(-2*time.Minute), nil)
	seed(store, "y", now.Add(-time.Minute), nil)

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = store.InAuction(ctx, "busy", func(context.Context, bidding.AuctionTx) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	s := worker.NewExpiryScheduler(store, &endedSink{}).WithBatchSize(1)

	closed, err := s.SweepNow(ctx)
	close(release)
	<-done

	rq.NoError(err)
	rq.Equal(2, closed)

	busy, err := store.GetAuction(ctx, "busy")
	rq.NoError(err)
	rq.Equal(value.AuctionStatusActive, busy.Status)

	closed, err = s.SweepNow(ctx)
	rq.NoError(err)
	rq.Equal(1, closed)
}

// flakyStore fails the bulk update and the per-auction update of one id.
type flakyStore struct {
	*memstore.Store
	failID string
}

func (f flakyStore) BulkUpdateStatus(context.Context, []string, value.AuctionStatus, value.AuctionStatus, time.Time) ([]entity.Auction, error) {
	return nil, errors.New("statement timeout")
}

func (f flakyStore) UpdateStatus(
	ctx context.Context,
	id string,
	from, to value.AuctionStatus,
	now time.Time,
) (*entity.Auction, error) {
	if id == f.failID {
		return nil, errors.New("row lock")
	}
	return f.Store.UpdateStatus(ctx, id, from, to, now)
}

func TestSweepFallsBackAndIsolatesFailures(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	now := time.Now()

	store := memstore.New(time.Second)
	seed(store, "a", now.Add(-3*time.Minute), strPtr("u1"))
	seed(store, "b", now.Add(-2*time.Minute), strPtr("u2"))
	seed(store, "c", now.Add(-time.Minute), nil)

	sink := &endedSink{}
	s := worker.NewExpiryScheduler(flakyStore{Store: store, failID: "b"}, sink)

	closed, err := s.SweepNow(ctx)
	rq.NoError(err)
	rq.Equal(2, closed)
	rq.Equal(1, sink.count())

	b, err := store.GetAuction(ctx, "b")
	rq.NoError(err)
	rq.Equal(value.AuctionStatusActive, b.Status)

	c, err := store.GetAuction(ctx, "c")
	rq.NoError(err)
	rq.Equal(value.AuctionStatusEnded, c.Status)
}

// slowStore blocks ListExpired until released and counts concurrent calls.
type slowStore struct {
	*memstore.Store
	release  chan struct{}
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (s *slowStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]entity.Auction, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	if n > s.maxSeen.Load() {
		s.maxSeen.Store(n)
	}

	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return s.Store.ListExpired(ctx, now, limit)
}

func TestSweepsNeverOverlap(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	store := &slowStore{Store: memstore.New(time.Second), release: make(chan struct{})}
	seed(store.Store, "a", time.Now().Add(-time.Minute), nil)

	s := worker.NewExpiryScheduler(store, &endedSink{})

	var wg sync.WaitGroup
	results := make(chan int, 3)
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			closed, err := s.SweepNow(ctx)
			if err == nil {
				results <- closed
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(store.release)
	wg.Wait()
	close(results)

	total := 0
	for r := range results {
		total += r
	}

	rq.EqualValues(1, store.maxSeen.Load())
	rq.Equal(1, total)
}

func TestSweepTimeout(t *testing.T) {
	rq := require.New(t)

	store := &slowStore{Store: memstore.New(time.Second), release: make(chan struct{})}
	s := worker.NewExpiryScheduler(store, &endedSink{}).WithInterval(time.Minute, 20*time.Millisecond)

	_, err := s.SweepNow(context.Background())
	rq.ErrorIs(err, context.DeadlineExceeded)
}

type heldLocker struct{}

func (heldLocker) TryLock(context.Context) (func(context.Context) error, bool, error) {
	return nil, false, nil
}

func TestSweepSkipsWhenAnotherReplicaHoldsLock(t *testing.T) {
	rq := require.New(t)

	store := memstore.New(time.Second)
	seed(store, "a", time.Now().Add(-time.Minute), nil)

	s := worker.NewExpiryScheduler(store, &endedSink{}).WithLocker(heldLocker{})

	closed, err := s.SweepNow(context.Background())
	rq.NoError(err)
	rq.Zero(closed)
}

func TestStartSweepsImmediately(t *testing.T) {
	rq := require.New(t)

	store := memstore.New(time.Second)
	seed(store, "a", time.Now().Add(-time.Minute), strPtr("u1"))

	sink := &endedSink{}
	s := worker.NewExpiryScheduler(store, sink).WithInterval(time.Hour, time.Second)

	rq.NoError(s.Start(context.Background()))
	rq.True(s.IsRunning())
	rq.Error(s.Start(context.Background()))

	rq.Eventually(func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)

	s.Stop()
	rq.False(s.IsRunning())
	s.Stop()
}
