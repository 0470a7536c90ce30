package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"auction_engine/internal/domain"
	"auction_engine/internal/domain/entity"
	"auction_engine/internal/domain/service/bidding"
	"auction_engine/internal/domain/value"
	"auction_engine/internal/infrastructure/memstore"
)

func activeAuction(id string, end time.Time) entity.Auction {
	return entity.Auction{
		ID:           id,
		SellerID:     "seller",
		StartPrice:   100,
		StepPrice:    10,
		CurrentPrice: 100,
		EndTime:      end,
		Status:       value.AuctionStatusActive,
	}
}

func TestInAuctionCommitsOnSuccess(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	s := memstore.New(time.Second)
	s.PutAuction(activeAuction("a1", time.Now().Add(time.Hour)))

	err := s.InAuction(ctx, "a1", func(ctx context.Context, tx bidding.AuctionTx) error {
		if err := tx.AppendBids(ctx,
			entity.Bid{ID: "b1", AuctionID: "a1", BidderID: "u1", Amount: 100, MaxAmount: 500},
			entity.Bid{ID: "b2", AuctionID: "a1", BidderID: "u2", Amount: 110, MaxAmount: 110},
		); err != nil {
			return err
		}

		last, err := tx.LastBid(ctx)
		rq.NoError(err)
		rq.Equal("b2", last.ID)

		return tx.UpdateAggregate(ctx, entity.AggregateUpdate{
			CurrentPrice: 110, CurrentWinnerID: "u1", BidCount: 2,
			EndTime: time.Now().Add(time.Hour), Status: value.AuctionStatusActive,
		})
	})
	rq.NoError(err)

	a, err := s.GetAuction(ctx, "a1")
	rq.NoError(err)
	rq.EqualValues(110, a.CurrentPrice)
	rq.Equal("u1", a.WinnerID())
	rq.Equal(2, s.CountBids("a1"))

	bids, total, err := s.ListBids(ctx, "a1", 10, 0)
	rq.NoError(err)
	rq.Equal(2, total)
	rq.Equal("b2", bids[0].ID)
	rq.Greater(bids[0].Seq, bids[1].Seq)
}

func TestInAuctionDiscardsOnError(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	s := memstore.New(time.Second)
	s.PutAuction(activeAuction("a1", time.Now().Add(time.Hour)))

	boom := errors.New("boom")
	err := s.InAuction(ctx, "a1", func(ctx context.Context, tx bidding.AuctionTx) error {
		rq.NoError(tx.AppendBids(ctx, entity.Bid{ID: "b1", AuctionID: "a1", BidderID: "u1", Amount: 100, MaxAmount: 100}))
		return boom
	})
	rq.ErrorIs(err, boom)
	rq.Zero(s.CountBids("a1"))
}

func TestInAuctionContention(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	s := memstore.New(50 * time.Millisecond)
	s.PutAuction(activeAuction("a1", time.Now().Add(time.Hour)))
	s.PutAuction(activeAuction("a2", time.Now().Add(time.Hour)))

	holding := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_ = s.InAuction(ctx, "a1", func(context.Context, bidding.AuctionTx) error {
			close(holding)
			<-done
			return nil
		})
	}()
	<-holding
	defer close(done)

	err := s.InAuction(ctx, "a1", func(context.Context, bidding.AuctionTx) error {
		t.Fatal("unit entered while locked")
		return nil
	})
	rq.Equal(domain.KindContention, domain.KindOf(err))

	// Other auctions are unaffected.
	rq.NoError(s.InAuction(ctx, "a2", func(context.Context, bidding.AuctionTx) error { return nil }))
}

func TestSnapshotUnknownAuction(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	s := memstore.New(time.Second)

	err := s.InAuction(ctx, "missing", func(ctx context.Context, tx bidding.AuctionTx) error {
		_, err := tx.Snapshot(ctx)
		return err
	})
	rq.Equal(domain.KindNotFound, domain.KindOf(err))
}

func TestBulkUpdateStatusIsIdempotent(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	now := time.Now()

	s := memstore.New(time.Second)
	s.PutAuction(activeAuction("old", now.Add(-time.Minute)))
	s.PutAuction(activeAuction("live", now.Add(time.Minute)))

	expired, err := s.ListExpired(ctx, now, 0)
	rq.NoError(err)
	rq.Len(expired, 1)

	ids := []string{"old", "live"}

	closed, err := s.BulkUpdateStatus(ctx, ids, value.AuctionStatusActive, value.AuctionStatusEnded, now)
	rq.NoError(err)
	rq.Len(closed, 1)
	rq.Equal("old", closed[0].ID)

	closed, err = s.BulkUpdateStatus(ctx, ids, value.AuctionStatusActive, value.AuctionStatusEnded, now)
	rq.NoError(err)
	rq.Empty(closed)

	live, err := s.GetAuction(ctx, "live")
	rq.NoError(err)
	rq.Equal(value.AuctionStatusActive, live.Status)
}

func TestSettingsRoundTrip(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	s := memstore.New(time.Second)

	_, found, err := s.LoadSettings(ctx)
	rq.NoError(err)
	rq.False(found)

	rq.NoError(s.SaveSettings(ctx, entity.DefaultAuctionSettings()))

	got, found, err := s.LoadSettings(ctx)
	rq.NoError(err)
	rq.True(found)
	rq.Equal(entity.DefaultAuctionSettings(), got)
}
