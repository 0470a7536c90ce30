package memstore

import (
	"context"

	"auction_engine/internal/domain"
	"auction_engine/internal/domain/entity"
	"auction_engine/pkg/errcodes"
)

// auctionTx buffers writes until the unit commits.
type auctionTx struct {
	store     *Store
	auctionID string
	bids      []entity.Bid
	update    *entity.AggregateUpdate
}

func (t *auctionTx) Snapshot(ctx context.Context) (entity.Auction, error) {
	a, err := t.store.GetAuction(ctx, t.auctionID)
	if err != nil {
		return entity.Auction{}, err
	}

	if t.update != nil {
		winner := t.update.CurrentWinnerID
		a.CurrentPrice = t.update.CurrentPrice
		a.CurrentWinnerID = &winner
		a.BidCount = t.update.BidCount
		a.EndTime = t.update.EndTime
		a.Status = t.update.Status
	}

	return a, nil
}

func (t *auctionTx) LastBid(context.Context) (*entity.Bid, error) {
	if n := len(t.bids); n > 0 {
		last := t.bids[n-1]
		return &last, nil
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	return t.store.lastBidLocked(t.auctionID), nil
}

func (t *auctionTx) AppendBids(_ context.Context, bids ...entity.Bid) error {
	t.bids = append(t.bids, bids...)
	return nil
}

func (t *auctionTx) UpdateAggregate(ctx context.Context, upd entity.AggregateUpdate) error {
	if _, err := t.store.GetAuction(ctx, t.auctionID); err != nil {
		return err
	}
	if upd.CurrentWinnerID == "" {
		return domain.NewError(domain.KindPersistence, errcodes.StorageFailure, "aggregate update without a winner")
	}

	t.update = &upd
	return nil
}
