package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"auction_engine/internal/domain"
	"auction_engine/internal/domain/entity"
)

type auctionTx struct {
	tx        *sqlx.Tx
	auctionID string
}

// Snapshot takes the auction's row lock. Every other unit on the same
// auction waits here until this transaction ends.
func (t *auctionTx) Snapshot(ctx context.Context) (entity.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1 FOR UPDATE`

	var s auctionSchema
	if err := t.tx.GetContext(ctx, &s, query, t.auctionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Auction{}, domain.AuctionNotFound(t.auctionID)
		}
		return entity.Auction{}, mapError(err, "failed to lock auction")
	}

	return s.toDomain(), nil
}

func (t *auctionTx) LastBid(ctx context.Context) (*entity.Bid, error) {
	return lastBid(ctx, t.tx, t.auctionID)
}

func (t *auctionTx) AppendBids(ctx context.Context, bids ...entity.Bid) error {
	const query = `
		INSERT INTO bids (id, auction_id, bidder_id, amount, max_amount, is_auto_bid, created_at)
		VALUES (:id, :auction_id, :bidder_id, :amount, :max_amount, :is_auto_bid, :created_at)`

	// One statement per bid keeps seq in append order.
	for _, b := range bids {
		if _, err := t.tx.NamedExecContext(ctx, query, fromBid(b)); err != nil {
			return mapError(err, "failed to append bid")
		}
	}

	return nil
}

func (t *auctionTx) UpdateAggregate(ctx context.Context, upd entity.AggregateUpdate) error {
	const query = `
		UPDATE auctions
		SET current_price = $1, current_winner_id = $2, bid_count = $3, end_time = $4, status = $5,
			updated_at = now()
		WHERE id = $6`

	res, err := t.tx.ExecContext(ctx, query,
		upd.CurrentPrice, upd.CurrentWinnerID, upd.BidCount, upd.EndTime, upd.Status.String(), t.auctionID)
	if err != nil {
		return mapError(err, "failed to update auction")
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.AuctionNotFound(t.auctionID)
	}

	return nil
}
