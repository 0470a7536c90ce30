package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"auction_engine/internal/domain"
	"auction_engine/internal/domain/entity"
	"auction_engine/internal/domain/service/bidding"
	"auction_engine/internal/domain/value"
)

const DefaultLockTimeout = 3 * time.Second

// LedgerRepository stores auctions and their bids in Postgres. A unit on
// one auction holds that auction's row lock for its whole duration.
type LedgerRepository struct {
	db          *sqlx.DB
	lockTimeout time.Duration
}

func NewLedgerRepository(db *sqlx.DB, lockTimeout time.Duration) *LedgerRepository {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}

	return &LedgerRepository{db: db, lockTimeout: lockTimeout}
}

func (r *LedgerRepository) InAuction(
	ctx context.Context,
	auctionID string,
	fn func(ctx context.Context, tx bidding.AuctionTx) error,
) error {
	return withTx(ctx, r.db, r.lockTimeout, func(tx *sqlx.Tx) error {
		return fn(ctx, &auctionTx{tx: tx, auctionID: auctionID})
	})
}

// CreateAuction inserts an auction. Auction creation belongs to the
// catalog collaborator; the engine only needs it for seeding.
func (r *LedgerRepository) CreateAuction(ctx context.Context, a entity.Auction) error {
	const query = `
		INSERT INTO auctions (id, seller_id, start_price, step_price, buy_now_price, current_price,
			current_winner_id, bid_count, end_time, auto_extend, status)
		VALUES (:id, :seller_id, :start_price, :step_price, :buy_now_price, :current_price,
			:current_winner_id, :bid_count, :end_time, :auto_extend, :status)`

	if _, err := r.db.NamedExecContext(ctx, query, fromAuction(a)); err != nil {
		return mapError(err, "failed to create auction")
	}

	return nil
}

func (r *LedgerRepository) GetAuction(ctx context.Context, auctionID string) (entity.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`

	var s auctionSchema
	if err := r.db.GetContext(ctx, &s, query, auctionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Auction{}, domain.AuctionNotFound(auctionID)
		}
		return entity.Auction{}, mapError(err, "failed to get auction")
	}

	return s.toDomain(), nil
}

func (r *LedgerRepository) LastBid(ctx context.Context, auctionID string) (*entity.Bid, error) {
	return lastBid(ctx, r.db, auctionID)
}

func (r *LedgerRepository) ListBids(ctx context.Context, auctionID string, limit, offset int) ([]entity.Bid, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT count(*) FROM bids WHERE auction_id = $1`, auctionID); err != nil {
		return nil, 0, mapError(err, "failed to count bids")
	}

	query := `SELECT ` + bidColumns + ` FROM bids WHERE auction_id = $1 ORDER BY seq DESC LIMIT $2 OFFSET $3`

	var rows []bidSchema
	if err := r.db.SelectContext(ctx, &rows, query, auctionID, limit, offset); err != nil {
		return nil, 0, mapError(err, "failed to list bids")
	}

	return lo.Map(rows, func(s bidSchema, _ int) entity.Bid { return s.toDomain() }), total, nil
}

func (r *LedgerRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]entity.Auction, error) {
	query := `SELECT ` + auctionColumns + `
		FROM auctions
		WHERE status = $1 AND end_time < $2
		ORDER BY end_time
		LIMIT $3`

	if limit <= 0 {
		limit = 1000
	}

	var rows []auctionSchema
	if err := r.db.SelectContext(ctx, &rows, query, value.AuctionStatusActive.String(), now, limit); err != nil {
		return nil, mapError(err, "failed to list expired auctions")
	}

	return lo.Map(rows, func(s auctionSchema, _ int) entity.Auction { return s.toDomain() }), nil
}

// BulkUpdateStatus re-checks status and deadline in the UPDATE itself so a
// concurrent extension wins over a stale listing.
func (r *LedgerRepository) BulkUpdateStatus(
	ctx context.Context,
	auctionIDs []string,
	from, to value.AuctionStatus,
	now time.Time,
) ([]entity.Auction, error) {
	if len(auctionIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		UPDATE auctions SET status = ?, updated_at = now()
		WHERE id IN (?) AND status = ? AND end_time < ?
		RETURNING `+auctionColumns,
		to.String(), auctionIDs, from.String(), now,
	)
	if err != nil {
		return nil, mapError(err, "failed to build bulk update")
	}

	var rows []auctionSchema

	err = withTx(ctx, r.db, r.lockTimeout, func(tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &rows, tx.Rebind(query), args...)
	})
	if err != nil {
		return nil, err
	}

	return lo.Map(rows, func(s auctionSchema, _ int) entity.Auction { return s.toDomain() }), nil
}

func (r *LedgerRepository) UpdateStatus(
	ctx context.Context,
	auctionID string,
	from, to value.AuctionStatus,
	now time.Time,
) (*entity.Auction, error) {
	query := `
		UPDATE auctions SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3 AND end_time < $4
		RETURNING ` + auctionColumns

	var s auctionSchema

	err := withTx(ctx, r.db, r.lockTimeout, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &s, query, to.String(), auctionID, from.String(), now)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil //nolint:nilnil
		}
		return nil, err
	}

	a := s.toDomain()
	return &a, nil
}

type queryer interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

func lastBid(ctx context.Context, q queryer, auctionID string) (*entity.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE auction_id = $1 ORDER BY seq DESC LIMIT 1`

	var s bidSchema
	if err := q.GetContext(ctx, &s, query, auctionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil //nolint:nilnil
		}
		return nil, mapError(err, "failed to get last bid")
	}

	b := s.toDomain()
	return &b, nil
}
