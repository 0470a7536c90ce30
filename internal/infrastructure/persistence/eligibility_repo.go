package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"auction_engine/internal/domain/entity"
)

// EligibilityRepository reads deny-lists and bidder ratings. Both are
// written by other collaborators.
type EligibilityRepository struct {
	db *sqlx.DB
}

func NewEligibilityRepository(db *sqlx.DB) *EligibilityRepository {
	return &EligibilityRepository{db: db}
}

func (r *EligibilityRepository) IsBidderDenied(ctx context.Context, auctionID, bidderID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM denied_bidders WHERE auction_id = $1 AND bidder_id = $2)`

	var denied bool
	if err := r.db.GetContext(ctx, &denied, query, auctionID, bidderID); err != nil {
		return false, mapError(err, "failed to check deny-list")
	}

	return denied, nil
}

// BidderRating returns the zero rating for bidders without history.
func (r *EligibilityRepository) BidderRating(ctx context.Context, bidderID string) (entity.BidderRating, error) {
	const query = `SELECT positive_ratings, negative_ratings FROM bidder_ratings WHERE bidder_id = $1`

	var row struct {
		Positive int `db:"positive_ratings"`
		Negative int `db:"negative_ratings"`
	}
	if err := r.db.GetContext(ctx, &row, query, bidderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.BidderRating{}, nil
		}
		return entity.BidderRating{}, mapError(err, "failed to get bidder rating")
	}

	return entity.BidderRating{Positive: row.Positive, Total: row.Positive + row.Negative}, nil
}

func (r *EligibilityRepository) DenyBidder(ctx context.Context, auctionID, bidderID string) error {
	const query = `INSERT INTO denied_bidders (auction_id, bidder_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, auctionID, bidderID); err != nil {
		return mapError(err, "failed to deny bidder")
	}

	return nil
}
