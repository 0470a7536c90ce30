package persistence

import (
	"database/sql"
	"time"

	"auction_engine/internal/domain/entity"
	"auction_engine/internal/domain/value"
)

const auctionColumns = `id, seller_id, start_price, step_price, buy_now_price, current_price,
	current_winner_id, bid_count, end_time, auto_extend, status`

const bidColumns = `seq, id, auction_id, bidder_id, amount, max_amount, is_auto_bid, created_at`

// auctionSchema maps a row of the auctions table.
type auctionSchema struct {
	ID              string         `db:"id"`
	SellerID        string         `db:"seller_id"`
	StartPrice      int64          `db:"start_price"`
	StepPrice       int64          `db:"step_price"`
	BuyNowPrice     sql.NullInt64  `db:"buy_now_price"`
	CurrentPrice    int64          `db:"current_price"`
	CurrentWinnerID sql.NullString `db:"current_winner_id"`
	BidCount        int            `db:"bid_count"`
	EndTime         time.Time      `db:"end_time"`
	AutoExtend      bool           `db:"auto_extend"`
	Status          string         `db:"status"`
}

func (s *auctionSchema) toDomain() entity.Auction {
	a := entity.Auction{
		ID:           s.ID,
		SellerID:     s.SellerID,
		StartPrice:   s.StartPrice,
		StepPrice:    s.StepPrice,
		CurrentPrice: s.CurrentPrice,
		BidCount:     s.BidCount,
		EndTime:      s.EndTime,
		AutoExtend:   s.AutoExtend,
		Status:       value.AuctionStatus(s.Status),
	}
	if s.BuyNowPrice.Valid {
		p := s.BuyNowPrice.Int64
		a.BuyNowPrice = &p
	}
	if s.CurrentWinnerID.Valid {
		w := s.CurrentWinnerID.String
		a.CurrentWinnerID = &w
	}
	return a
}

func fromAuction(a entity.Auction) auctionSchema {
	s := auctionSchema{
		ID:           a.ID,
		SellerID:     a.SellerID,
		StartPrice:   a.StartPrice,
		StepPrice:    a.StepPrice,
		CurrentPrice: a.CurrentPrice,
		BidCount:     a.BidCount,
		EndTime:      a.EndTime,
		AutoExtend:   a.AutoExtend,
		Status:       a.Status.String(),
	}
	if a.BuyNowPrice != nil {
		s.BuyNowPrice = sql.NullInt64{Int64: *a.BuyNowPrice, Valid: true}
	}
	if a.CurrentWinnerID != nil {
		s.CurrentWinnerID = sql.NullString{String: *a.CurrentWinnerID, Valid: true}
	}
	return s
}

type bidSchema struct {
	Seq       int64     `db:"seq"`
	ID        string    `db:"id"`
	AuctionID string    `db:"auction_id"`
	BidderID  string    `db:"bidder_id"`
	Amount    int64     `db:"amount"`
	MaxAmount int64     `db:"max_amount"`
	IsAutoBid bool      `db:"is_auto_bid"`
	CreatedAt time.Time `db:"created_at"`
}

func (s *bidSchema) toDomain() entity.Bid {
	return entity.Bid{
		ID:        s.ID,
		AuctionID: s.AuctionID,
		BidderID:  s.BidderID,
		Amount:    s.Amount,
		MaxAmount: s.MaxAmount,
		IsAutoBid: s.IsAutoBid,
		Seq:       s.Seq,
		CreatedAt: s.CreatedAt,
	}
}

func fromBid(b entity.Bid) bidSchema {
	return bidSchema{
		ID:        b.ID,
		AuctionID: b.AuctionID,
		BidderID:  b.BidderID,
		Amount:    b.Amount,
		MaxAmount: b.MaxAmount,
		IsAutoBid: b.IsAutoBid,
		CreatedAt: b.CreatedAt,
	}
}

type settingsSchema struct {
	ThresholdMinutes int `db:"auto_extend_threshold_minutes"`
	DurationMinutes  int `db:"auto_extend_duration_minutes"`
}
