package entity

import "time"

// Bid is an append-only bid record. MaxAmount is the bidder's private
// ceiling and must not leave the engine towards other parties.
type Bid struct {
	ID        string    `json:"id"`
	AuctionID string    `json:"auctionId"`
	BidderID  string    `json:"bidderId"`
	Amount    int64     `json:"amount"`
	MaxAmount int64     `json:"-"`
	IsAutoBid bool      `json:"isAutoBid"`
	Seq       int64     `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}
