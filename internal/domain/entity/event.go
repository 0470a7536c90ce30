package entity

import "time"

const (
	EventBidPlaced    = "bid:placed"
	EventAuctionEnded = "auction:ended"
)

type BidPlacedEvent struct {
	AuctionID        string    `json:"auctionId"`
	NewPrice         int64     `json:"newPrice"`
	NewWinnerID      string    `json:"newWinnerId"`
	PreviousWinnerID string    `json:"previousWinnerId,omitempty"`
	BidCount         int       `json:"bidCount"`
	EndTime          time.Time `json:"endTime"`
	OccurredAt       time.Time `json:"occurredAt"`
}

// AuctionEndedEvent is emitted only when an auction closes with a winner.
type AuctionEndedEvent struct {
	AuctionID  string    `json:"auctionId"`
	WinnerID   string    `json:"winnerId"`
	FinalPrice int64     `json:"finalPrice"`
	SellerID   string    `json:"sellerId"`
	BuyNow     bool      `json:"buyNow"`
	OccurredAt time.Time `json:"occurredAt"`
}
