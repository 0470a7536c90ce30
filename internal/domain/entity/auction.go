package entity

import (
	"time"

	"auction_engine/internal/domain/value"
)

// Auction is the per-auction aggregate the engine maintains.
type Auction struct {
	ID              string              `json:"id"`
	SellerID        string              `json:"sellerId"`
	StartPrice      int64               `json:"startPrice"`
	StepPrice       int64               `json:"stepPrice"`
	BuyNowPrice     *int64              `json:"buyNowPrice,omitempty"`
	CurrentPrice    int64               `json:"currentPrice"`
	CurrentWinnerID *string             `json:"currentWinnerId,omitempty"`
	BidCount        int                 `json:"bidCount"`
	EndTime         time.Time           `json:"endTime"`
	AutoExtend      bool                `json:"autoExtend"`
	Status          value.AuctionStatus `json:"status"`
}

func (a Auction) IsActive() bool {
	return a.Status == value.AuctionStatusActive
}

// HasBuyNow reports whether maxAmount reaches the buy-now price.
func (a Auction) HasBuyNow(maxAmount int64) bool {
	return a.BuyNowPrice != nil && maxAmount >= *a.BuyNowPrice
}

func (a Auction) IsWinner(bidderID string) bool {
	return a.CurrentWinnerID != nil && *a.CurrentWinnerID == bidderID
}

func (a Auction) WinnerID() string {
	if a.CurrentWinnerID == nil {
		return ""
	}
	return *a.CurrentWinnerID
}

// AggregateUpdate is the mutable part of an auction written back in one
// atomic unit.
type AggregateUpdate struct {
	CurrentPrice    int64
	CurrentWinnerID string
	BidCount        int
	EndTime         time.Time
	Status          value.AuctionStatus
}
