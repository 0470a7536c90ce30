package bidding

import (
	"context"

	"auction_engine/internal/domain/entity"
)

// AuctionTx is the view of one auction inside its atomic unit. Stores
// return a KindNotFound error from Snapshot for unknown auctions.
type AuctionTx interface {
	Snapshot(ctx context.Context) (entity.Auction, error)
	// LastBid returns the most recent bid by Seq, or nil.
	LastBid(ctx context.Context) (*entity.Bid, error)
	AppendBids(ctx context.Context, bids ...entity.Bid) error
	UpdateAggregate(ctx context.Context, upd entity.AggregateUpdate) error
}

// Ledger owns bid rows and auction aggregates.
//
// InAuction runs fn as one all-or-nothing unit serialized against every
// other unit on the same auction. When the unit cannot be entered in time
// it returns a KindContention error and fn is not called.
type Ledger interface {
	InAuction(ctx context.Context, auctionID string, fn func(ctx context.Context, tx AuctionTx) error) error

	GetAuction(ctx context.Context, auctionID string) (entity.Auction, error)
	LastBid(ctx context.Context, auctionID string) (*entity.Bid, error)
	// ListBids returns bids newest first and the total number of bids.
	ListBids(ctx context.Context, auctionID string, limit, offset int) ([]entity.Bid, int, error)
}

type EligibilitySource interface {
	IsBidderDenied(ctx context.Context, auctionID, bidderID string) (bool, error)
	BidderRating(ctx context.Context, bidderID string) (entity.BidderRating, error)
}

// Notifier delivers events to the notification collaborator.
type Notifier interface {
	BidPlaced(ctx context.Context, e entity.BidPlacedEvent) error
	AuctionEnded(ctx context.Context, e entity.AuctionEndedEvent) error
}

type SettingsSource interface {
	Get(ctx context.Context) (entity.AuctionSettings, error)
}

// EventSink accepts events after commit. Implementations must not block.
type EventSink interface {
	EnqueueBidPlaced(ctx context.Context, e entity.BidPlacedEvent) bool
	EnqueueAuctionEnded(ctx context.Context, e entity.AuctionEndedEvent) bool
}
