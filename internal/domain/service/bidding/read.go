package bidding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"git.appkode.ru/pub/go/failure"

	"auction_engine/internal/domain"
	"auction_engine/internal/domain/entity"
	"auction_engine/pkg/errcodes"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100

	maskPrefix   = "****"
	maskedSuffix = 3
)

type Eligibility struct {
	CanBid  bool              `json:"canBid"`
	Reason  failure.ErrorCode `json:"reason,omitempty"`
	Message string            `json:"message,omitempty"`
}

// PublicBid is a bid as shown to anyone other than its bidder.
type PublicBid struct {
	ID        string    `json:"id"`
	BidderID  string    `json:"bidder"`
	Amount    int64     `json:"amount"`
	IsAutoBid bool      `json:"isAutoBid"`
	CreatedAt time.Time `json:"createdAt"`
}

type WinnerView struct {
	CurrentPrice    int64      `json:"currentPrice"`
	CurrentWinnerID *string    `json:"currentWinnerId"`
	BidCount        int        `json:"bidCount"`
	LastBid         *PublicBid `json:"lastBid"`
}

type BidHistoryPage struct {
	Bids   []PublicBid `json:"bids"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// CanBid reports whether bidderID would pass the eligibility checks right
// now. Check failures are returned as a reason, not as an error.
func (e *Engine) CanBid(ctx context.Context, auctionID, bidderID string) (Eligibility, error) {
	a, err := e.ledger.GetAuction(ctx, auctionID)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return rejected(err), nil
		}
		return Eligibility{}, fmt.Errorf("bidding.CanBid: %w", persistence(err, "get auction"))
	}

	facts, err := e.loadBidderFacts(ctx, auctionID, bidderID)
	if err != nil {
		return Eligibility{}, fmt.Errorf("bidding.CanBid: %w", persistence(err, "load bidder eligibility"))
	}

	if err := checkEligibility(a, bidderID, facts, e.now()); err != nil {
		return rejected(err), nil
	}

	return Eligibility{CanBid: true}, nil
}

func rejected(err error) Eligibility {
	code, _ := domain.CodeOf(err)

	var msg string
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}

	return Eligibility{Reason: code, Message: msg}
}

func (e *Engine) CurrentWinner(ctx context.Context, auctionID string) (WinnerView, error) {
	a, err := e.ledger.GetAuction(ctx, auctionID)
	if err != nil {
		return WinnerView{}, fmt.Errorf("bidding.CurrentWinner: %w", persistence(err, "get auction"))
	}

	last, err := e.ledger.LastBid(ctx, auctionID)
	if err != nil {
		return WinnerView{}, fmt.Errorf("bidding.CurrentWinner: %w", persistence(err, "last bid"))
	}

	view := WinnerView{
		CurrentPrice:    a.CurrentPrice,
		CurrentWinnerID: a.CurrentWinnerID,
		BidCount:        a.BidCount,
	}
	if last != nil {
		pb := toPublicBid(*last)
		view.LastBid = &pb
	}

	return view, nil
}

// BidHistory pages through bids newest first with bidder identities masked.
func (e *Engine) BidHistory(ctx context.Context, auctionID string, limit, offset int) (BidHistoryPage, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		return BidHistoryPage{}, domain.NewError(domain.KindValidation, errcodes.InvalidPaging, "offset must not be negative")
	}

	if _, err := e.ledger.GetAuction(ctx, auctionID); err != nil {
		return BidHistoryPage{}, fmt.Errorf("bidding.BidHistory: %w", persistence(err, "get auction"))
	}

	bids, total, err := e.ledger.ListBids(ctx, auctionID, limit, offset)
	if err != nil {
		return BidHistoryPage{}, fmt.Errorf("bidding.BidHistory: %w", persistence(err, "list bids"))
	}

	page := BidHistoryPage{
		Bids:   make([]PublicBid, 0, len(bids)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for _, b := range bids {
		pb := toPublicBid(b)
		pb.BidderID = MaskBidder(b.BidderID)
		page.Bids = append(page.Bids, pb)
	}

	return page, nil
}

func toPublicBid(b entity.Bid) PublicBid {
	return PublicBid{
		ID:        b.ID,
		BidderID:  b.BidderID,
		Amount:    b.Amount,
		IsAutoBid: b.IsAutoBid,
		CreatedAt: b.CreatedAt,
	}
}

// MaskBidder keeps only the last three characters of a bidder identity.
func MaskBidder(bidderID string) string {
	r := []rune(bidderID)
	if len(r) <= maskedSuffix {
		return maskPrefix + bidderID
	}
	return maskPrefix + string(r[len(r)-maskedSuffix:])
}

func persistence(err error, msg string) error {
	if domain.IsAppError(err) {
		return err
	}
	return domain.WrapError(err, domain.KindPersistence, errcodes.StorageFailure, msg)
}
