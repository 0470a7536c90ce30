package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"git.appkode.ru/pub/go/failure"
	"github.com/go-chi/chi/v5"

	"auction_engine/internal/domain/service/bidding"
	"auction_engine/pkg/contextx"
	"auction_engine/pkg/errcodes"
	"auction_engine/pkg/httpx/reply"
	"auction_engine/pkg/httpx/req"
	"auction_engine/pkg/rest"
)

type biddingService interface {
	PlaceBid(ctx context.Context, auctionID, bidderID string, maxAmount int64) (bidding.PlaceBidResult, error)
	CanBid(ctx context.Context, auctionID, bidderID string) (bidding.Eligibility, error)
	CurrentWinner(ctx context.Context, auctionID string) (bidding.WinnerView, error)
	BidHistory(ctx context.Context, auctionID string, limit, offset int) (bidding.BidHistoryPage, error)
}

type BidServer struct {
	biddingService biddingService
}

func NewBidServer(biddingService biddingService) BidServer {
	return BidServer{
		biddingService: biddingService,
	}
}

func (s BidServer) postV1Bid(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	auctionID, err := auctionIDParam(r)
	if err != nil {
		return err
	}

	bidderID, err := callerID(ctx)
	if err != nil {
		return err
	}

	var request rest.PlaceBidRequest
	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	result, err := s.biddingService.PlaceBid(ctx, auctionID, bidderID, *request.MaxAmount)
	if err != nil {
		return fmt.Errorf("biddingService.PlaceBid: %w", err)
	}

	reply.JSON(ctx, w, http.StatusCreated, newRESTPlaceBid(result))

	return nil
}

func (s BidServer) getV1Bids(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	auctionID, err := auctionIDParam(r)
	if err != nil {
		return err
	}

	limit, err := intQuery(r, "limit")
	if err != nil {
		return err
	}

	offset, err := intQuery(r, "offset")
	if err != nil {
		return err
	}

	page, err := s.biddingService.BidHistory(ctx, auctionID, limit, offset)
	if err != nil {
		return fmt.Errorf("biddingService.BidHistory: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTBidHistory(page))

	return nil
}

func (s BidServer) getV1Winner(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	auctionID, err := auctionIDParam(r)
	if err != nil {
		return err
	}

	winner, err := s.biddingService.CurrentWinner(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("biddingService.CurrentWinner: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTWinner(winner))

	return nil
}

func (s BidServer) getV1CanBid(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	auctionID, err := auctionIDParam(r)
	if err != nil {
		return err
	}

	bidderID, err := callerID(ctx)
	if err != nil {
		return err
	}

	eligibility, err := s.biddingService.CanBid(ctx, auctionID, bidderID)
	if err != nil {
		return fmt.Errorf("biddingService.CanBid: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTCanBid(eligibility))

	return nil
}

func auctionIDParam(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if id == "" {
		return "", failure.NewInvalidArgumentError(
			"empty auction id",
			failure.WithCode(errcodes.InvalidAuctionID),
			failure.WithDescription("auction id is required"),
		)
	}

	return id, nil
}

func callerID(ctx context.Context) (string, error) {
	userID, err := contextx.UserIDFromContext(ctx)
	if err != nil {
		return "", failure.NewInvalidArgumentErrorFromError(
			fmt.Errorf("contextx.UserIDFromContext: %w", err),
			failure.WithCode(errcodes.InvalidUserID),
			failure.WithDescription("X-User-Id header is required"),
		)
	}

	return userID.String(), nil
}

// intQuery returns 0 for a missing parameter; the service applies defaults.
func intQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, failure.NewInvalidArgumentErrorFromError(
			fmt.Errorf("strconv.Atoi(%s): %w", name, err),
			failure.WithCode(errcodes.InvalidPaging),
			failure.WithDescription(name+" must be an integer"),
		)
	}

	return n, nil
}
