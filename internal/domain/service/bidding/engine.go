// Package bidding accepts bids against live auctions and keeps the
// price/winner aggregate consistent under concurrent submissions.
package bidding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"auction_engine/internal/domain"
	"auction_engine/internal/domain/entity"
	"auction_engine/internal/domain/service/proxybid"
	"auction_engine/internal/domain/value"
	"auction_engine/internal/metrics"
	"auction_engine/pkg/contextx"
	"auction_engine/pkg/errcodes"
	"auction_engine/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const (
	outcomeBuyNow  = "buy_now"
	outcomeWinning = "winning"
	outcomeOutbid  = "outbid"
)

type PlaceBidResult struct {
	WinnerID         string    `json:"winnerId"`
	CurrentPrice     int64     `json:"currentPrice"`
	IsWinning        bool      `json:"isWinning"`
	BuyNowTriggered  bool      `json:"buyNowTriggered"`
	AutoBidTriggered bool      `json:"autoBidTriggered"`
	BidCount         int       `json:"bidCount"`
	EndTime          time.Time `json:"endTime"`
	Extended         bool      `json:"extended"`
}

func (r PlaceBidResult) outcome() string {
	switch {
	case r.BuyNowTriggered:
		return outcomeBuyNow
	case r.IsWinning:
		return outcomeWinning
	default:
		return outcomeOutbid
	}
}

type Engine struct {
	ledger      Ledger
	eligibility EligibilitySource
	settings    SettingsSource
	events      EventSink
	metrics     *metrics.Metrics
	now         func() time.Time
	newID       func() string
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func NewEngine(
	ledger Ledger,
	eligibility EligibilitySource,
	settings SettingsSource,
	events EventSink,
	opts ...Option,
) *Engine {
	e := &Engine{
		ledger:      ledger,
		eligibility: eligibility,
		settings:    settings,
		events:      events,
		now:         time.Now,
		newID:       uuid.NewString,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// placement is what the atomic unit hands back for post-commit work.
type placement struct {
	result         PlaceBidResult
	sellerID       string
	previousWinner string
}

// PlaceBid submits a proxy bid with ceiling maxAmount on behalf of bidderID.
func (e *Engine) PlaceBid(ctx context.Context, auctionID, bidderID string, maxAmount int64) (PlaceBidResult, error) {
	started := e.now()

	log := logger(ctx).With(
		slog.String(logx.FieldAuctionID, auctionID),
		slog.String(logx.FieldBidderID, bidderID),
	)
	ctx = contextx.WithLogger(ctx, log)

	p, err := e.placeBid(ctx, auctionID, bidderID, maxAmount)
	if err != nil {
		code, _ := domain.CodeOf(err)
		e.metrics.BidRejected(code.String(), e.now().Sub(started))

		if domain.KindOf(err) == domain.KindPersistence {
			log.Error("place bid failed", logx.Error(err))
		} else {
			log.Info("bid rejected", slog.String(logx.FieldReasonCode, code.String()))
		}

		return PlaceBidResult{}, fmt.Errorf("bidding.PlaceBid: %w", err)
	}

	e.metrics.BidPlaced(p.result.outcome(), e.now().Sub(started))
	e.emit(ctx, auctionID, p)

	log.Info("bid placed",
		slog.String(logx.FieldWinnerID, p.result.WinnerID),
		slog.Int64(logx.FieldPrice, p.result.CurrentPrice),
		slog.Int(logx.FieldBidCount, p.result.BidCount),
		slog.Bool("extended", p.result.Extended),
		slog.Bool("buy-now", p.result.BuyNowTriggered),
	)

	return p.result, nil
}

func (e *Engine) placeBid(ctx context.Context, auctionID, bidderID string, maxAmount int64) (placement, error) {
	if maxAmount <= 0 {
		return placement{}, domain.NewError(domain.KindValidation, errcodes.InvalidAmount, "maxAmount must be a positive integer")
	}
	if bidderID == "" {
		return placement{}, domain.NewError(domain.KindValidation, errcodes.InvalidUserID, "bidder id is required")
	}
	if auctionID == "" {
		return placement{}, domain.NewError(domain.KindValidation, errcodes.InvalidAuctionID, "auction id is required")
	}

	// Read outside the unit; a value at most one TTL old is acceptable.
	cfg, err := e.settings.Get(ctx)
	if err != nil {
		logger(ctx).Warn("settings unavailable, using defaults", logx.Error(err))
		cfg = entity.DefaultAuctionSettings()
	}

	facts, err := e.loadBidderFacts(ctx, auctionID, bidderID)
	if err != nil {
		return placement{}, persistence(err, "load bidder eligibility")
	}

	var p placement

	err = e.ledger.InAuction(ctx, auctionID, func(ctx context.Context, tx AuctionTx) error {
		a, err := tx.Snapshot(ctx)
		if err != nil {
			return err
		}

		now := e.now()

		if err := checkEligibility(a, bidderID, facts, now); err != nil {
			return err
		}

		p = placement{sellerID: a.SellerID, previousWinner: a.WinnerID()}

		if a.HasBuyNow(maxAmount) {
			p.result, err = e.buyNow(ctx, tx, a, bidderID, maxAmount, now)
			return err
		}

		p.result, err = e.bid(ctx, tx, a, cfg, bidderID, maxAmount, now)
		return err
	})
	if err != nil {
		if domain.IsAppError(err) {
			return placement{}, err
		}
		return placement{}, domain.WrapError(err, domain.KindPersistence, errcodes.StorageFailure, "place bid")
	}

	p.result.IsWinning = p.result.WinnerID == bidderID

	return p, nil
}

func (e *Engine) buyNow(
	ctx context.Context,
	tx AuctionTx,
	a entity.Auction,
	bidderID string,
	maxAmount int64,
	now time.Time,
) (PlaceBidResult, error) {
	price := *a.BuyNowPrice

	err := tx.AppendBids(ctx, entity.Bid{
		ID:        e.newID(),
		AuctionID: a.ID,
		BidderID:  bidderID,
		Amount:    price,
		MaxAmount: maxAmount,
		CreatedAt: now,
	})
	if err != nil {
		return PlaceBidResult{}, fmt.Errorf("tx.AppendBids: %w", err)
	}

	upd := entity.AggregateUpdate{
		CurrentPrice:    price,
		CurrentWinnerID: bidderID,
		BidCount:        a.BidCount + 1,
		EndTime:         now,
		Status:          value.AuctionStatusEnded,
	}
	if err := tx.UpdateAggregate(ctx, upd); err != nil {
		return PlaceBidResult{}, fmt.Errorf("tx.UpdateAggregate: %w", err)
	}

	return PlaceBidResult{
		WinnerID:        bidderID,
		CurrentPrice:    price,
		BuyNowTriggered: true,
		BidCount:        upd.BidCount,
		EndTime:         now,
	}, nil
}

func (e *Engine) bid(
	ctx context.Context,
	tx AuctionTx,
	a entity.Auction,
	cfg entity.AuctionSettings,
	bidderID string,
	maxAmount int64,
	now time.Time,
) (PlaceBidResult, error) {
	last, err := tx.LastBid(ctx)
	if err != nil {
		return PlaceBidResult{}, fmt.Errorf("tx.LastBid: %w", err)
	}

	var outcome proxybid.Outcome

	if last == nil {
		if maxAmount < a.StartPrice {
			return PlaceBidResult{}, bidTooLow(a.StartPrice)
		}

		outcome = proxybid.Outcome{
			Winner:     bidderID,
			FinalPrice: a.StartPrice,
			Bids: []proxybid.Bid{
				{BidderID: bidderID, Amount: a.StartPrice, MaxAmount: maxAmount},
			},
		}
	} else {
		if a.IsWinner(bidderID) {
			return PlaceBidResult{}, domain.NewError(domain.KindState, errcodes.AlreadyWinning, "bidder is already the highest bidder")
		}
		if minimum := a.CurrentPrice + a.StepPrice; maxAmount < minimum {
			return PlaceBidResult{}, bidTooLow(minimum)
		}

		outcome = proxybid.Resolve(proxybid.Input{
			CurrentMax:    last.MaxAmount,
			CurrentWinner: a.WinnerID(),
			NewMax:        maxAmount,
			NewBidder:     bidderID,
			Step:          a.StepPrice,
		})
	}

	bids := make([]entity.Bid, 0, len(outcome.Bids))
	for _, b := range outcome.Bids {
		bids = append(bids, entity.Bid{
			ID:        e.newID(),
			AuctionID: a.ID,
			BidderID:  b.BidderID,
			Amount:    b.Amount,
			MaxAmount: b.MaxAmount,
			IsAutoBid: b.IsAutoBid,
			CreatedAt: now,
		})
	}

	if err := tx.AppendBids(ctx, bids...); err != nil {
		return PlaceBidResult{}, fmt.Errorf("tx.AppendBids: %w", err)
	}

	endTime, extended := extendDeadline(a, cfg, now)

	upd := entity.AggregateUpdate{
		CurrentPrice:    outcome.FinalPrice,
		CurrentWinnerID: outcome.Winner,
		BidCount:        a.BidCount + len(bids),
		EndTime:         endTime,
		Status:          a.Status,
	}
	if err := tx.UpdateAggregate(ctx, upd); err != nil {
		return PlaceBidResult{}, fmt.Errorf("tx.UpdateAggregate: %w", err)
	}

	return PlaceBidResult{
		WinnerID:         outcome.Winner,
		CurrentPrice:     outcome.FinalPrice,
		AutoBidTriggered: outcome.AutoBidTriggered(),
		BidCount:         upd.BidCount,
		EndTime:          endTime,
		Extended:         extended,
	}, nil
}

// extendDeadline pushes the deadline to now+duration when fewer than
// threshold remain. The deadline never moves backwards.
func extendDeadline(a entity.Auction, cfg entity.AuctionSettings, now time.Time) (time.Time, bool) {
	if !a.AutoExtend || a.EndTime.Sub(now) >= cfg.Threshold() {
		return a.EndTime, false
	}

	candidate := now.Add(cfg.Duration())
	if !candidate.After(a.EndTime) {
		return a.EndTime, false
	}

	return candidate, true
}

func bidTooLow(minimum int64) error {
	return domain.NewError(domain.KindState, errcodes.BidTooLow,
		fmt.Sprintf("maxAmount must be at least %d", minimum))
}

// bidderFacts are the per-bidder eligibility inputs. They are read before
// the auction unit is entered, so a unit holds a single storage connection
// and waits only on its own auction.
type bidderFacts struct {
	denied bool
	rating entity.BidderRating
}

func (e *Engine) loadBidderFacts(ctx context.Context, auctionID, bidderID string) (bidderFacts, error) {
	denied, err := e.eligibility.IsBidderDenied(ctx, auctionID, bidderID)
	if err != nil {
		return bidderFacts{}, fmt.Errorf("eligibility.IsBidderDenied: %w", err)
	}

	rating, err := e.eligibility.BidderRating(ctx, bidderID)
	if err != nil {
		return bidderFacts{}, fmt.Errorf("eligibility.BidderRating: %w", err)
	}

	return bidderFacts{denied: denied, rating: rating}, nil
}

// checkEligibility runs the checks in a fixed order so the first failing
// reason is reported.
func checkEligibility(a entity.Auction, bidderID string, facts bidderFacts, now time.Time) error {
	if !a.IsActive() {
		return domain.NewError(domain.KindState, errcodes.AuctionNotActive, "auction is not active")
	}
	if now.After(a.EndTime) {
		return domain.NewError(domain.KindState, errcodes.AuctionExpired, "auction has ended")
	}
	if a.SellerID == bidderID {
		return domain.NewError(domain.KindState, errcodes.SellerCannotBid, "seller cannot bid on own auction")
	}
	if facts.denied {
		return domain.NewError(domain.KindState, errcodes.BidderDenied, "bidder is blocked from this auction")
	}
	if !facts.rating.MeetsMinimum() {
		return domain.NewError(domain.KindEligibility, errcodes.RatingTooLow, fmt.Sprintf(
			"rating too low: %s%% (%d/%d), minimum required %d%%",
			facts.rating.PositivePercent().Round(0).String(), facts.rating.Positive, facts.rating.Total,
			entity.MinPositiveRatingPercent,
		))
	}

	return nil
}

func (e *Engine) emit(ctx context.Context, auctionID string, p placement) {
	now := e.now()

	if p.result.BuyNowTriggered {
		e.events.EnqueueAuctionEnded(ctx, entity.AuctionEndedEvent{
			AuctionID:  auctionID,
			WinnerID:   p.result.WinnerID,
			FinalPrice: p.result.CurrentPrice,
			SellerID:   p.sellerID,
			BuyNow:     true,
			OccurredAt: now,
		})
		return
	}

	e.events.EnqueueBidPlaced(ctx, entity.BidPlacedEvent{
		AuctionID:        auctionID,
		NewPrice:         p.result.CurrentPrice,
		NewWinnerID:      p.result.WinnerID,
		PreviousWinnerID: p.previousWinner,
		BidCount:         p.result.BidCount,
		EndTime:          p.result.EndTime,
		OccurredAt:       now,
	})
}
