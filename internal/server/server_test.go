package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"auction_engine/internal/domain/entity"
	"auction_engine/internal/domain/service/bidding"
	"auction_engine/internal/domain/service/settings"
	"auction_engine/internal/domain/value"
	"auction_engine/internal/infrastructure/memstore"
	"auction_engine/internal/server"
	"auction_engine/internal/worker"
	"auction_engine/pkg/errcodes"
	"auction_engine/pkg/httpx"
	"auction_engine/pkg/logx"
	"auction_engine/pkg/rest"
	"auction_engine/pkg/tests"
)

const (
	auctionPath = "/v1/auctions/auction-1"
	startPrice  = int64(100000)
)

type nopSink struct {
	mu    sync.Mutex
	ended int
}

func (*nopSink) EnqueueBidPlaced(context.Context, entity.BidPlacedEvent) bool { return true }

func (s *nopSink) EnqueueAuctionEnded(context.Context, entity.AuctionEndedEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended++
	return true
}

type env struct {
	store  *memstore.Store
	client tests.APIClient
	random tests.Randomizer
}

func newEnv(t *testing.T) *env {
	t.Helper()

	store := memstore.New(50 * time.Millisecond)
	sink := &nopSink{}
	provider := settings.NewProvider(store, time.Minute)
	engine := bidding.NewEngine(store, store, provider, sink)
	scheduler := worker.NewExpiryScheduler(store, sink)

	srv := server.NewServer(
		server.NewBidServer(engine),
		server.NewAdminServer(provider, scheduler),
	)

	ts := httptest.NewServer(srv.Handler(logx.NewSensitiveDataMasker()))
	t.Cleanup(ts.Close)

	store.PutAuction(entity.Auction{
		ID:           "auction-1",
		SellerID:     "seller-1",
		StartPrice:   startPrice,
		StepPrice:    1000,
		CurrentPrice: startPrice,
		EndTime:      time.Now().Add(time.Hour),
		Status:       value.AuctionStatusActive,
	})

	return &env{
		store: store,
		client: tests.NewAPIClient(ts.URL, &http.Client{
			Transport: httpx.NewLoggingRoundTripper(
				http.DefaultTransport,
				httpx.WithSensitiveDataMasker(logx.NewSensitiveDataMasker()),
			),
		}),
		random: tests.NewRandomizer(),
	}
}

func as(userID string) http.Header {
	h := http.Header{}
	h.Set("X-User-Id", userID)
	return h
}

func (e *env) bid(t *testing.T, userID string, amount int64) (*http.Response, rest.PlaceBidResponse, rest.Error) {
	t.Helper()

	var (
		out    rest.PlaceBidResponse
		errOut rest.Error
	)

	resp, err := e.client.Post(context.Background(), auctionPath+"/bids", as(userID),
		rest.PlaceBidRequest{MaxAmount: &amount}, &out, &errOut)
	require.NoError(t, err)

	return resp, out, errOut
}

func TestPostBid(t *testing.T) {
	rq := require.New(t)
	e := newEnv(t)

	ceiling := startPrice + e.random.Int64n(50000)

	resp, out, _ := e.bid(t, "bidder-1", ceiling)
	rq.Equal(http.StatusCreated, resp.StatusCode)
	rq.Equal("bidder-1", out.WinnerID)
	rq.Equal(startPrice, out.CurrentPrice)
	rq.True(out.IsWinning)
	rq.Equal(1, out.BidCount)
	rq.NotEmpty(resp.Header.Get("X-Trace-Id"))
}

func TestPostBidStatusMapping(t *testing.T) {
	testCases := []struct {
		name   string
		setup  func(e *env)
		userID string
		amount int64
		status int
		code   string
	}{
		{
			name:   "non-positive amount",
			userID: "bidder-1",
			amount: 0,
			status: http.StatusBadRequest,
			code:   errcodes.InvalidAmount.String(),
		},
		{
			name:   "seller",
			userID: "seller-1",
			amount: startPrice,
			status: http.StatusConflict,
			code:   errcodes.SellerCannotBid.String(),
		},
		{
			name:   "denied bidder",
			setup:  func(e *env) { e.store.DenyBidder("auction-1", "bidder-1") },
			userID: "bidder-1",
			amount: startPrice,
			status: http.StatusConflict,
			code:   errcodes.BidderDenied.String(),
		},
		{
			name:   "below start price",
			userID: "bidder-1",
			amount: startPrice - 1,
			status: http.StatusConflict,
			code:   errcodes.BidTooLow.String(),
		},
		{
			name: "low rating",
			setup: func(e *env) {
				e.store.SetRating("bidder-1", entity.BidderRating{Positive: 1, Total: 10})
			},
			userID: "bidder-1",
			amount: startPrice,
			status: http.StatusForbidden,
			code:   errcodes.RatingTooLow.String(),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)
			e := newEnv(t)
			if tc.setup != nil {
				tc.setup(e)
			}

			resp, _, errOut := e.bid(t, tc.userID, tc.amount)
			rq.Equal(tc.status, resp.StatusCode)
			rq.Equal(tc.code, string(errOut.Code))
			rq.NotEmpty(errOut.SupportID)
		})
	}
}

func TestPostBidUnknownAuction(t *testing.T) {
	rq := require.New(t)
	e := newEnv(t)

	var errOut rest.Error
	amount := startPrice

	resp, err := e.client.Post(context.Background(), "/v1/auctions/missing/bids", as("bidder-1"),
		rest.PlaceBidRequest{MaxAmount: &amount}, nil, &errOut)
	rq.NoError(err)
	rq.Equal(http.StatusNotFound, resp.StatusCode)
	rq.Equal(errcodes.AuctionNotFound.String(), string(errOut.Code))
}

func TestPostBidBadRequests(t *testing.T) {
	rq := require.New(t)
	e := newEnv(t)

	var errOut rest.Error

	resp, err := e.client.PostJSON(context.Background(), auctionPath+"/bids", as("bidder-1"), `{}`, nil, &errOut)
	rq.NoError(err)
	rq.Equal(http.StatusBadRequest, resp.StatusCode)
	rq.Equal(errcodes.ValidationError.String(), string(errOut.Code))

	resp, err = e.client.PostJSON(context.Background(), auctionPath+"/bids", as("bidder-1"), `{"maxAmount":`, nil, &errOut)
	rq.NoError(err)
	rq.Equal(http.StatusBadRequest, resp.StatusCode)

	resp, err = e.client.PostJSON(context.Background(), auctionPath+"/bids", nil, `{"maxAmount":100000}`, nil, &errOut)
	rq.NoError(err)
	rq.Equal(http.StatusBadRequest, resp.StatusCode)
	rq.Equal(errcodes.InvalidUserID.String(), string(errOut.Code))
}

func TestPostBidContention(t *testing.T) {
	rq := require.New(t)
	e := newEnv(t)

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = e.store.InAuction(context.Background(), "auction-1", func(context.Context, bidding.AuctionTx) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	resp, _, errOut := e.bid(t, "bidder-1", startPrice)
	close(release)
	<-done

	rq.Equal(http.StatusServiceUnavailable, resp.StatusCode)
	rq.Equal(errcodes.LockTimeout.String(), string(errOut.Code))
	rq.Equal("1", resp.Header.Get("Retry-After"))
}

func TestReadEndpoints(t *testing.T) {
	rq := require.New(t)
	e := newEnv(t)
	ctx := context.Background()

	resp, _, _ := e.bid(t, "bidder-1", 120000)
	rq.Equal(http.StatusCreated, resp.StatusCode)
	resp, out, _ := e.bid(t, "bidder-2", 110000)
	rq.Equal(http.StatusCreated, resp.StatusCode)
	rq.Equal("bidder-1", out.WinnerID)
	rq.True(out.AutoBidTriggered)

	var history rest.BidHistory
	resp, err := e.client.Get(ctx, auctionPath+"/bids?limit=10", nil, &history, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.Equal(3, history.Total)
	rq.Equal(10, history.Limit)
	for _, b := range history.Bids {
		rq.Contains([]string{"****r-1", "****r-2"}, b.Bidder)
	}

	var winner rest.Winner
	resp, err = e.client.Get(ctx, auctionPath+"/winner", nil, &winner, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.NotNil(winner.CurrentWinnerID)
	rq.Equal("bidder-1", *winner.CurrentWinnerID)
	rq.EqualValues(111000, winner.CurrentPrice)
	rq.NotNil(winner.LastBid)

	var canBid rest.CanBid
	resp, err = e.client.Get(ctx, auctionPath+"/can-bid", as("seller-1"), &canBid, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.False(canBid.CanBid)
	rq.Equal(errcodes.SellerCannotBid.String(), string(canBid.Reason))

	var errOut rest.Error
	resp, err = e.client.Get(ctx, auctionPath+"/bids?offset=abc", nil, nil, &errOut)
	rq.NoError(err)
	rq.Equal(http.StatusBadRequest, resp.StatusCode)
	rq.Equal(errcodes.InvalidPaging.String(), string(errOut.Code))
}

func TestAdminSettings(t *testing.T) {
	rq := require.New(t)
	e := newEnv(t)
	ctx := context.Background()

	var got rest.AuctionSettings
	resp, err := e.client.Get(ctx, "/v1/admin/auction-settings", nil, &got, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.Equal(entity.DefaultAutoExtendThresholdMinutes, got.AutoExtendThresholdMinutes)

	threshold := 15
	resp, err = e.client.Put(ctx, "/v1/admin/auction-settings", nil,
		rest.AuctionSettingsPatch{AutoExtendThresholdMinutes: &threshold}, &got, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.Equal(15, got.AutoExtendThresholdMinutes)
	rq.Equal(entity.DefaultAutoExtendDurationMinutes, got.AutoExtendDurationMinutes)

	tooLong := 121
	var errOut rest.Error
	resp, err = e.client.Put(ctx, "/v1/admin/auction-settings", nil,
		rest.AuctionSettingsPatch{AutoExtendDurationMinutes: &tooLong}, nil, &errOut)
	rq.NoError(err)
	rq.Equal(http.StatusBadRequest, resp.StatusCode)
	rq.Equal(errcodes.InvalidSettings.String(), string(errOut.Code))
}

func TestAdminCloseExpired(t *testing.T) {
	rq := require.New(t)
	e := newEnv(t)

	e.store.PutAuction(entity.Auction{
		ID:           "auction-2",
		SellerID:     "seller-1",
		StartPrice:   startPrice,
		StepPrice:    1000,
		CurrentPrice: startPrice,
		EndTime:      time.Now().Add(-time.Minute),
		Status:       value.AuctionStatusActive,
	})

	var out rest.CloseExpiredResponse
	resp, err := e.client.Post(context.Background(), "/v1/admin/auctions/close-expired", nil, struct{}{}, &out, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.Equal(1, out.Closed)

	a, err := e.store.GetAuction(context.Background(), "auction-2")
	rq.NoError(err)
	rq.Equal(value.AuctionStatusEnded, a.Status)
}
