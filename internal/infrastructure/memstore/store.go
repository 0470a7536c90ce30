// Package memstore is an in-process implementation of the bidding ledger,
// eligibility and settings stores. Per-auction units are serialized with a
// keyed weighted semaphore.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"auction_engine/internal/domain"
	"auction_engine/internal/domain/entity"
	"auction_engine/internal/domain/service/bidding"
	"auction_engine/internal/domain/value"
	"auction_engine/pkg/errcodes"
)

const DefaultLockTimeout = 3 * time.Second

type Store struct {
	mu       sync.RWMutex
	auctions map[string]entity.Auction
	bids     map[string][]entity.Bid
	denied   map[string]map[string]struct{}
	ratings  map[string]entity.BidderRating
	settings *entity.AuctionSettings
	seq      int64

	locksMu     sync.Mutex
	locks       map[string]*semaphore.Weighted
	lockTimeout time.Duration
}

func New(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}

	return &Store{
		auctions:    make(map[string]entity.Auction),
		bids:        make(map[string][]entity.Bid),
		denied:      make(map[string]map[string]struct{}),
		ratings:     make(map[string]entity.BidderRating),
		locks:       make(map[string]*semaphore.Weighted),
		lockTimeout: lockTimeout,
	}
}

// PutAuction creates or replaces an auction. Auction creation belongs to
// the catalog collaborator; this is its entry point into the store.
func (s *Store) PutAuction(a entity.Auction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.auctions[a.ID] = cloneAuction(a)
}

func (s *Store) DenyBidder(auctionID, bidderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.denied[auctionID] == nil {
		s.denied[auctionID] = make(map[string]struct{})
	}
	s.denied[auctionID][bidderID] = struct{}{}
}

func (s *Store) SetRating(bidderID string, r entity.BidderRating) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ratings[bidderID] = r
}

func (s *Store) lock(auctionID string) *semaphore.Weighted {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	l, ok := s.locks[auctionID]
	if !ok {
		l = semaphore.NewWeighted(1)
		s.locks[auctionID] = l
	}
	return l
}

func (s *Store) acquire(ctx context.Context, auctionID string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	l := s.lock(auctionID)
	if err := l.Acquire(ctx, 1); err != nil {
		return nil, domain.WrapError(err, domain.KindContention, errcodes.LockTimeout,
			fmt.Sprintf("auction %s is busy, retry later", auctionID))
	}

	return func() { l.Release(1) }, nil
}

func (s *Store) InAuction(
	ctx context.Context,
	auctionID string,
	fn func(ctx context.Context, tx bidding.AuctionTx) error,
) error {
	release, err := s.acquire(ctx, auctionID)
	if err != nil {
		return err
	}
	defer release()

	tx := &auctionTx{store: s, auctionID: auctionID}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.commit(tx)

	return nil
}

func (s *Store) commit(tx *auctionTx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range tx.bids {
		s.seq++
		b.Seq = s.seq
		s.bids[tx.auctionID] = append(s.bids[tx.auctionID], b)
	}

	if tx.update != nil {
		a := s.auctions[tx.auctionID]
		winner := tx.update.CurrentWinnerID
		a.CurrentPrice = tx.update.CurrentPrice
		a.CurrentWinnerID = &winner
		a.BidCount = tx.update.BidCount
		a.EndTime = tx.update.EndTime
		a.Status = tx.update.Status
		s.auctions[tx.auctionID] = a
	}
}

func (s *Store) GetAuction(_ context.Context, auctionID string) (entity.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.auctions[auctionID]
	if !ok {
		return entity.Auction{}, domain.AuctionNotFound(auctionID)
	}
	return cloneAuction(a), nil
}

func (s *Store) LastBid(_ context.Context, auctionID string) (*entity.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastBidLocked(auctionID), nil
}

func (s *Store) lastBidLocked(auctionID string) *entity.Bid {
	bids := s.bids[auctionID]
	if len(bids) == 0 {
		return nil
	}
	last := bids[len(bids)-1]
	return &last
}

func (s *Store) ListBids(_ context.Context, auctionID string, limit, offset int) ([]entity.Bid, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bids := s.bids[auctionID]
	total := len(bids)

	out := make([]entity.Bid, 0, limit)
	for i := total - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, bids[i])
	}

	return out, total, nil
}

// CountBids returns the number of persisted bid rows for an auction.
func (s *Store) CountBids(auctionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.bids[auctionID])
}

func (s *Store) ListExpired(_ context.Context, now time.Time, limit int) ([]entity.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []entity.Auction
	for _, a := range s.auctions {
		if a.Status == value.AuctionStatusActive && a.EndTime.Before(now) {
			out = append(out, cloneAuction(a))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].EndTime.Before(out[j].EndTime) })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

// BulkUpdateStatus moves every listed auction still in status from with a
// deadline before now to status to. Auctions whose unit is busy are left
// for the next sweep.
func (s *Store) BulkUpdateStatus(
	_ context.Context,
	auctionIDs []string,
	from, to value.AuctionStatus,
	now time.Time,
) ([]entity.Auction, error) {
	var updated []entity.Auction

	for _, id := range auctionIDs {
		l := s.lock(id)
		if !l.TryAcquire(1) {
			continue
		}

		if a, ok := s.transition(id, from, to, now); ok {
			updated = append(updated, a)
		}

		l.Release(1)
	}

	return updated, nil
}

func (s *Store) UpdateStatus(
	ctx context.Context,
	auctionID string,
	from, to value.AuctionStatus,
	now time.Time,
) (*entity.Auction, error) {
	release, err := s.acquire(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	defer release()

	a, ok := s.transition(auctionID, from, to, now)
	if !ok {
		return nil, nil //nolint:nilnil
	}
	return &a, nil
}

func (s *Store) transition(auctionID string, from, to value.AuctionStatus, now time.Time) (entity.Auction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[auctionID]
	if !ok || a.Status != from || !a.EndTime.Before(now) {
		return entity.Auction{}, false
	}

	a.Status = to
	s.auctions[auctionID] = a

	return cloneAuction(a), true
}

func (s *Store) IsBidderDenied(_ context.Context, auctionID, bidderID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.denied[auctionID][bidderID]
	return ok, nil
}

// BidderRating returns the zero rating for unknown bidders.
func (s *Store) BidderRating(_ context.Context, bidderID string) (entity.BidderRating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ratings[bidderID], nil
}

func (s *Store) LoadSettings(context.Context) (entity.AuctionSettings, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.settings == nil {
		return entity.AuctionSettings{}, false, nil
	}
	return *s.settings, true, nil
}

func (s *Store) SaveSettings(_ context.Context, cfg entity.AuctionSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = &cfg
	return nil
}

func cloneAuction(a entity.Auction) entity.Auction {
	if a.BuyNowPrice != nil {
		p := *a.BuyNowPrice
		a.BuyNowPrice = &p
	}
	if a.CurrentWinnerID != nil {
		w := *a.CurrentWinnerID
		a.CurrentWinnerID = &w
	}
	return a
}
