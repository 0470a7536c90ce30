package memstore

import (
	"errors"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"

	"auction_engine/internal/domain/entity"
	"auction_engine/internal/domain/value"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

// Seed is the fixture format for a memory-backed process. The memory driver
// is meant for local runs and tests; auctions come from the catalog in
// production.
type Seed struct {
	Auctions []entity.Auction        `json:"auctions"`
	Denied   map[string][]string     `json:"denied"`
	Ratings  map[string]SeedRating   `json:"ratings"`
	Settings *entity.AuctionSettings `json:"settings,omitempty"`
}

type SeedRating struct {
	Positive int `json:"positive"`
	Total    int `json:"total"`
}

// LoadSeed decodes a Seed from r and applies it on top of the current state.
func (s *Store) LoadSeed(r io.Reader) error {
	var seed Seed
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return fmt.Errorf("memstore.LoadSeed: decode: %w", err)
	}

	for i, a := range seed.Auctions {
		if a.ID == "" {
			return errors.New("memstore.LoadSeed: auction without id")
		}
		if a.Status == "" {
			a.Status = value.AuctionStatusActive
		}
		if !a.Status.IsValid() {
			return fmt.Errorf("memstore.LoadSeed: auction %q: unknown status %q", a.ID, a.Status)
		}
		if a.CurrentPrice == 0 {
			a.CurrentPrice = a.StartPrice
		}
		seed.Auctions[i] = a
	}

	for _, a := range seed.Auctions {
		s.PutAuction(a)
	}

	for auctionID, bidders := range seed.Denied {
		for _, bidderID := range bidders {
			s.DenyBidder(auctionID, bidderID)
		}
	}

	for bidderID, r := range seed.Ratings {
		s.SetRating(bidderID, entity.BidderRating{Positive: r.Positive, Total: r.Total})
	}

	if seed.Settings != nil {
		cfg := *seed.Settings
		s.mu.Lock()
		s.settings = &cfg
		s.mu.Unlock()
	}

	return nil
}

func (s *Store) LoadSeedFile(path string) error {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("memstore.LoadSeedFile: %w", err)
	}
	defer f.Close()

	return s.LoadSeed(f)
}
