package entity

import "github.com/shopspring/decimal"

// MinPositiveRatingPercent is the lowest positive share a rated bidder may
// have.
const MinPositiveRatingPercent = 80

// BidderRating is the bidder's feedback history as reported by the rating
// collaborator.
type BidderRating struct {
	Positive int
	Total    int
}

func (r BidderRating) IsRated() bool {
	return r.Total > 0
}

// PositivePercent returns positive/total*100. Unrated bidders report 100.
func (r BidderRating) PositivePercent() decimal.Decimal {
	if !r.IsRated() {
		return decimal.NewFromInt(100)
	}
	return decimal.NewFromInt(int64(r.Positive)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(r.Total)))
}

func (r BidderRating) MeetsMinimum() bool {
	return r.PositivePercent().GreaterThanOrEqual(decimal.NewFromInt(MinPositiveRatingPercent))
}
