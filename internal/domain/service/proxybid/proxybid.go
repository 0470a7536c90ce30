// Package proxybid resolves a challenger's ceiling against the incumbent's
// ceiling. It performs no I/O and is deterministic.
package proxybid

// Input describes one contest between the incumbent and a challenger.
type Input struct {
	CurrentMax    int64
	CurrentWinner string
	NewMax        int64
	NewBidder     string
	Step          int64
}

// Bid is a bid to append, in order.
type Bid struct {
	BidderID  string
	Amount    int64
	MaxAmount int64
	IsAutoBid bool
}

type Outcome struct {
	Winner     string
	FinalPrice int64
	Bids       []Bid
}

// AutoBidTriggered reports whether the incumbent was raised on their behalf.
func (o Outcome) AutoBidTriggered() bool {
	for _, b := range o.Bids {
		if b.IsAutoBid {
			return true
		}
	}
	return false
}

func Resolve(in Input) Outcome {
	switch {
	case in.NewMax > in.CurrentMax:
		price := min(in.CurrentMax+in.Step, in.NewMax)
		return Outcome{
			Winner:     in.NewBidder,
			FinalPrice: price,
			Bids: []Bid{
				{BidderID: in.NewBidder, Amount: price, MaxAmount: in.NewMax},
			},
		}

	case in.NewMax < in.CurrentMax:
		price := min(in.NewMax+in.Step, in.CurrentMax)
		bids := []Bid{
			{BidderID: in.NewBidder, Amount: in.NewMax, MaxAmount: in.NewMax},
		}
		// Equal means the incumbent already stands at the challenger's amount.
		if price > in.NewMax {
			bids = append(bids, Bid{
				BidderID:  in.CurrentWinner,
				Amount:    price,
				MaxAmount: in.CurrentMax,
				IsAutoBid: true,
			})
		}
		return Outcome{
			Winner:     in.CurrentWinner,
			FinalPrice: price,
			Bids:       bids,
		}

	default:
		return Outcome{
			Winner:     in.CurrentWinner,
			FinalPrice: in.NewMax,
			Bids: []Bid{
				{BidderID: in.NewBidder, Amount: in.NewMax, MaxAmount: in.NewMax},
			},
		}
	}
}
