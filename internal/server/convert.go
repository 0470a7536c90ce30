package server

import (
	"auction_engine/internal/domain/entity"
	"auction_engine/internal/domain/service/bidding"
	"auction_engine/pkg/rest"
)

func newRESTPlaceBid(result bidding.PlaceBidResult) rest.PlaceBidResponse {
	return rest.PlaceBidResponse{
		WinnerID:         result.WinnerID,
		CurrentPrice:     result.CurrentPrice,
		IsWinning:        result.IsWinning,
		BuyNowTriggered:  result.BuyNowTriggered,
		AutoBidTriggered: result.AutoBidTriggered,
		BidCount:         result.BidCount,
		EndTime:          result.EndTime,
		Extended:         result.Extended,
	}
}

func newRESTBid(bid bidding.PublicBid) rest.Bid {
	return rest.Bid{
		ID:        bid.ID,
		Bidder:    bid.BidderID,
		Amount:    bid.Amount,
		IsAutoBid: bid.IsAutoBid,
		CreatedAt: bid.CreatedAt,
	}
}

func newRESTBidHistory(page bidding.BidHistoryPage) rest.BidHistory {
	bids := make([]rest.Bid, 0, len(page.Bids))
	for _, b := range page.Bids {
		bids = append(bids, newRESTBid(b))
	}

	return rest.BidHistory{
		Bids:   bids,
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
}

func newRESTWinner(winner bidding.WinnerView) rest.Winner {
	out := rest.Winner{
		CurrentPrice:    winner.CurrentPrice,
		CurrentWinnerID: winner.CurrentWinnerID,
		BidCount:        winner.BidCount,
	}

	if winner.LastBid != nil {
		last := newRESTBid(*winner.LastBid)
		out.LastBid = &last
	}

	return out
}

func newRESTCanBid(e bidding.Eligibility) rest.CanBid {
	return rest.CanBid{
		CanBid:  e.CanBid,
		Reason:  rest.ErrorCode(e.Reason.String()),
		Message: e.Message,
	}
}

func newRESTSettings(s entity.AuctionSettings) rest.AuctionSettings {
	return rest.AuctionSettings{
		AutoExtendThresholdMinutes: s.AutoExtendThresholdMinutes,
		AutoExtendDurationMinutes:  s.AutoExtendDurationMinutes,
	}
}

func newDomainSettingsPatch(p rest.AuctionSettingsPatch) entity.SettingsPatch {
	return entity.SettingsPatch{
		AutoExtendThresholdMinutes: p.AutoExtendThresholdMinutes,
		AutoExtendDurationMinutes:  p.AutoExtendDurationMinutes,
	}
}
