package value

import "fmt"

// AuctionStatus is the lifecycle state of an auction. The engine only ever
// moves ACTIVE to ENDED; the other values belong to collaborators.
type AuctionStatus string

const (
	AuctionStatusPending   AuctionStatus = "PENDING"
	AuctionStatusActive    AuctionStatus = "ACTIVE"
	AuctionStatusEnded     AuctionStatus = "ENDED"
	AuctionStatusSold      AuctionStatus = "SOLD"
	AuctionStatusCancelled AuctionStatus = "CANCELLED"
)

func (s AuctionStatus) String() string {
	return string(s)
}

func (s AuctionStatus) IsValid() bool {
	switch s {
	case AuctionStatusPending, AuctionStatusActive, AuctionStatusEnded, AuctionStatusSold, AuctionStatusCancelled:
		return true
	default:
		return false
	}
}

func ParseAuctionStatus(raw string) (AuctionStatus, error) {
	s := AuctionStatus(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("value.ParseAuctionStatus: unknown status %q", raw)
	}
	return s, nil
}
