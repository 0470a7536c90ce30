// Данный файл должен быть сгенерирован из openapi спецификации и называться types.gen.go
package rest

import "time"

// PlaceBidRequest Запрос на ставку. Сумма проверяется движком, чтобы
// ноль и отрицательные значения получали код INVALID_AMOUNT.
type PlaceBidRequest struct {
	MaxAmount *int64 `json:"maxAmount" validate:"required"`
}

type PlaceBidResponse struct {
	WinnerID         string    `json:"winnerId"`
	CurrentPrice     int64     `json:"currentPrice"`
	IsWinning        bool      `json:"isWinning"`
	BuyNowTriggered  bool      `json:"buyNowTriggered"`
	AutoBidTriggered bool      `json:"autoBidTriggered"`
	BidCount         int       `json:"bidCount"`
	EndTime          time.Time `json:"endTime"`
	Extended         bool      `json:"extended"`
}

// Bid Публичное представление ставки, идентификатор участника маскирован.
type Bid struct {
	ID        string    `json:"id"`
	Bidder    string    `json:"bidder"`
	Amount    int64     `json:"amount"`
	IsAutoBid bool      `json:"isAutoBid"`
	CreatedAt time.Time `json:"createdAt"`
}

type BidHistory struct {
	Bids   []Bid `json:"bids"`
	Total  int   `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

type Winner struct {
	CurrentPrice    int64   `json:"currentPrice"`
	CurrentWinnerID *string `json:"currentWinnerId"`
	BidCount        int     `json:"bidCount"`
	LastBid         *Bid    `json:"lastBid"`
}

type CanBid struct {
	CanBid  bool      `json:"canBid"`
	Reason  ErrorCode `json:"reason,omitempty"`
	Message string    `json:"message,omitempty"`
}

type AuctionSettings struct {
	AutoExtendThresholdMinutes int `json:"autoExtendThresholdMinutes"`
	AutoExtendDurationMinutes  int `json:"autoExtendDurationMinutes"`
}

// AuctionSettingsPatch Частичное обновление, отсутствующие поля не меняются.
type AuctionSettingsPatch struct {
	AutoExtendThresholdMinutes *int `json:"autoExtendThresholdMinutes,omitempty"`
	AutoExtendDurationMinutes  *int `json:"autoExtendDurationMinutes,omitempty"`
}

type CloseExpiredResponse struct {
	Closed int `json:"closed"`
}

// Error Модель ошибок
type Error struct {
	// Code Код ошибки
	Code ErrorCode `json:"code"`

	// Message Сообщение об ошибке (для отображения в UI в будущем)
	Message string `json:"message"`

	// SupportID Идентификатор запроса для обращения в поддержку
	SupportID string `json:"supportId"`
}

// ErrorCode Код ошибки
type ErrorCode string
