package errcodes

import "git.appkode.ru/pub/go/failure"

const (
	InternalServerError failure.ErrorCode = "InternalServerError"
	TimeoutExceeded     failure.ErrorCode = "TimeoutExceeded"
	ValidationError     failure.ErrorCode = "ValidationError"
	NotFound            failure.ErrorCode = "NotFound"
	Unauthorized        failure.ErrorCode = "Unauthorized"
	Forbidden           failure.ErrorCode = "Forbidden"
	InvalidAuctionID    failure.ErrorCode = "InvalidAuctionID"
	InvalidUserID       failure.ErrorCode = "InvalidUserID"
	InvalidPaging       failure.ErrorCode = "InvalidPaging"

	// Bidding reason codes. Clients switch on these, so the values are part
	// of the public contract.
	InvalidAmount    failure.ErrorCode = "INVALID_AMOUNT"
	AuctionNotFound  failure.ErrorCode = "AUCTION_NOT_FOUND"
	AuctionNotActive failure.ErrorCode = "AUCTION_NOT_ACTIVE"
	AuctionExpired   failure.ErrorCode = "AUCTION_EXPIRED"
	SellerCannotBid  failure.ErrorCode = "SELLER_CANNOT_BID"
	BidderDenied     failure.ErrorCode = "BIDDER_DENIED"
	AlreadyWinning   failure.ErrorCode = "ALREADY_WINNING"
	BidTooLow        failure.ErrorCode = "BID_TOO_LOW"
	RatingTooLow     failure.ErrorCode = "RATING_TOO_LOW"
	LockTimeout      failure.ErrorCode = "LOCK_TIMEOUT"
	StorageFailure   failure.ErrorCode = "STORAGE_FAILURE"
	InvalidSettings  failure.ErrorCode = "INVALID_SETTINGS"
)
