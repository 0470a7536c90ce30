package logx

const (
	FieldAppName         = "app-name"
	FieldAppVersion      = "app-version"
	FieldDurationMs      = "duration-ms"
	FieldError           = "error"
	FieldHTTPMethod      = "http-method"
	FieldHTTPRequest     = "http-request"
	FieldHTTPResponse    = "http-response"
	FieldIP              = "ip"
	FieldRequestBody     = "request-body"
	FieldRequestID       = "request-id"
	FieldResponseBody    = "response-body"
	FieldResponseHeaders = "response-headers"
	FieldResponseStatus  = "response-status"
	FieldStack           = "stack"
	FieldTraceID         = "trace-id"
	FieldURL             = "url"
	FieldUserID          = "user-id"

	FieldAuctionID  = "auction-id"
	FieldBidderID   = "bidder-id"
	FieldWinnerID   = "winner-id"
	FieldPrice      = "price"
	FieldBidCount   = "bid-count"
	FieldEndTime    = "end-time"
	FieldReasonCode = "reason-code"
	FieldEventType  = "event-type"
	FieldClosed     = "closed"
)
