package domain

import (
	"errors"
	"fmt"
	"net/http"

	"git.appkode.ru/pub/go/failure"

	"auction_engine/pkg/errcodes"
)

// Kind is the closed classification of engine failures. Boundary adapters
// map kinds to statuses; they never look at Message.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindState
	KindEligibility
	KindContention
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindState:
		return "state"
	case KindEligibility:
		return "eligibility"
	case KindContention:
		return "contention"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// AppError is a domain error carrying a kind and a machine reason code.
type AppError struct {
	Kind    Kind
	Code    failure.ErrorCode
	Message string
	cause   error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.cause
}

func NewError(kind Kind, code failure.ErrorCode, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// WrapError attaches domain context to an underlying error.
func WrapError(err error, kind Kind, code failure.ErrorCode, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    code,
		Message: message,
		cause:   err,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// KindOf returns the kind of the first AppError in the chain.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

func CodeOf(err error) (failure.ErrorCode, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, true
	}
	return "", false
}

// IsRetryable reports whether the caller may repeat the same request.
func IsRetryable(err error) bool {
	return KindOf(err) == KindContention
}

//nolint:gochecknoglobals
var kindStatus = map[Kind]int{
	KindValidation:  http.StatusBadRequest,
	KindNotFound:    http.StatusNotFound,
	KindState:       http.StatusConflict,
	KindEligibility: http.StatusForbidden,
	KindContention:  http.StatusServiceUnavailable,
	KindPersistence: http.StatusInternalServerError,
}

// HTTPStatus maps a kind to its response status. Unknown kinds are 500.
func HTTPStatus(kind Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func AuctionNotFound(auctionID string) *AppError {
	return NewError(KindNotFound, errcodes.AuctionNotFound, fmt.Sprintf("auction %s not found", auctionID))
}
