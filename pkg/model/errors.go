package model

import "errors"

// ErrorKind is a stable machine-readable failure class exposed to API clients.
type ErrorKind string

const (
	KindUnauthenticated ErrorKind = "unauthenticated"
	KindForbidden       ErrorKind = "forbidden"
	KindNotFound        ErrorKind = "not_found"
	KindValidation      ErrorKind = "validation"
	KindConflict        ErrorKind = "conflict"
	KindRateLimited     ErrorKind = "rate_limited"
	KindInternal        ErrorKind = "internal"
)

// Error is a domain failure which is safe to show to the caller as is.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches errors of the same kind and code, so errors made by Invalid match ErrInvalidInput.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Code == e.Code
}

var (
	ErrUnauthenticated      = &Error{KindUnauthenticated, "unauthenticated", "authentication required"}
	ErrInvalidToken         = &Error{KindUnauthenticated, "invalid_token", "invalid token"}
	ErrForbidden            = &Error{KindForbidden, "forbidden", "not allowed for this role"}
	ErrItemNotFound         = &Error{KindNotFound, "item_not_found", "vinyl not found"}
	ErrReservationNotFound  = &Error{KindNotFound, "reservation_not_found", "reservation not found"}
	ErrItemUnavailable      = &Error{KindConflict, "item_unavailable", "vinyl is not available"}
	ErrConfirmationMismatch = &Error{KindValidation, "confirmation_mismatch", "confirmation failed: type the vinyl title exactly"}
	ErrInvalidTransition    = &Error{KindConflict, "invalid_transition", "reservation status can't be changed this way"}
	ErrInvalidStatus        = &Error{KindValidation, "invalid_status", "status must be one of: active, expired, collected"}
	ErrInvalidInput         = &Error{KindValidation, "invalid_input", "invalid input"}
	ErrLimitExceeded        = &Error{KindRateLimited, "limit_exceeded", "too many keeps, try again later"}
	ErrVinylReserved        = &Error{KindConflict, "vinyl_reserved", "vinyl has reservations and can't be deleted"}
	ErrStockReadOnly        = &Error{KindValidation, "stock_read_only", "stock is changed by reservations only"}
)

// ErrInsufficientStock is returned by the storage layer when stock can't be decremented.
// It never reaches API clients as is.
var ErrInsufficientStock = errors.New("insufficient stock")

// AsError extracts the domain error from err's chain. Anything else is reported as internal.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{KindInternal, "internal", "internal error"}
}

// Invalid returns a validation error with a custom message.
func Invalid(msg string) *Error {
	return &Error{KindValidation, ErrInvalidInput.Code, msg}
}
