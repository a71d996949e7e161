package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies business failures so transports can map them.
type ErrorKind string

const (
	KindValidation   ErrorKind = "VALIDATION"
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindConflict     ErrorKind = "CONFLICT"
	KindExpired      ErrorKind = "EXPIRED"
	KindPolicyDenied ErrorKind = "POLICY_DENIED"
)

// Machine-readable codes returned to API clients.
const (
	CodeValidationFailed         = "VALIDATION_FAILED"
	CodeReservationNotFound      = "RESERVATION_NOT_FOUND"
	CodeOrderNotFound            = "ORDER_NOT_FOUND"
	CodeTableNotFound            = "TABLE_NOT_FOUND"
	CodeRestaurantNotFound       = "RESTAURANT_NOT_FOUND"
	CodeMenuItemUnavailable      = "MENU_ITEM_UNAVAILABLE"
	CodeSlotConflict             = "SLOT_CONFLICT"
	CodeHoldExpired              = "HOLD_EXPIRED"
	CodeCancellationWindowPassed = "CANCELLATION_WINDOW_PASSED"
	CodeInvalidReservationStatus = "INVALID_RESERVATION_STATUS"
	CodeInvalidState             = "INVALID_STATE"
)

type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, code, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

func validationError(format string, args ...interface{}) *Error {
	return newError(KindValidation, CodeValidationFailed, format, args...)
}

func notFoundError(code, format string, args ...interface{}) *Error {
	return newError(KindNotFound, code, format, args...)
}

func conflictError(format string, args ...interface{}) *Error {
	return newError(KindConflict, CodeSlotConflict, format, args...)
}

func expiredError(format string, args ...interface{}) *Error {
	return newError(KindExpired, CodeHoldExpired, format, args...)
}

func menuItemUnavailable(id uint) *Error {
	return newError(KindValidation, CodeMenuItemUnavailable, "menu item %d is not available", id)
}

func policyDenied(code, format string, args ...interface{}) *Error {
	return newError(KindPolicyDenied, code, format, args...)
}

// AsError extracts the business error from err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of a business error, or "" for infrastructure errors.
func KindOf(err error) ErrorKind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return ""
}

// CodeOf returns the machine-readable code of a business error, or "".
func CodeOf(err error) string {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}
