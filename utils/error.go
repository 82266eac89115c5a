package utils

import (
	"errors"
	"fmt"
)

// Business-rule errors. These are returned to the caller with their message as-is;
// anything else is logged and surfaced as a generic failure.
var (
	ErrorRecordNotFound = errors.New("record not found")

	ErrInsufficientStock         = errors.New("insufficient stock")
	ErrCreditNotAllowedForWalkIn = errors.New("credit sale not allowed for walk-in customer")
	ErrUnknownAccount            = errors.New("unknown account")
	ErrAlreadyCancelled          = errors.New("sale is already cancelled")
	ErrAlreadyConverted          = errors.New("quotation is already converted")
	ErrQuotationExpired          = errors.New("quotation validity has expired")
	ErrBusy                      = errors.New("busy: could not obtain lock")
)

// ValidationError marks malformed or missing input, rejected before any write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsBusinessError reports whether err carries a message safe to show the caller.
func IsBusinessError(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	switch {
	case errors.Is(err, ErrorRecordNotFound),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrCreditNotAllowedForWalkIn),
		errors.Is(err, ErrUnknownAccount),
		errors.Is(err, ErrAlreadyCancelled),
		errors.Is(err, ErrAlreadyConverted),
		errors.Is(err, ErrQuotationExpired),
		errors.Is(err, ErrBusy):
		return true
	}
	return false
}
