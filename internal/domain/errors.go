package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrRateLimited       = errors.New("too many submissions, try again later")
	ErrSlugCollision     = errors.New("could not allocate a unique slug")
	ErrNotFound          = errors.New("deal not found")
	ErrNotEditable       = errors.New("deal is not in an editable status")
	ErrSoldOut           = errors.New("no discount codes left for this deal")
	ErrDealNotLive       = errors.New("deal is not live")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Validation error codes. Each maps to one rejection reason the submission
// validator can produce.
const (
	CodeMissingField           = "MissingField"
	CodeTypeMismatch           = "TypeMismatch"
	CodeEmptyRequiredField     = "EmptyRequiredField"
	CodeInvalidURL             = "InvalidURL"
	CodeInvalidPrice           = "InvalidPrice"
	CodePriceOrderingViolation = "PriceOrderingViolation"
	CodeDiscountTooSmall       = "DiscountTooSmall"
	CodeInvalidExpiration      = "InvalidExpiration"
	CodeInvalidCategory        = "InvalidCategory"
	CodeInvalidDiscountCodes   = "InvalidDiscountCodes"
)

// ValidationError is a rejection with a machine code and, where applicable,
// the offending field.
type ValidationError struct {
	Code    string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func NewValidationError(code, field, message string) *ValidationError {
	return &ValidationError{Code: code, Field: field, Message: message}
}

// AsValidationError unwraps err into a *ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
