package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a DomainError for callers that need to react differently
// to bad input, broken cross-references and backend failures.
type ErrorKind string

const (
	KindValidation  ErrorKind = "VALIDATION"
	KindConsistency ErrorKind = "CONSISTENCY"
	KindRemote      ErrorKind = "REMOTE"
	KindNotFound    ErrorKind = "NOT_FOUND"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	// Status is the HTTP status returned by the backend for remote errors.
	Status int   `json:"status,omitempty"`
	Cause  error `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches two domain errors by code so that errors.Is works against the
// package-level sentinels even when the message was customised.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a copy of the error carrying a more specific message
func (e *DomainError) WithMessage(message string) *DomainError {
	cp := *e
	cp.Message = message
	return &cp
}

// WithMessagef is WithMessage with formatting
func (e *DomainError) WithMessagef(format string, args ...any) *DomainError {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewRemoteError wraps a backend or network failure. The message is passed
// through verbatim so the operator sees what the backend said.
func NewRemoteError(status int, message string, cause error) *DomainError {
	code := ErrRemoteFailure.Code
	switch status {
	case 401:
		code = ErrUnauthorized.Code
	case 404:
		code = ErrNotFound.Code
	}
	kind := KindRemote
	if status == 404 {
		kind = KindNotFound
	}
	if message == "" && cause != nil {
		message = cause.Error()
	}
	if message == "" {
		message = "Request failed"
	}
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Status:  status,
		Cause:   cause,
	}
}

// KindOf returns the kind of the first DomainError in the chain, or an empty
// kind when err is not a domain error.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// Common domain errors
var (
	ErrInvalidInput           = NewDomainError(KindValidation, "INVALID_INPUT", "Invalid input provided")
	ErrInvalidQuantity        = NewDomainError(KindValidation, "INVALID_QUANTITY", "Please enter a valid quantity")
	ErrSelectionRequired      = NewDomainError(KindValidation, "SELECTION_REQUIRED", "Please select a shop")
	ErrInvalidDateRange       = NewDomainError(KindValidation, "INVALID_DATE_RANGE", "Please select a valid date range")
	ErrInsufficientStock      = NewDomainError(KindValidation, "INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrProductNotFound        = NewDomainError(KindConsistency, "PRODUCT_NOT_FOUND", "Product not found")
	ErrOwningShopUnresolvable = NewDomainError(KindConsistency, "OWNING_SHOP_UNRESOLVABLE", "Cannot determine product shop")
	ErrTotalMismatch          = NewDomainError(KindConsistency, "TOTAL_MISMATCH", "Sale total does not match unit price times quantity")
	ErrNotFound               = NewDomainError(KindNotFound, "NOT_FOUND", "Resource not found")
	ErrRemoteFailure          = NewDomainError(KindRemote, "REMOTE_FAILURE", "Request failed")
	ErrUnauthorized           = NewDomainError(KindRemote, "UNAUTHORIZED", "Not authorized to perform this action")
)
