package dto

import (
	"net/http"

	"github.com/3btraders/ims/internal/domain/shared"
)

// Error codes produced by the HTTP layer itself. Domain errors keep their own codes.
const (
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeInternal   = "INTERNAL_ERROR"
)

// unprocessable lists validation codes that describe a well-formed request the
// current stock cannot satisfy.
var unprocessable = map[string]bool{
	shared.ErrInsufficientStock.Code: true,
	shared.ErrInvalidQuantity.Code:   true,
}

// StatusFor maps a domain error to an HTTP status by kind.
func StatusFor(err *shared.DomainError) int {
	if err == nil {
		return http.StatusInternalServerError
	}
	switch err.Kind {
	case shared.KindValidation:
		if unprocessable[err.Code] {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadRequest
	case shared.KindConsistency:
		return http.StatusConflict
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindRemote:
		if err.Status == http.StatusUnauthorized {
			return http.StatusUnauthorized
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
