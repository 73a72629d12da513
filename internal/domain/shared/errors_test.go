package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	t.Run("matches sentinel after message change", func(t *testing.T) {
		err := ErrInsufficientStock.WithMessage("Insufficient stock! Available: 5")
		assert.True(t, errors.Is(err, ErrInsufficientStock))
		assert.False(t, errors.Is(err, ErrInvalidQuantity))
		assert.Equal(t, "Insufficient stock! Available: 5", err.Error())
	})

	t.Run("matches through wrapping", func(t *testing.T) {
		err := fmt.Errorf("record sale: %w", ErrProductNotFound)
		assert.True(t, errors.Is(err, ErrProductNotFound))
		assert.Equal(t, KindConsistency, KindOf(err))
	})

	t.Run("WithMessage does not mutate sentinel", func(t *testing.T) {
		_ = ErrInvalidInput.WithMessage("changed")
		assert.Equal(t, "Invalid input provided", ErrInvalidInput.Message)
	})
}

func TestNewRemoteError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		message  string
		cause    error
		wantCode string
		wantKind ErrorKind
		wantMsg  string
	}{
		{"server error passes message", 500, "database down", nil, "REMOTE_FAILURE", KindRemote, "database down"},
		{"unauthorized", 401, "Not logged in", nil, "UNAUTHORIZED", KindRemote, "Not logged in"},
		{"not found", 404, "Sale not found", nil, "NOT_FOUND", KindNotFound, "Sale not found"},
		{"network failure uses cause", 0, "", errors.New("connection refused"), "REMOTE_FAILURE", KindRemote, "connection refused"},
		{"empty message default", 502, "", nil, "REMOTE_FAILURE", KindRemote, "Request failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRemoteError(tt.status, tt.message, tt.cause)
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, tt.wantKind, err.Kind)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Equal(t, tt.status, err.Status)
			if tt.cause != nil {
				assert.True(t, errors.Is(err, tt.cause))
			}
		})
	}
}

func TestKindOf_NonDomainError(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}
