package supplier

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Domenick1991/flightbooking/internal/domain"
)

type Op string

const (
	OpSearch   Op = "search"
	OpPricing  Op = "pricing"
	OpSeatMaps Op = "seatmaps"
	OpOrder    Op = "order"
)

// Error is a failed supplier call. StatusCode is zero when no response was
// received.
type Error struct {
	Op         Op
	StatusCode int
	Code       int
	Message    string
	RequestID  string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("supplier %s: %v", e.Op, e.Err)
	}
	if e.Message == "" {
		return fmt.Sprintf("supplier %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("supplier %s: status %d: %s (code %d)", e.Op, e.StatusCode, e.Message, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is classifies the failure into the domain taxonomy by operation.
func (e *Error) Is(target error) bool {
	switch e.Op {
	case OpSearch:
		return target == domain.ErrSearchFailed
	case OpPricing:
		return target == domain.ErrPriceConfirmationFailed
	case OpSeatMaps:
		return target == domain.ErrSeatMapsUnavailable && seatMapsUnavailable(e.StatusCode)
	case OpOrder:
		return target == domain.ErrOrderCreationFailed
	}
	return false
}

// Definitive reports whether the supplier answered with a rejection, meaning
// the request was certainly not applied.
func (e *Error) Definitive() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusRequestTimeout
}

func seatMapsUnavailable(status int) bool {
	return status == http.StatusNotFound || status == http.StatusBadRequest
}

// IsDefinitive reports whether err carries a definitive supplier rejection.
func IsDefinitive(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Definitive()
}
