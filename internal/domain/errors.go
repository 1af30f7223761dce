package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSearchFailed            = errors.New("search failed")
	ErrInvalidSearchParams     = errors.New("invalid search parameters")
	ErrSearchNotFound          = errors.New("search result not found")
	ErrPriceConfirmationFailed = errors.New("price confirmation failed")
	ErrSeatMapsUnavailable     = errors.New("seat maps unavailable")
	ErrOrderCreationFailed     = errors.New("order creation failed")
	ErrOrderOutcomeUnknown     = errors.New("order outcome unknown")
	ErrIllegalTransition       = errors.New("illegal transition")
	ErrPreconditionFailed      = errors.New("precondition failed")
	ErrPassengerBinding        = fmt.Errorf("%w: passenger binding", ErrPreconditionFailed)
	ErrStaleResult             = errors.New("stale result discarded")
	ErrSessionNotFound         = errors.New("session not found")
	ErrOfferNotFound           = errors.New("offer not found")
)

// TransitionError reports a state change the session does not permit.
type TransitionError struct {
	Op   string
	From Step
	To   Step
}

func (e *TransitionError) Error() string {
	if e.To == 0 {
		return fmt.Sprintf("illegal transition: %s not allowed in step %s", e.Op, e.From)
	}
	return fmt.Sprintf("illegal transition: %s from %s to %s", e.Op, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

// IsSessionFault reports errors raised by session logic rather than the supplier.
func IsSessionFault(err error) bool {
	return errors.Is(err, ErrIllegalTransition) ||
		errors.Is(err, ErrPreconditionFailed) ||
		errors.Is(err, ErrStaleResult) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrInvalidSearchParams) ||
		errors.Is(err, ErrOfferNotFound)
}

// IsSupplierFault reports errors that originated at the supplier boundary.
func IsSupplierFault(err error) bool {
	if IsSessionFault(err) {
		return false
	}
	return errors.Is(err, ErrSearchFailed) ||
		errors.Is(err, ErrPriceConfirmationFailed) ||
		errors.Is(err, ErrOrderCreationFailed)
}

// Action maps an error to the message shown to the traveler.
func Action(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidSearchParams):
		return "Check the search details and search again."
	case errors.Is(err, ErrSearchFailed), errors.Is(err, ErrSearchNotFound):
		return "We could not load flights. Please search again."
	case errors.Is(err, ErrPriceConfirmationFailed):
		return "This fare is no longer available. Please return to search and pick another flight."
	case errors.Is(err, ErrOrderOutcomeUnknown):
		return "We could not confirm whether your booking went through. Please contact support before trying again."
	case errors.Is(err, ErrOrderCreationFailed):
		return "Your booking was not completed. Please review your details and try again."
	case errors.Is(err, ErrPassengerBinding):
		return "Passenger details do not match the selected fare. Please search again."
	case errors.Is(err, ErrStaleResult), errors.Is(err, ErrSessionNotFound):
		return "Your booking session changed. Please reload and continue."
	case errors.Is(err, ErrIllegalTransition), errors.Is(err, ErrPreconditionFailed):
		return "This step is not available yet. Please complete the previous step."
	case errors.Is(err, ErrOfferNotFound):
		return "The selected flight is no longer in the results. Please search again."
	}
	return "Something went wrong. Please try again."
}
