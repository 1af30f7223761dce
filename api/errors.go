package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error  string `json:"error"`
	Action string `json:"action,omitempty"`
	// Session is the state after the failed operation, when there is one.
	Session any `json:"session,omitempty"`
}

// statusFor maps domain errors to HTTP status codes. Order matters: an
// unknown order outcome also carries ErrOrderCreationFailed.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrSearchNotFound),
		errors.Is(err, domain.ErrOfferNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidSearchParams):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrOrderOutcomeUnknown),
		errors.Is(err, domain.ErrStaleResult),
		errors.Is(err, domain.ErrIllegalTransition),
		errors.Is(err, domain.ErrPreconditionFailed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPriceConfirmationFailed):
		return http.StatusGone
	case errors.Is(err, domain.ErrSearchFailed),
		errors.Is(err, domain.ErrOrderCreationFailed),
		errors.Is(err, domain.ErrSeatMapsUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error, session any) {
	c.JSON(statusFor(err), errorResponse{
		Error:   err.Error(),
		Action:  domain.Action(err),
		Session: session,
	})
}
