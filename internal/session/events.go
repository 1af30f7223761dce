package session

import (
	"context"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
)

type EventType string

const (
	EventPriceConfirmed          EventType = "price_confirmed"
	EventPriceConfirmationFailed EventType = "price_confirmation_failed"
	EventOrderCreated            EventType = "order_created"
	EventOrderFailed             EventType = "order_failed"
	EventSessionReset            EventType = "session_reset"
)

// Event describes a completed session operation. Observers run after the
// session lock is released and after every caller sharing the operation has
// its result.
type Event struct {
	Type       EventType
	SessionID  string
	Generation uint64
	OfferID    string
	Confirmed  *domain.ConfirmedOffer
	Order      *domain.Order
	Email      string
	Err        error
	At         time.Time
}

type Observer func(ctx context.Context, e Event)

// OrderJournal records each order submission so ambiguous outcomes can be
// reconciled by hand.
type OrderJournal interface {
	Begin(ctx context.Context, attempt *domain.OrderAttempt) error
	Finish(ctx context.Context, id string, status domain.AttemptStatus, order *domain.Order, reason string) error
	MarkReconciled(ctx context.Context, id string, status domain.AttemptStatus, note string) error
}
