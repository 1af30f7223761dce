package session

import (
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
)

type OpStatus struct {
	Pending bool   `json:"pending"`
	Error   string `json:"error,omitempty"`
	Action  string `json:"action,omitempty"`
}

// Snapshot is a deep copy of the session for consumers.
type Snapshot struct {
	ID                  string                  `json:"id"`
	Generation          uint64                  `json:"generation"`
	Step                domain.Step             `json:"step"`
	StepName            string                  `json:"step_name"`
	SearchID            string                  `json:"search_id,omitempty"`
	Offer               *domain.FlightOffer     `json:"offer,omitempty"`
	Confirmed           *domain.ConfirmedOffer  `json:"confirmed_offer,omitempty"`
	Travelers           []domain.Traveler       `json:"travelers,omitempty"`
	SeatMapsLoaded      bool                    `json:"seat_maps_loaded"`
	Seats               []domain.SeatAssignment `json:"seats"`
	SeatCharges         float64                 `json:"seat_charges"`
	Order               *domain.Order           `json:"order,omitempty"`
	Pricing             OpStatus                `json:"pricing"`
	SeatMaps            OpStatus                `json:"seat_maps"`
	Ordering            OpStatus                `json:"ordering"`
	OrderOutcomeUnknown bool                    `json:"order_outcome_unknown"`
	UpdatedAt           time.Time               `json:"updated_at"`
}

type opState struct {
	pending bool
	err     error
}

func (o opState) status() OpStatus {
	st := OpStatus{Pending: o.pending}
	if o.err != nil {
		st.Error = o.err.Error()
		st.Action = domain.Action(o.err)
	}
	return st
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		ID:                  s.id,
		Generation:          s.generation,
		Step:                s.step,
		StepName:            s.step.String(),
		SearchID:            s.searchID,
		Offer:               s.offer.Clone(),
		Confirmed:           s.confirmed.Clone(),
		Travelers:           domain.CloneTravelers(s.travelers),
		SeatMapsLoaded:      s.seats.Loaded(),
		Seats:               s.seats.Assignments(),
		SeatCharges:         s.seats.Charges(),
		Order:               s.order.Clone(),
		Pricing:             s.pricing.status(),
		SeatMaps:            s.seatMaps.status(),
		Ordering:            s.ordering.status(),
		OrderOutcomeUnknown: s.orderOutcomeUnknown,
		UpdatedAt:           s.updatedAt,
	}
}
