package domain

import "time"

type TravelerType string

const (
	TravelerAdult  TravelerType = "ADULT"
	TravelerChild  TravelerType = "CHILD"
	TravelerInfant TravelerType = "INFANT"
)

type Price struct {
	Currency string  `json:"currency"`
	Total    float64 `json:"total"`
	Base     float64 `json:"base"`
	Taxes    float64 `json:"taxes"`
}

// TravelerPricing is the per-passenger slice of an offer price. TravelerID is
// the passenger id assigned by the supplier at search time.
type TravelerPricing struct {
	TravelerID   string       `json:"traveler_id"`
	TravelerType TravelerType `json:"traveler_type"`
	Price        Price        `json:"price"`
}

type Segment struct {
	ID           string    `json:"id"`
	CarrierCode  string    `json:"carrier_code"`
	FlightNumber string    `json:"flight_number"`
	Origin       string    `json:"origin"`
	Destination  string    `json:"destination"`
	DepartureAt  time.Time `json:"departure_at"`
	ArrivalAt    time.Time `json:"arrival_at"`
	Aircraft     string    `json:"aircraft,omitempty"`
}

type Itinerary struct {
	// Duration is an ISO-8601 duration such as PT7H30M.
	Duration string    `json:"duration"`
	Segments []Segment `json:"segments"`
}

// FlightOffer is a priced itinerary as returned by the supplier. Offers are
// never patched in place; a changed price arrives as a new ConfirmedOffer.
type FlightOffer struct {
	ID                string            `json:"id"`
	Itineraries       []Itinerary       `json:"itineraries"`
	Price             Price             `json:"price"`
	TravelerPricings  []TravelerPricing `json:"traveler_pricings"`
	ValidatingCarrier string            `json:"validating_carrier"`
	BookableSeats     int               `json:"bookable_seats"`
	Refundable        bool              `json:"refundable"`
	Changeable        bool              `json:"changeable"`
	LastTicketingDate string            `json:"last_ticketing_date,omitempty"`
}

func (o *FlightOffer) Outbound() *Itinerary {
	if len(o.Itineraries) == 0 {
		return nil
	}
	return &o.Itineraries[0]
}

// Stops counts intermediate landings on the outbound itinerary.
func (o *FlightOffer) Stops() int {
	out := o.Outbound()
	if out == nil || len(out.Segments) == 0 {
		return 0
	}
	return len(out.Segments) - 1
}

// OutboundDuration parses the outbound itinerary duration, falling back to
// the segment timestamps when the supplier sent something unparseable.
func (o *FlightOffer) OutboundDuration() time.Duration {
	out := o.Outbound()
	if out == nil {
		return 0
	}
	if d, err := ParseISODuration(out.Duration); err == nil {
		return d
	}
	if len(out.Segments) == 0 {
		return 0
	}
	return out.Segments[len(out.Segments)-1].ArrivalAt.Sub(out.Segments[0].DepartureAt)
}

func (o *FlightOffer) DepartureAt() time.Time {
	out := o.Outbound()
	if out == nil || len(out.Segments) == 0 {
		return time.Time{}
	}
	return out.Segments[0].DepartureAt
}

func (o *FlightOffer) ArrivalAt() time.Time {
	out := o.Outbound()
	if out == nil || len(out.Segments) == 0 {
		return time.Time{}
	}
	return out.Segments[len(out.Segments)-1].ArrivalAt
}

// PrimaryCarrier is the validating carrier, or the first marketing carrier
// when the supplier left it blank.
func (o *FlightOffer) PrimaryCarrier() string {
	if o.ValidatingCarrier != "" {
		return o.ValidatingCarrier
	}
	out := o.Outbound()
	if out == nil || len(out.Segments) == 0 {
		return ""
	}
	return out.Segments[0].CarrierCode
}

// PassengerIDs returns the supplier passenger ids in pricing order.
func (o *FlightOffer) PassengerIDs() []string {
	ids := make([]string, 0, len(o.TravelerPricings))
	for _, tp := range o.TravelerPricings {
		ids = append(ids, tp.TravelerID)
	}
	return ids
}

func (o *FlightOffer) HasSegment(segmentID string) bool {
	for _, it := range o.Itineraries {
		for _, s := range it.Segments {
			if s.ID == segmentID {
				return true
			}
		}
	}
	return false
}

func (o *FlightOffer) Clone() *FlightOffer {
	if o == nil {
		return nil
	}
	c := *o
	c.Itineraries = make([]Itinerary, len(o.Itineraries))
	for i, it := range o.Itineraries {
		c.Itineraries[i] = Itinerary{Duration: it.Duration, Segments: append([]Segment(nil), it.Segments...)}
	}
	c.TravelerPricings = append([]TravelerPricing(nil), o.TravelerPricings...)
	return &c
}

// ConfirmedOffer is the supplier's re-priced view of an offer. Only a
// confirmed offer may be booked.
type ConfirmedOffer struct {
	Offer           FlightOffer `json:"offer"`
	OriginalOfferID string      `json:"original_offer_id"`
	OriginalTotal   float64     `json:"original_total"`
	ConfirmedAt     time.Time   `json:"confirmed_at"`
}

func (c *ConfirmedOffer) PriceChanged() bool {
	return c.Offer.Price.Total != c.OriginalTotal
}

func (c *ConfirmedOffer) Clone() *ConfirmedOffer {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Offer = *c.Offer.Clone()
	return &cp
}
