package domain

type TripType string

const (
	TripOneWay    TripType = "ONE_WAY"
	TripRoundTrip TripType = "ROUND_TRIP"
)

type CabinClass string

const (
	CabinEconomy        CabinClass = "ECONOMY"
	CabinPremiumEconomy CabinClass = "PREMIUM_ECONOMY"
	CabinBusiness       CabinClass = "BUSINESS"
	CabinFirst          CabinClass = "FIRST"
)

func (c CabinClass) Valid() bool {
	switch c {
	case CabinEconomy, CabinPremiumEconomy, CabinBusiness, CabinFirst:
		return true
	}
	return false
}

// SearchParams describes one flight search. TripType is authoritative:
// a one-way search never carries a return date.
type SearchParams struct {
	Origin        string     `json:"origin" validate:"required,len=3,alpha"`
	Destination   string     `json:"destination" validate:"required,len=3,alpha,nefield=Origin"`
	DepartureDate string     `json:"departure_date" validate:"required"`
	ReturnDate    string     `json:"return_date,omitempty"`
	TripType      TripType   `json:"trip_type" validate:"required,oneof=ONE_WAY ROUND_TRIP"`
	Adults        int        `json:"adults" validate:"min=1,max=9"`
	Children      int        `json:"children" validate:"min=0"`
	Infants       int        `json:"infants" validate:"min=0,ltefield=Adults"`
	CabinClass    CabinClass `json:"cabin_class" validate:"required,oneof=ECONOMY PREMIUM_ECONOMY BUSINESS FIRST"`
	NonStop       bool       `json:"non_stop"`
	Currency      string     `json:"currency" validate:"omitempty,len=3,alpha"`
	MaxResults    int        `json:"max_results,omitempty" validate:"min=0"`
}

// SetTripType switches the trip type and drops the return date when the
// trip becomes one-way.
func (p *SearchParams) SetTripType(t TripType) {
	p.TripType = t
	if t == TripOneWay {
		p.ReturnDate = ""
	}
}

func (p SearchParams) Passengers() int {
	return p.Adults + p.Children + p.Infants
}
