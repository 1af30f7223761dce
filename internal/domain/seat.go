package domain

type Seat struct {
	Number    string  `json:"number"`
	Available bool    `json:"available"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency,omitempty"`
}

type SeatMap struct {
	SegmentID string `json:"segment_id"`
	Seats     []Seat `json:"seats"`
}

type SeatKey struct {
	TravelerID string
	SegmentID  string
}

type SeatAssignment struct {
	TravelerID string `json:"traveler_id"`
	SegmentID  string `json:"segment_id"`
	SeatNumber string `json:"seat_number"`
}
