package domain

import "time"

type OrderStatus string

const (
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusTicketed  OrderStatus = "TICKETED"
)

// Order is the supplier booking created from a session. TicketNumbers maps
// traveler id to e-ticket number once the supplier issues them.
type Order struct {
	ID            string            `json:"id"`
	Reference     string            `json:"reference"`
	TicketNumbers map[string]string `json:"ticket_numbers,omitempty"`
	Total         Price             `json:"total"`
	Status        OrderStatus       `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	if o.TicketNumbers != nil {
		c.TicketNumbers = make(map[string]string, len(o.TicketNumbers))
		for k, v := range o.TicketNumbers {
			c.TicketNumbers[k] = v
		}
	}
	return &c
}

type OrderPayload struct {
	Offer     ConfirmedOffer   `json:"offer"`
	Travelers []Traveler       `json:"travelers"`
	Contact   Contact          `json:"contact"`
	Seats     []SeatAssignment `json:"seats"`
}

type AttemptStatus string

const (
	AttemptPending   AttemptStatus = "PENDING"
	AttemptSucceeded AttemptStatus = "SUCCEEDED"
	AttemptFailed    AttemptStatus = "FAILED"
	AttemptUnknown   AttemptStatus = "UNKNOWN"
	AttemptOrphaned  AttemptStatus = "ORPHANED"
)

// OrderAttempt is one journaled createOrder call against the supplier.
type OrderAttempt struct {
	ID         string
	SessionID  string
	Generation uint64
	OfferID    string
	Status     AttemptStatus
	OrderID    string
	Reference  string
	Error      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
