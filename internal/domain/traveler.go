package domain

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

type Name struct {
	First string `json:"first"`
	Last  string `json:"last"`
}

// Document is a passport. Dates use YYYY-MM-DD.
type Document struct {
	Number          string `json:"number"`
	ExpiryDate      string `json:"expiry_date"`
	IssuanceCountry string `json:"issuance_country"`
	Nationality     string `json:"nationality"`
}

type Contact struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Traveler is one passenger on the booking. ID holds the supplier passenger
// id once bound; only the first traveler carries Contact.
type Traveler struct {
	ID              string       `json:"id"`
	Type            TravelerType `json:"type"`
	Name            Name         `json:"name"`
	DateOfBirth     string       `json:"date_of_birth"`
	Gender          Gender       `json:"gender"`
	Document        Document     `json:"document"`
	Contact         *Contact     `json:"contact,omitempty"`
	SpecialRequests []string     `json:"special_requests,omitempty"`
}

func (t *Traveler) SetName(first, last string) {
	t.Name = Name{First: first, Last: last}
}

func (t *Traveler) SetDocument(doc Document) {
	t.Document = doc
}

func (t *Traveler) SetContact(email, phone string) {
	t.Contact = &Contact{Email: email, Phone: phone}
}

func (t *Traveler) SetSpecialRequests(requests ...string) {
	t.SpecialRequests = append([]string(nil), requests...)
}

func (t Traveler) Clone() Traveler {
	c := t
	if t.Contact != nil {
		contact := *t.Contact
		c.Contact = &contact
	}
	c.SpecialRequests = append([]string(nil), t.SpecialRequests...)
	return c
}

func CloneTravelers(in []Traveler) []Traveler {
	if in == nil {
		return nil
	}
	out := make([]Traveler, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}
