// Package validation checks traveler records before they are bound to an offer.
package validation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

// Errors maps a field path such as travelers[1].dateOfBirth to a message.
// An empty map means every traveler passed.
type Errors map[string]string

func (e Errors) OK() bool { return len(e) == 0 }

// Fields returns the failing paths in a stable order.
func (e Errors) Fields() []string {
	out := make([]string, 0, len(e))
	for k := range e {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ForTraveler returns the subset of errors for traveler i.
func (e Errors) ForTraveler(i int) Errors {
	prefix := fmt.Sprintf("travelers[%d].", i)
	out := Errors{}
	for k, v := range e {
		if strings.HasPrefix(k, prefix) {
			out[strings.TrimPrefix(k, prefix)] = v
		}
	}
	return out
}

type TravelerValidator struct {
	v *validator.Validate
}

func NewTravelerValidator() *TravelerValidator {
	return &TravelerValidator{v: validator.New()}
}

// Validate runs field and cross-field rules over the whole list. It never
// stops at the first failure.
func (tv *TravelerValidator) Validate(travelers []domain.Traveler, now time.Time) Errors {
	errs := Errors{}
	if len(travelers) == 0 {
		errs["travelers"] = "at least one traveler is required"
		return errs
	}

	today := truncateDay(now)
	for i, t := range travelers {
		path := func(field string) string { return fmt.Sprintf("travelers[%d].%s", i, field) }

		if strings.TrimSpace(t.Name.First) == "" {
			errs[path("name.first")] = "first name is required"
		}
		if strings.TrimSpace(t.Name.Last) == "" {
			errs[path("name.last")] = "last name is required"
		}
		if t.Gender != domain.GenderMale && t.Gender != domain.GenderFemale {
			errs[path("gender")] = "gender must be MALE or FEMALE"
		}

		tv.checkAge(errs, path("dateOfBirth"), path("type"), t, today)
		tv.checkDocument(errs, path, t.Document, today)

		if i == 0 {
			tv.checkContact(errs, path, t.Contact)
		}
	}
	return errs
}

func (tv *TravelerValidator) checkAge(errs Errors, dobPath, typePath string, t domain.Traveler, today time.Time) {
	if strings.TrimSpace(t.DateOfBirth) == "" {
		errs[dobPath] = "date of birth is required"
		return
	}
	dob, err := time.Parse(dateLayout, t.DateOfBirth)
	if err != nil {
		errs[dobPath] = "date of birth must be YYYY-MM-DD"
		return
	}
	if dob.After(today) {
		errs[dobPath] = "date of birth cannot be in the future"
		return
	}

	age := AgeOn(dob, today)
	switch t.Type {
	case domain.TravelerAdult:
		if age < 12 {
			errs[dobPath] = "adult travelers must be at least 12 years old"
		}
	case domain.TravelerChild:
		if age < 2 || age > 11 {
			errs[dobPath] = "child travelers must be between 2 and 11 years old"
		}
	case domain.TravelerInfant:
		if age >= 2 {
			errs[dobPath] = "infant travelers must be under 2 years old"
		}
	default:
		errs[typePath] = "traveler type must be ADULT, CHILD or INFANT"
	}
}

func (tv *TravelerValidator) checkDocument(errs Errors, path func(string) string, doc domain.Document, today time.Time) {
	if strings.TrimSpace(doc.Number) == "" {
		errs[path("document.number")] = "passport number is required"
	}

	switch expiry, err := time.Parse(dateLayout, doc.ExpiryDate); {
	case strings.TrimSpace(doc.ExpiryDate) == "":
		errs[path("document.expiryDate")] = "passport expiry date is required"
	case err != nil:
		errs[path("document.expiryDate")] = "passport expiry date must be YYYY-MM-DD"
	case !expiry.After(today):
		errs[path("document.expiryDate")] = "passport must not be expired"
	}

	if tv.v.Var(strings.ToUpper(doc.IssuanceCountry), "required,iso3166_1_alpha2") != nil {
		errs[path("document.issuanceCountry")] = "issuing country must be a two-letter country code"
	}
	if tv.v.Var(strings.ToUpper(doc.Nationality), "required,iso3166_1_alpha2") != nil {
		errs[path("document.nationality")] = "nationality must be a two-letter country code"
	}
}

func (tv *TravelerValidator) checkContact(errs Errors, path func(string) string, c *domain.Contact) {
	if c == nil {
		errs[path("contact.email")] = "email is required for the primary traveler"
		errs[path("contact.phone")] = "phone is required for the primary traveler"
		return
	}
	if tv.v.Var(c.Email, "required,email") != nil {
		errs[path("contact.email")] = "a valid email is required for the primary traveler"
	}
	if strings.TrimSpace(c.Phone) == "" {
		errs[path("contact.phone")] = "phone is required for the primary traveler"
	}
}

// AgeOn returns completed years between dob and day.
func AgeOn(dob, day time.Time) int {
	age := day.Year() - dob.Year()
	if day.Month() < dob.Month() || (day.Month() == dob.Month() && day.Day() < dob.Day()) {
		age--
	}
	return age
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
