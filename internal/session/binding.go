package session

import (
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/domain"
)

// BindPassengerIDs copies supplier passenger ids onto travelers by position.
// Count or type mismatches fail; nothing falls back to a local id.
func BindPassengerIDs(travelers []domain.Traveler, pricings []domain.TravelerPricing) ([]domain.Traveler, error) {
	if len(travelers) != len(pricings) {
		return nil, fmt.Errorf("%w: %d travelers for %d priced passengers", domain.ErrPassengerBinding, len(travelers), len(pricings))
	}

	bound := domain.CloneTravelers(travelers)
	for i, p := range pricings {
		if p.TravelerID == "" {
			return nil, fmt.Errorf("%w: passenger %d has no supplier id", domain.ErrPassengerBinding, i)
		}
		if p.TravelerType != "" && bound[i].Type != p.TravelerType {
			return nil, fmt.Errorf("%w: traveler %d is %s but passenger %s is priced as %s",
				domain.ErrPassengerBinding, i, bound[i].Type, p.TravelerID, p.TravelerType)
		}
		bound[i].ID = p.TravelerID
	}
	return bound, nil
}

// samePassengerIDs reports whether two pricing lists carry the same supplier
// passenger ids in the same order.
func samePassengerIDs(a, b []domain.TravelerPricing) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].TravelerID != b[i].TravelerID {
			return false
		}
	}
	return true
}
