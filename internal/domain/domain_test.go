package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"PT7H30M", 7*time.Hour + 30*time.Minute},
		{"PT45M", 45 * time.Minute},
		{"P1DT2H", 26 * time.Hour},
		{"PT1H0M30S", time.Hour + 30*time.Second},
	}
	for _, tt := range tests {
		got, err := ParseISODuration(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "P", "PT", "7H", "P1DT", "PT-1H"} {
		_, err := ParseISODuration(bad)
		assert.Error(t, err, bad)
	}
}

func TestFlightOffer_Derived(t *testing.T) {
	dep := time.Date(2026, 11, 2, 8, 15, 0, 0, time.UTC)
	offer := FlightOffer{
		ID: "1",
		Itineraries: []Itinerary{{
			Duration: "garbage",
			Segments: []Segment{
				{ID: "s1", CarrierCode: "EK", DepartureAt: dep, ArrivalAt: dep.Add(3 * time.Hour)},
				{ID: "s2", CarrierCode: "EK", DepartureAt: dep.Add(5 * time.Hour), ArrivalAt: dep.Add(9 * time.Hour)},
			},
		}},
		TravelerPricings: []TravelerPricing{{TravelerID: "1"}, {TravelerID: "2"}},
	}

	assert.Equal(t, 1, offer.Stops())
	assert.Equal(t, 9*time.Hour, offer.OutboundDuration())
	assert.Equal(t, "EK", offer.PrimaryCarrier())
	assert.Equal(t, []string{"1", "2"}, offer.PassengerIDs())
	assert.True(t, offer.HasSegment("s2"))
	assert.False(t, offer.HasSegment("s3"))

	clone := offer.Clone()
	clone.Itineraries[0].Segments[0].CarrierCode = "QR"
	assert.Equal(t, "EK", offer.Itineraries[0].Segments[0].CarrierCode)
}

func TestSearchParams_SetTripType(t *testing.T) {
	p := SearchParams{TripType: TripRoundTrip, ReturnDate: "2026-11-10"}
	p.SetTripType(TripOneWay)
	assert.Empty(t, p.ReturnDate)

	p.ReturnDate = "2026-11-10"
	p.SetTripType(TripRoundTrip)
	assert.Equal(t, "2026-11-10", p.ReturnDate)
}

func TestErrors_Classification(t *testing.T) {
	transition := &TransitionError{Op: "advance", From: StepSelecting, To: StepReviewing}
	assert.True(t, errors.Is(transition, ErrIllegalTransition))
	assert.True(t, IsSessionFault(transition))
	assert.False(t, IsSupplierFault(transition))

	assert.True(t, errors.Is(ErrPassengerBinding, ErrPreconditionFailed))

	supplierErr := fmt.Errorf("%w: offer expired", ErrPriceConfirmationFailed)
	assert.True(t, IsSupplierFault(supplierErr))
	assert.False(t, IsSessionFault(supplierErr))

	assert.Contains(t, Action(supplierErr), "return to search")
	assert.Contains(t, Action(fmt.Errorf("%w: %w", ErrOrderCreationFailed, ErrOrderOutcomeUnknown)), "contact support")
	assert.Empty(t, Action(nil))
}
