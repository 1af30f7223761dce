// Package ranking filters and orders a fetched offer set for display.
package ranking

import (
	"math"
	"sort"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
)

// StopBucket groups offers by outbound stop count.
type StopBucket string

const (
	StopsNone    StopBucket = "0"
	StopsOne     StopBucket = "1"
	StopsTwoPlus StopBucket = "2+"
)

func (b StopBucket) Valid() bool {
	switch b {
	case StopsNone, StopsOne, StopsTwoPlus:
		return true
	}
	return false
}

func BucketForStops(stops int) StopBucket {
	switch {
	case stops <= 0:
		return StopsNone
	case stops == 1:
		return StopsOne
	}
	return StopsTwoPlus
}

// TimeBucket is a time-of-day window on the local wall clock of the airport.
type TimeBucket string

const (
	Morning   TimeBucket = "morning"
	Afternoon TimeBucket = "afternoon"
	Evening   TimeBucket = "evening"
	Night     TimeBucket = "night"
)

// BucketForTime: morning 05-11, afternoon 12-17, evening 18-21, night 22-04.
func (b TimeBucket) Valid() bool {
	switch b {
	case Morning, Afternoon, Evening, Night:
		return true
	}
	return false
}

func BucketForTime(t time.Time) TimeBucket {
	h := t.Hour()
	switch {
	case h >= 5 && h < 12:
		return Morning
	case h >= 12 && h < 18:
		return Afternoon
	case h >= 18 && h < 22:
		return Evening
	}
	return Night
}

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FilterState is the consumer-owned filter selection over one result set.
// An empty selection in a dimension imposes no restriction; the zero value
// filters nothing.
type FilterState struct {
	PriceBounds PriceRange `json:"price_bounds"`
	// PriceSelection is the chosen sub-range. Only Max is applied; the lower
	// bound stays at the dataset minimum.
	PriceSelection *PriceRange `json:"price_selection,omitempty"`
	Carriers       []string    `json:"carriers"`

	SelectedCarriers       []string     `json:"selected_carriers,omitempty"`
	SelectedStops          []StopBucket `json:"selected_stops,omitempty"`
	SelectedDepartureTimes []TimeBucket `json:"selected_departure_times,omitempty"`
	SelectedArrivalTimes   []TimeBucket `json:"selected_arrival_times,omitempty"`
}

// NewFilterState seeds bounds and the carrier facet from a fresh result set.
func NewFilterState(offers []domain.FlightOffer) FilterState {
	fs := FilterState{Carriers: []string{}}
	if len(offers) == 0 {
		return fs
	}

	minPrice, maxPrice := math.MaxFloat64, -math.MaxFloat64
	seen := make(map[string]struct{})
	for i := range offers {
		p := offers[i].Price.Total
		minPrice = math.Min(minPrice, p)
		maxPrice = math.Max(maxPrice, p)
		if c := offers[i].PrimaryCarrier(); c != "" {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				fs.Carriers = append(fs.Carriers, c)
			}
		}
	}
	sort.Strings(fs.Carriers)
	fs.PriceBounds = PriceRange{Min: minPrice, Max: maxPrice}
	return fs
}

// Unrestricted reports whether no dimension filters anything.
func (f FilterState) Unrestricted() bool {
	return f.PriceSelection == nil &&
		len(f.SelectedCarriers) == 0 &&
		len(f.SelectedStops) == 0 &&
		len(f.SelectedDepartureTimes) == 0 &&
		len(f.SelectedArrivalTimes) == 0
}

// Match applies every dimension conjunctively.
func (f FilterState) Match(o *domain.FlightOffer) bool {
	if f.PriceSelection != nil && o.Price.Total > f.PriceSelection.Max {
		return false
	}
	if len(f.SelectedCarriers) > 0 && !contains(f.SelectedCarriers, o.PrimaryCarrier()) {
		return false
	}
	if len(f.SelectedStops) > 0 && !contains(f.SelectedStops, BucketForStops(o.Stops())) {
		return false
	}
	if len(f.SelectedDepartureTimes) > 0 && !contains(f.SelectedDepartureTimes, BucketForTime(o.DepartureAt())) {
		return false
	}
	if len(f.SelectedArrivalTimes) > 0 && !contains(f.SelectedArrivalTimes, BucketForTime(o.ArrivalAt())) {
		return false
	}
	return true
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Facets counts offers per bucket so the consumer can render filter chips.
type Facets struct {
	Stops          map[StopBucket]int `json:"stops"`
	DepartureTimes map[TimeBucket]int `json:"departure_times"`
	ArrivalTimes   map[TimeBucket]int `json:"arrival_times"`
	Carriers       map[string]int     `json:"carriers"`
}

func CountFacets(offers []domain.FlightOffer) Facets {
	f := Facets{
		Stops:          make(map[StopBucket]int),
		DepartureTimes: make(map[TimeBucket]int),
		ArrivalTimes:   make(map[TimeBucket]int),
		Carriers:       make(map[string]int),
	}
	for i := range offers {
		o := &offers[i]
		f.Stops[BucketForStops(o.Stops())]++
		f.DepartureTimes[BucketForTime(o.DepartureAt())]++
		f.ArrivalTimes[BucketForTime(o.ArrivalAt())]++
		f.Carriers[o.PrimaryCarrier()]++
	}
	return f
}
