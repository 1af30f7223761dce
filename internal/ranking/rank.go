package ranking

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
)

type SortPolicy string

const (
	SortRecommended SortPolicy = "recommended"
	SortCheapest    SortPolicy = "cheapest"
	SortFastest     SortPolicy = "fastest"
	SortEarliest    SortPolicy = "earliest"
	SortLatest      SortPolicy = "latest"
)

// ParseSortPolicy accepts the policy names case-insensitively. Empty means
// recommended.
func ParseSortPolicy(s string) (SortPolicy, error) {
	p := SortPolicy(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case "":
		return SortRecommended, nil
	case SortRecommended, SortCheapest, SortFastest, SortEarliest, SortLatest:
		return p, nil
	}
	return "", fmt.Errorf("unknown sort policy %q", s)
}

// Ranked is a read-only view of one offer in a ranked list.
type Ranked struct {
	Offer    *domain.FlightOffer `json:"offer"`
	Position int                 `json:"position"`
	Score    float64             `json:"score"`
	Stops    int                 `json:"stops"`
	Duration time.Duration       `json:"duration"`
}

// Rank filters offers and orders them by policy. Ties keep search order.
// Offers are referenced, never copied or modified; position is the index in
// the input slice.
func Rank(offers []domain.FlightOffer, filters FilterState, policy SortPolicy) []Ranked {
	bounds := BoundsOf(offers)

	out := make([]Ranked, 0, len(offers))
	for i := range offers {
		o := &offers[i]
		if !filters.Match(o) {
			continue
		}
		d := o.OutboundDuration()
		out = append(out, Ranked{
			Offer:    o,
			Position: i,
			Score:    Score(o.Price.Total, d, o.Stops(), bounds),
			Stops:    o.Stops(),
			Duration: d,
		})
	}

	sort.SliceStable(out, less(out, policy))
	return out
}

func less(r []Ranked, policy SortPolicy) func(i, j int) bool {
	switch policy {
	case SortCheapest:
		return func(i, j int) bool { return r[i].Offer.Price.Total < r[j].Offer.Price.Total }
	case SortFastest:
		return func(i, j int) bool { return r[i].Duration < r[j].Duration }
	case SortEarliest:
		return func(i, j int) bool { return r[i].Offer.DepartureAt().Before(r[j].Offer.DepartureAt()) }
	case SortLatest:
		return func(i, j int) bool { return r[i].Offer.DepartureAt().After(r[j].Offer.DepartureAt()) }
	default:
		return func(i, j int) bool { return r[i].Score > r[j].Score }
	}
}
