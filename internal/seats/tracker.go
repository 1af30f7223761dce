// Package seats records seat intent per traveler and segment.
package seats

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Domenick1991/flightbooking/internal/domain"
)

type Fetcher interface {
	GetSeatMaps(ctx context.Context, offer *domain.ConfirmedOffer) ([]domain.SeatMap, error)
}

// Tracker holds loaded seat maps and the sparse selection. It does not check
// seats for uniqueness across travelers; the supplier does that at order time.
type Tracker struct {
	mu         sync.RWMutex
	maps       []domain.SeatMap
	loaded     bool
	selections map[domain.SeatKey]string
}

func NewTracker() *Tracker {
	return &Tracker{selections: make(map[domain.SeatKey]string)}
}

// Load fetches seat maps for a confirmed offer. Unavailable seat maps load as
// an empty set.
func (t *Tracker) Load(ctx context.Context, f Fetcher, offer *domain.ConfirmedOffer) ([]domain.SeatMap, error) {
	maps, err := f.GetSeatMaps(ctx, offer)
	if err != nil && !errors.Is(err, domain.ErrSeatMapsUnavailable) {
		return nil, err
	}
	if maps == nil {
		maps = []domain.SeatMap{}
	}

	t.mu.Lock()
	t.maps = maps
	t.loaded = true
	t.mu.Unlock()
	return maps, nil
}

func (t *Tracker) Loaded() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.loaded
}

func (t *Tracker) Maps() []domain.SeatMap {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.SeatMap, len(t.maps))
	for i, m := range t.maps {
		out[i] = domain.SeatMap{SegmentID: m.SegmentID, Seats: append([]domain.Seat(nil), m.Seats...)}
	}
	return out
}

// Select records a seat, replacing any earlier choice for the same pair.
func (t *Tracker) Select(travelerID, segmentID, seatNumber string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selections[domain.SeatKey{TravelerID: travelerID, SegmentID: segmentID}] = seatNumber
}

func (t *Tracker) Clear(travelerID, segmentID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.selections, domain.SeatKey{TravelerID: travelerID, SegmentID: segmentID})
}

func (t *Tracker) Selection(travelerID, segmentID string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	seat, ok := t.selections[domain.SeatKey{TravelerID: travelerID, SegmentID: segmentID}]
	return seat, ok
}

// Assignments returns the selection ordered by traveler then segment.
func (t *Tracker) Assignments() []domain.SeatAssignment {
	t.mu.RLock()
	out := make([]domain.SeatAssignment, 0, len(t.selections))
	for k, v := range t.selections {
		out = append(out, domain.SeatAssignment{TravelerID: k.TravelerID, SegmentID: k.SegmentID, SeatNumber: v})
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].TravelerID != out[j].TravelerID {
			return out[i].TravelerID < out[j].TravelerID
		}
		return out[i].SegmentID < out[j].SegmentID
	})
	return out
}

// Charges is the seat total shown at review.
// TODO: sum supplier seat prices once the pricing response carries them per seat.
func (t *Tracker) Charges() float64 {
	return 0
}
