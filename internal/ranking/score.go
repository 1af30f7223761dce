package ranking

import (
	"math"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
)

// Recommended score weights. They sum to 1 so scores stay on 0..100.
const (
	weightPrice    = 0.4
	weightDuration = 0.3
	weightStops    = 0.3
)

// Bounds are the normalization ranges for the recommended score.
type Bounds struct {
	MinPrice, MaxPrice       float64
	MinDuration, MaxDuration time.Duration
}

// BoundsOf computes normalization ranges over the whole result set, so a
// score does not move when filters change.
func BoundsOf(offers []domain.FlightOffer) Bounds {
	if len(offers) == 0 {
		return Bounds{}
	}
	b := Bounds{
		MinPrice:    math.MaxFloat64,
		MaxPrice:    -math.MaxFloat64,
		MinDuration: time.Duration(math.MaxInt64),
		MaxDuration: 0,
	}
	for i := range offers {
		p := offers[i].Price.Total
		d := offers[i].OutboundDuration()
		b.MinPrice = math.Min(b.MinPrice, p)
		b.MaxPrice = math.Max(b.MaxPrice, p)
		if d < b.MinDuration {
			b.MinDuration = d
		}
		if d > b.MaxDuration {
			b.MaxDuration = d
		}
	}
	return b
}

// Score is a pure function of price, duration and stop count against the
// given bounds. Higher is better.
func Score(price float64, duration time.Duration, stops int, b Bounds) float64 {
	priceScore := inverseLinear(price, b.MinPrice, b.MaxPrice)
	durationScore := inverseLinear(float64(duration), float64(b.MinDuration), float64(b.MaxDuration))
	return weightPrice*priceScore + weightDuration*durationScore + weightStops*StopScore(stops)
}

func StopScore(stops int) float64 {
	switch {
	case stops <= 0:
		return 100
	case stops == 1:
		return 50
	}
	return 0
}

// inverseLinear maps min to 100 and max to 0. A degenerate range scores 100.
func inverseLinear(v, min, max float64) float64 {
	if max <= min {
		return 100
	}
	s := (max - v) / (max - min) * 100
	return math.Max(0, math.Min(100, s))
}
