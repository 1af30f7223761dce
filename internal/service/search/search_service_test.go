package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/ranking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, params domain.SearchParams) ([]domain.FlightOffer, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FlightOffer), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetSearch(ctx context.Context, id string) (*Result, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Result), args.Error(1)
}

func (m *MockCache) SetSearch(ctx context.Context, result *Result) error {
	return m.Called(ctx, result).Error(0)
}

var now = time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)

func newCoordinator(client Searcher, cache Cache) *Coordinator {
	return NewCoordinator(client, cache, "USD", zap.NewNop(), WithClock(func() time.Time { return now }))
}

func dxbLhr() domain.SearchParams {
	return domain.SearchParams{
		Origin:        "dxb",
		Destination:   "LHR",
		DepartureDate: "2026-11-02",
		ReturnDate:    "2026-11-09",
		TripType:      domain.TripRoundTrip,
		Adults:        2,
		CabinClass:    domain.CabinEconomy,
	}
}

func offers() []domain.FlightOffer {
	dep := time.Date(2026, 11, 2, 9, 0, 0, 0, time.UTC)
	mk := func(id, carrier string, total float64, stops int) domain.FlightOffer {
		segs := make([]domain.Segment, stops+1)
		for i := range segs {
			segs[i] = domain.Segment{ID: id, CarrierCode: carrier, DepartureAt: dep, ArrivalAt: dep.Add(8 * time.Hour)}
		}
		return domain.FlightOffer{
			ID:                id,
			ValidatingCarrier: carrier,
			Price:             domain.Price{Currency: "USD", Total: total},
			Itineraries:       []domain.Itinerary{{Duration: "PT8H", Segments: segs}},
		}
	}
	return []domain.FlightOffer{
		mk("1", "EK", 1300, 0),
		mk("2", "BA", 1100, 1),
		mk("3", "EK", 1250, 1),
	}
}

func TestCoordinator_Search(t *testing.T) {
	client := &MockSearcher{}
	cache := &MockCache{}
	c := newCoordinator(client, cache)

	client.On("Search", mock.Anything, mock.MatchedBy(func(p domain.SearchParams) bool {
		return p.Origin == "DXB" && p.Currency == "USD" && p.ReturnDate == "2026-11-09"
	})).Return(offers(), nil).Once()
	cache.On("SetSearch", mock.Anything, mock.Anything).Return(nil).Once()

	result, err := c.Search(context.Background(), dxbLhr())
	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, offers(), result.Offers)
	assert.Equal(t, ranking.PriceRange{Min: 1100, Max: 1300}, result.Filters.PriceBounds)
	assert.Equal(t, []string{"BA", "EK"}, result.Filters.Carriers)
	assert.True(t, result.Filters.Unrestricted())
	assert.Equal(t, now, result.CreatedAt)
	client.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestCoordinator_SearchOneWayDropsReturnDate(t *testing.T) {
	client := &MockSearcher{}
	c := newCoordinator(client, nil)

	params := dxbLhr()
	params.TripType = domain.TripOneWay
	client.On("Search", mock.Anything, mock.MatchedBy(func(p domain.SearchParams) bool {
		return p.ReturnDate == ""
	})).Return([]domain.FlightOffer{}, nil).Once()

	result, err := c.Search(context.Background(), params)
	require.NoError(t, err)
	assert.Empty(t, result.Offers)
	assert.Empty(t, result.Filters.Carriers)
}

func TestCoordinator_SearchFailureSurfacesOnce(t *testing.T) {
	client := &MockSearcher{}
	c := newCoordinator(client, nil)

	upstream := errors.New("connection refused")
	client.On("Search", mock.Anything, mock.Anything).Return(nil, upstream).Once()

	_, err := c.Search(context.Background(), dxbLhr())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSearchFailed)
	assert.ErrorIs(t, err, upstream)
	client.AssertNumberOfCalls(t, "Search", 1)
}

func TestCoordinator_SearchInvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *domain.SearchParams)
	}{
		{"no adults", func(p *domain.SearchParams) { p.Adults = 0 }},
		{"more infants than adults", func(p *domain.SearchParams) { p.Infants = 3 }},
		{"negative children", func(p *domain.SearchParams) { p.Children = -1 }},
		{"same airports", func(p *domain.SearchParams) { p.Destination = "DXB" }},
		{"bad origin", func(p *domain.SearchParams) { p.Origin = "DUBAI" }},
		{"bad date", func(p *domain.SearchParams) { p.DepartureDate = "02/11/2026" }},
		{"past date", func(p *domain.SearchParams) { p.DepartureDate = "2026-10-01" }},
		{"round trip without return", func(p *domain.SearchParams) { p.ReturnDate = "" }},
		{"return before departure", func(p *domain.SearchParams) { p.ReturnDate = "2026-11-01" }},
		{"missing trip type", func(p *domain.SearchParams) { p.TripType = "" }},
		{"bad cabin", func(p *domain.SearchParams) { p.CabinClass = "LUXURY" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &MockSearcher{}
			c := newCoordinator(client, nil)
			params := dxbLhr()
			tt.mutate(&params)

			_, err := c.Search(context.Background(), params)
			assert.ErrorIs(t, err, domain.ErrInvalidSearchParams)
			assert.ErrorIs(t, err, domain.ErrSearchFailed)
			client.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
		})
	}
}

func TestCoordinator_CacheFailureDoesNotFailSearch(t *testing.T) {
	client := &MockSearcher{}
	cache := &MockCache{}
	c := newCoordinator(client, cache)

	client.On("Search", mock.Anything, mock.Anything).Return(offers(), nil).Once()
	cache.On("SetSearch", mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()

	result, err := c.Search(context.Background(), dxbLhr())
	require.NoError(t, err)
	assert.Len(t, result.Offers, 3)
}

func TestCoordinator_RankFromCache(t *testing.T) {
	client := &MockSearcher{}
	cache := &MockCache{}
	c := newCoordinator(client, cache)

	stored := &Result{ID: "s-1", Offers: offers(), Filters: ranking.NewFilterState(offers())}
	cache.On("GetSearch", mock.Anything, "s-1").Return(stored, nil)

	view, err := c.Rank(context.Background(), "s-1", ranking.FilterState{
		SelectedCarriers: []string{"EK"},
		SelectedStops:    []ranking.StopBucket{ranking.StopsNone},
		// Bounds sent by the consumer are ignored.
		PriceBounds: ranking.PriceRange{Min: 1, Max: 2},
	}, ranking.SortCheapest)
	require.NoError(t, err)
	assert.Equal(t, 3, view.Total)
	require.Len(t, view.Offers, 1)
	assert.Equal(t, "1", view.Offers[0].Offer.ID)
	assert.Equal(t, ranking.PriceRange{Min: 1100, Max: 1300}, view.Filters.PriceBounds)
	client.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)

	offer, err := c.Offer(context.Background(), "s-1", "3")
	require.NoError(t, err)
	assert.Equal(t, "3", offer.ID)

	_, err = c.Offer(context.Background(), "s-1", "99")
	assert.ErrorIs(t, err, domain.ErrOfferNotFound)
}

func TestCoordinator_GetMissing(t *testing.T) {
	cache := &MockCache{}
	cache.On("GetSearch", mock.Anything, "gone").Return(nil, nil)

	_, err := newCoordinator(&MockSearcher{}, cache).Get(context.Background(), "gone")
	assert.ErrorIs(t, err, domain.ErrSearchNotFound)

	_, err = newCoordinator(&MockSearcher{}, nil).Get(context.Background(), "gone")
	assert.ErrorIs(t, err, domain.ErrSearchNotFound)
}
