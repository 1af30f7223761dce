package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/ranking"
	"github.com/Domenick1991/flightbooking/internal/service/search"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSearchUseCase struct {
	mock.Mock
}

func (m *MockSearchUseCase) Search(ctx context.Context, params domain.SearchParams) (*search.Result, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*search.Result), args.Error(1)
}

func (m *MockSearchUseCase) Get(ctx context.Context, searchID string) (*search.Result, error) {
	args := m.Called(ctx, searchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*search.Result), args.Error(1)
}

func (m *MockSearchUseCase) Offer(ctx context.Context, searchID, offerID string) (*domain.FlightOffer, error) {
	args := m.Called(ctx, searchID, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FlightOffer), args.Error(1)
}

func (m *MockSearchUseCase) Rank(ctx context.Context, searchID string, selection ranking.FilterState, policy ranking.SortPolicy) (*search.RankedView, error) {
	args := m.Called(ctx, searchID, selection, policy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*search.RankedView), args.Error(1)
}

func TestSearchHandler_offers(t *testing.T) {
	mockService := &MockSearchUseCase{}
	handler := NewSearchHandler(mockService)
	c, w := newTestContext("GET", "/api/v1/searches/search-1/offers?sort=Cheapest&carriers=ek,%20ba&stops=0,2%2B&departure=morning&max_price=1500", nil,
		gin.Param{Key: "searchId", Value: "search-1"})

	expected := ranking.FilterState{
		SelectedCarriers:       []string{"EK", "BA"},
		SelectedStops:          []ranking.StopBucket{ranking.StopsNone, ranking.StopsTwoPlus},
		SelectedDepartureTimes: []ranking.TimeBucket{ranking.Morning},
		PriceSelection:         &ranking.PriceRange{Max: 1500},
	}
	mockService.On("Rank", c.Request.Context(), "search-1", expected, ranking.SortCheapest).
		Return(&search.RankedView{SearchID: "search-1", Policy: ranking.SortCheapest, Total: 4}, nil)

	handler.offers(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response search.RankedView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 4, response.Total)
	mockService.AssertExpectations(t)
}

func TestSearchHandler_offersUnescapedTwoPlus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/v1/searches/s/offers?stops=2+", nil)

	fs, err := parseSelection(c)
	require.NoError(t, err)
	assert.Equal(t, []ranking.StopBucket{ranking.StopsTwoPlus}, fs.SelectedStops)
}

func TestSearchHandler_offersBadQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"unknown sort", "?sort=random"},
		{"bad price", "?max_price=cheap"},
		{"negative price", "?max_price=-5"},
		{"unknown stop bucket", "?stops=3"},
		{"unknown departure window", "?departure=dawn"},
		{"unknown arrival window", "?arrival=morning,lunch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockSearchUseCase{}
			handler := NewSearchHandler(mockService)
			c, w := newTestContext("GET", "/api/v1/searches/search-1/offers"+tt.query, nil,
				gin.Param{Key: "searchId", Value: "search-1"})

			handler.offers(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			mockService.AssertNotCalled(t, "Rank", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSearchHandler_getNotFound(t *testing.T) {
	mockService := &MockSearchUseCase{}
	handler := NewSearchHandler(mockService)
	c, w := newTestContext("GET", "/api/v1/searches/gone", nil, gin.Param{Key: "searchId", Value: "gone"})

	mockService.On("Get", c.Request.Context(), "gone").Return(nil, domain.ErrSearchNotFound)

	handler.get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
