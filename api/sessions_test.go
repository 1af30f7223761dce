package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/service/search"
	"github.com/Domenick1991/flightbooking/internal/session"
	"github.com/Domenick1991/flightbooking/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockBookingUseCase is a mock implementation of booking.BookingUseCase
type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) snapshot(args mock.Arguments) (session.Snapshot, error) {
	snap, _ := args.Get(0).(session.Snapshot)
	return snap, args.Error(1)
}

func (m *MockBookingUseCase) Create(ctx context.Context) session.Snapshot {
	return m.Called(ctx).Get(0).(session.Snapshot)
}

func (m *MockBookingUseCase) Get(ctx context.Context, sessionID string) (session.Snapshot, error) {
	return m.snapshot(m.Called(ctx, sessionID))
}

func (m *MockBookingUseCase) Reset(ctx context.Context, sessionID string) (session.Snapshot, error) {
	return m.snapshot(m.Called(ctx, sessionID))
}

func (m *MockBookingUseCase) Search(ctx context.Context, sessionID string, params domain.SearchParams) (*search.Result, error) {
	args := m.Called(ctx, sessionID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*search.Result), args.Error(1)
}

func (m *MockBookingUseCase) SelectOffer(ctx context.Context, sessionID, searchID, offerID string) (session.Snapshot, error) {
	return m.snapshot(m.Called(ctx, sessionID, searchID, offerID))
}

func (m *MockBookingUseCase) ConfirmPrice(ctx context.Context, sessionID string) (session.Snapshot, error) {
	return m.snapshot(m.Called(ctx, sessionID))
}

func (m *MockBookingUseCase) SubmitTravelers(ctx context.Context, sessionID string, travelers []domain.Traveler) (session.Snapshot, validation.Errors, error) {
	args := m.Called(ctx, sessionID, travelers)
	snap, _ := args.Get(0).(session.Snapshot)
	errs, _ := args.Get(1).(validation.Errors)
	return snap, errs, args.Error(2)
}

func (m *MockBookingUseCase) LoadSeatMaps(ctx context.Context, sessionID string) ([]domain.SeatMap, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SeatMap), args.Error(1)
}

func (m *MockBookingUseCase) SelectSeat(ctx context.Context, sessionID string, seat domain.SeatAssignment) (session.Snapshot, error) {
	return m.snapshot(m.Called(ctx, sessionID, seat))
}

func (m *MockBookingUseCase) ClearSeat(ctx context.Context, sessionID, travelerID, segmentID string) (session.Snapshot, error) {
	return m.snapshot(m.Called(ctx, sessionID, travelerID, segmentID))
}

func (m *MockBookingUseCase) Advance(ctx context.Context, sessionID string, target domain.Step) (session.Snapshot, error) {
	return m.snapshot(m.Called(ctx, sessionID, target))
}

func (m *MockBookingUseCase) Back(ctx context.Context, sessionID string) (session.Snapshot, error) {
	return m.snapshot(m.Called(ctx, sessionID))
}

func (m *MockBookingUseCase) CreateOrder(ctx context.Context, sessionID string) (session.Snapshot, error) {
	return m.snapshot(m.Called(ctx, sessionID))
}

func (m *MockBookingUseCase) ResolveOrderOutcome(ctx context.Context, sessionID string) (session.Snapshot, error) {
	return m.snapshot(m.Called(ctx, sessionID))
}

func newTestContext(method, path string, body any, params ...gin.Param) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, path, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = params
	return c, w
}

func idParam(id string) gin.Param {
	return gin.Param{Key: "id", Value: id}
}

func TestSessionHandler_create(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewSessionHandler(mockService)
	c, w := newTestContext("POST", "/api/v1/sessions", nil)

	mockService.On("Create", c.Request.Context()).Return(session.Snapshot{ID: "s-1", Step: domain.StepSearching, StepName: "searching"})

	handler.create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var response session.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "s-1", response.ID)
	assert.Equal(t, "searching", response.StepName)
	mockService.AssertExpectations(t)
}

func TestSessionHandler_getNotFound(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewSessionHandler(mockService)
	c, w := newTestContext("GET", "/api/v1/sessions/missing", nil, idParam("missing"))

	mockService.On("Get", c.Request.Context(), "missing").Return(nil, domain.ErrSessionNotFound)

	handler.get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var response errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, domain.Action(domain.ErrSessionNotFound), response.Action)
	assert.Nil(t, response.Session)
}

func TestSessionHandler_search(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewSessionHandler(mockService)

	params := domain.SearchParams{
		Origin:        "DXB",
		Destination:   "LHR",
		DepartureDate: "2026-11-02",
		ReturnDate:    "2026-11-09",
		TripType:      domain.TripRoundTrip,
		Adults:        2,
		CabinClass:    domain.CabinEconomy,
	}
	c, w := newTestContext("POST", "/api/v1/sessions/s-1/search", params, idParam("s-1"))

	offers := []domain.FlightOffer{
		{ID: "1", ValidatingCarrier: "EK", Price: domain.Price{Currency: "USD", Total: 1300}},
		{ID: "2", ValidatingCarrier: "BA", Price: domain.Price{Currency: "USD", Total: 1100}},
	}
	mockService.On("Search", c.Request.Context(), "s-1", params).Return(&search.Result{ID: "search-1", Offers: offers}, nil)

	handler.search(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response struct {
		SearchID string `json:"search_id"`
		Offers   []struct {
			Position int `json:"position"`
		} `json:"offers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "search-1", response.SearchID)
	assert.Len(t, response.Offers, 2)
}

func TestSessionHandler_searchInvalidParams(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewSessionHandler(mockService)
	c, w := newTestContext("POST", "/api/v1/sessions/s-1/search", domain.SearchParams{}, idParam("s-1"))

	mockService.On("Search", c.Request.Context(), "s-1", domain.SearchParams{}).
		Return(nil, fmt.Errorf("%w: %w", domain.ErrSearchFailed, domain.ErrInvalidSearchParams))

	handler.search(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_selectOffer(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewSessionHandler(mockService)
	c, w := newTestContext("POST", "/api/v1/sessions/s-1/offer", selectOfferRequest{OfferID: "3", SearchID: "search-1"}, idParam("s-1"))

	snap := session.Snapshot{ID: "s-1", Step: domain.StepCollectingTravelers, Pricing: session.OpStatus{Pending: true}}
	mockService.On("SelectOffer", c.Request.Context(), "s-1", "search-1", "3").Return(snap, nil)

	handler.selectOffer(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response session.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Pricing.Pending)
}

func TestSessionHandler_selectOfferMissingID(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewSessionHandler(mockService)
	c, w := newTestContext("POST", "/api/v1/sessions/s-1/offer", map[string]string{}, idParam("s-1"))

	handler.selectOffer(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "SelectOffer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionHandler_confirmPriceGone(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewSessionHandler(mockService)
	c, w := newTestContext("POST", "/api/v1/sessions/s-1/price", nil, idParam("s-1"))

	failure := fmt.Errorf("%w: fare sold out", domain.ErrPriceConfirmationFailed)
	snap := session.Snapshot{ID: "s-1", Step: domain.StepCollectingTravelers, Pricing: session.OpStatus{Error: failure.Error()}}
	mockService.On("ConfirmPrice", c.Request.Context(), "s-1").Return(snap, failure)

	handler.confirmPrice(c)

	assert.Equal(t, http.StatusGone, w.Code)
	var response struct {
		Error   string           `json:"error"`
		Action  string           `json:"action"`
		Session session.Snapshot `json:"session"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "s-1", response.Session.ID)
	assert.Contains(t, response.Action, "no longer available")
}

func TestSessionHandler_submitTravelersValidation(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewSessionHandler(mockService)

	travelers := []domain.Traveler{{Type: domain.TravelerAdult}}
	c, w := newTestContext("POST", "/api/v1/sessions/s-1/travelers", travelersRequest{Travelers: travelers}, idParam("s-1"))

	fieldErrs := validation.Errors{"travelers[0].name.first": "first name is required"}
	mockService.On("SubmitTravelers", c.Request.Context(), "s-1", travelers).
		Return(session.Snapshot{ID: "s-1", Step: domain.StepCollectingTravelers}, fieldErrs, nil)

	handler.submitTravelers(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var response validationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, fieldErrs, response.Fields)
	assert.Equal(t, domain.StepCollectingTravelers, response.Session.Step)
}

func TestSessionHandler_submitTravelersIllegalStep(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewSessionHandler(mockService)
	c, w := newTestContext("POST", "/api/v1/sessions/s-1/travelers", travelersRequest{}, idParam("s-1"))

	mockService.On("SubmitTravelers", c.Request.Context(), "s-1", []domain.Traveler(nil)).
		Return(session.Snapshot{ID: "s-1", Step: domain.StepSearching}, nil,
			&domain.TransitionError{Op: "submitTravelers", From: domain.StepSearching, To: domain.StepSelectingSeats})

	handler.submitTravelers(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSessionHandler_seatMaps(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewSessionHandler(mockService)
	c, w := newTestContext("GET", "/api/v1/sessions/s-1/seatmaps", nil, idParam("s-1"))

	mockService.On("LoadSeatMaps", c.Request.Context(), "s-1").Return([]domain.SeatMap{}, nil)

	handler.seatMaps(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"seat_maps":[]}`, w.Body.String())
}

func TestSessionHandler_selectAndClearSeat(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewSessionHandler(mockService)

	req := seatRequest{TravelerID: "1", SegmentID: "3-out", SeatNumber: "12A"}
	c, w := newTestContext("PUT", "/api/v1/sessions/s-1/seats", req, idParam("s-1"))
	seat := domain.SeatAssignment{TravelerID: "1", SegmentID: "3-out", SeatNumber: "12A"}
	mockService.On("SelectSeat", c.Request.Context(), "s-1", seat).
		Return(session.Snapshot{ID: "s-1", Seats: []domain.SeatAssignment{seat}}, nil)

	handler.selectSeat(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newTestContext("DELETE", "/api/v1/sessions/s-1/seats/1/3-out", nil,
		idParam("s-1"), gin.Param{Key: "travelerId", Value: "1"}, gin.Param{Key: "segmentId", Value: "3-out"})
	mockService.On("ClearSeat", c.Request.Context(), "s-1", "1", "3-out").Return(session.Snapshot{ID: "s-1"}, nil)

	handler.clearSeat(c)
	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestSessionHandler_advance(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewSessionHandler(mockService)
	c, w := newTestContext("POST", "/api/v1/sessions/s-1/advance", map[string]int{"step": int(domain.StepReviewing)}, idParam("s-1"))

	mockService.On("Advance", c.Request.Context(), "s-1", domain.StepReviewing).
		Return(session.Snapshot{ID: "s-1"}, fmt.Errorf("%w: price has not been confirmed", domain.ErrPreconditionFailed))

	handler.advance(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSessionHandler_createOrder(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"created", nil, http.StatusOK},
		{"rejected", fmt.Errorf("%w: invalid passport", domain.ErrOrderCreationFailed), http.StatusBadGateway},
		{"outcome unknown", fmt.Errorf("%w: %w: timeout", domain.ErrOrderOutcomeUnknown, domain.ErrOrderCreationFailed), http.StatusConflict},
		{"not reviewing", &domain.TransitionError{Op: "createOrder", From: domain.StepSelecting, To: domain.StepConfirmed}, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockBookingUseCase{}
			handler := NewSessionHandler(mockService)
			c, w := newTestContext("POST", "/api/v1/sessions/s-1/order", nil, idParam("s-1"))

			mockService.On("CreateOrder", c.Request.Context(), "s-1").Return(session.Snapshot{ID: "s-1"}, tt.err)

			handler.createOrder(c)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestSessionHandler_resetBackResolve(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewSessionHandler(mockService)

	c, w := newTestContext("DELETE", "/api/v1/sessions/s-1", nil, idParam("s-1"))
	mockService.On("Reset", c.Request.Context(), "s-1").Return(session.Snapshot{ID: "s-1", Generation: 1}, nil)
	handler.reset(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newTestContext("POST", "/api/v1/sessions/s-1/back", nil, idParam("s-1"))
	mockService.On("Back", c.Request.Context(), "s-1").Return(session.Snapshot{ID: "s-1"}, nil)
	handler.back(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newTestContext("POST", "/api/v1/sessions/s-1/order/resolve", nil, idParam("s-1"))
	mockService.On("ResolveOrderOutcome", c.Request.Context(), "s-1").
		Return(session.Snapshot{ID: "s-1"}, fmt.Errorf("%w: no unresolved order submission", domain.ErrPreconditionFailed))
	handler.resolveOrder(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSessionHandler_routes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockService := &MockBookingUseCase{}
	router := gin.New()
	NewSessionHandler(mockService).Register(router.Group("/api/v1/sessions"))

	mockService.On("Get", mock.Anything, "s-1").Return(session.Snapshot{ID: "s-1"}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/sessions/s-1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, router.Routes(), 14)
}
