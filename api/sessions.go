package api

import (
	"net/http"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/ranking"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/Domenick1991/flightbooking/internal/session"
	"github.com/Domenick1991/flightbooking/internal/validation"
	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	service booking.BookingUseCase
}

type selectOfferRequest struct {
	OfferID  string `json:"offer_id" binding:"required"`
	SearchID string `json:"search_id"`
}

type travelersRequest struct {
	Travelers []domain.Traveler `json:"travelers"`
}

type seatRequest struct {
	TravelerID string `json:"traveler_id" binding:"required"`
	SegmentID  string `json:"segment_id" binding:"required"`
	SeatNumber string `json:"seat_number" binding:"required"`
}

type advanceRequest struct {
	Step domain.Step `json:"step" binding:"required"`
}

type searchResponse struct {
	SessionID string              `json:"session_id"`
	SearchID  string              `json:"search_id"`
	Offers    []ranking.Ranked    `json:"offers"`
	Filters   ranking.FilterState `json:"filters"`
	Facets    ranking.Facets      `json:"facets"`
}

type validationResponse struct {
	Error   string            `json:"error"`
	Fields  validation.Errors `json:"fields"`
	Session session.Snapshot  `json:"session"`
}

type seatMapsResponse struct {
	SeatMaps []domain.SeatMap `json:"seat_maps"`
}

func NewSessionHandler(service booking.BookingUseCase) *SessionHandler {
	return &SessionHandler{service: service}
}

func (h *SessionHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("/:id", h.get)
	router.DELETE("/:id", h.reset)
	router.POST("/:id/search", h.search)
	router.POST("/:id/offer", h.selectOffer)
	router.POST("/:id/price", h.confirmPrice)
	router.POST("/:id/travelers", h.submitTravelers)
	router.GET("/:id/seatmaps", h.seatMaps)
	router.PUT("/:id/seats", h.selectSeat)
	router.DELETE("/:id/seats/:travelerId/:segmentId", h.clearSeat)
	router.POST("/:id/advance", h.advance)
	router.POST("/:id/back", h.back)
	router.POST("/:id/order", h.createOrder)
	router.POST("/:id/order/resolve", h.resolveOrder)
}

func (h *SessionHandler) create(c *gin.Context) {
	c.JSON(http.StatusCreated, h.service.Create(c.Request.Context()))
}

func (h *SessionHandler) get(c *gin.Context) {
	snap, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *SessionHandler) reset(c *gin.Context) {
	h.respond(c)(h.service.Reset(c.Request.Context(), c.Param("id")))
}

func (h *SessionHandler) search(c *gin.Context) {
	var params domain.SearchParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Search(c.Request.Context(), c.Param("id"), params)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, searchResponse{
		SessionID: c.Param("id"),
		SearchID:  result.ID,
		Offers:    ranking.Rank(result.Offers, result.Filters, ranking.SortRecommended),
		Filters:   result.Filters,
		Facets:    result.Facets,
	})
}

func (h *SessionHandler) selectOffer(c *gin.Context) {
	var req selectOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respond(c)(h.service.SelectOffer(c.Request.Context(), c.Param("id"), req.SearchID, req.OfferID))
}

func (h *SessionHandler) confirmPrice(c *gin.Context) {
	h.respond(c)(h.service.ConfirmPrice(c.Request.Context(), c.Param("id")))
}

func (h *SessionHandler) submitTravelers(c *gin.Context) {
	var req travelersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snap, fieldErrs, err := h.service.SubmitTravelers(c.Request.Context(), c.Param("id"), req.Travelers)
	if err != nil {
		writeError(c, err, sessionOrNil(snap))
		return
	}
	if !fieldErrs.OK() {
		c.JSON(http.StatusUnprocessableEntity, validationResponse{
			Error:   "traveler details are incomplete",
			Fields:  fieldErrs,
			Session: snap,
		})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *SessionHandler) seatMaps(c *gin.Context) {
	maps, err := h.service.LoadSeatMaps(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, seatMapsResponse{SeatMaps: maps})
}

func (h *SessionHandler) selectSeat(c *gin.Context) {
	var req seatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respond(c)(h.service.SelectSeat(c.Request.Context(), c.Param("id"), domain.SeatAssignment{
		TravelerID: req.TravelerID,
		SegmentID:  req.SegmentID,
		SeatNumber: req.SeatNumber,
	}))
}

func (h *SessionHandler) clearSeat(c *gin.Context) {
	h.respond(c)(h.service.ClearSeat(c.Request.Context(), c.Param("id"), c.Param("travelerId"), c.Param("segmentId")))
}

func (h *SessionHandler) advance(c *gin.Context) {
	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respond(c)(h.service.Advance(c.Request.Context(), c.Param("id"), req.Step))
}

func (h *SessionHandler) back(c *gin.Context) {
	h.respond(c)(h.service.Back(c.Request.Context(), c.Param("id")))
}

func (h *SessionHandler) createOrder(c *gin.Context) {
	h.respond(c)(h.service.CreateOrder(c.Request.Context(), c.Param("id")))
}

func (h *SessionHandler) resolveOrder(c *gin.Context) {
	h.respond(c)(h.service.ResolveOrderOutcome(c.Request.Context(), c.Param("id")))
}

// respond writes the snapshot, or the error next to the session state.
func (h *SessionHandler) respond(c *gin.Context) func(session.Snapshot, error) {
	return func(snap session.Snapshot, err error) {
		if err != nil {
			writeError(c, err, sessionOrNil(snap))
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}

func sessionOrNil(snap session.Snapshot) any {
	if snap.ID == "" {
		return nil
	}
	return snap
}
