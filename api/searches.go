package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Domenick1991/flightbooking/internal/ranking"
	"github.com/Domenick1991/flightbooking/internal/service/search"
	"github.com/gin-gonic/gin"
)

type SearchHandler struct {
	service search.SearchUseCase
}

func NewSearchHandler(service search.SearchUseCase) *SearchHandler {
	return &SearchHandler{service: service}
}

func (h *SearchHandler) Register(router *gin.RouterGroup) {
	router.GET("/:searchId", h.get)
	router.GET("/:searchId/offers", h.offers)
}

func (h *SearchHandler) get(c *gin.Context) {
	result, err := h.service.Get(c.Request.Context(), c.Param("searchId"))
	if err != nil {
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, result)
}

// offers ranks a stored search:
// ?sort=cheapest&carriers=EK,BA&stops=0,1&departure=morning&arrival=evening&max_price=1500
func (h *SearchHandler) offers(c *gin.Context) {
	policy, err := ranking.ParseSortPolicy(c.Query("sort"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	selection, err := parseSelection(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.service.Rank(c.Request.Context(), c.Param("searchId"), selection, policy)
	if err != nil {
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, view)
}

func parseSelection(c *gin.Context) (ranking.FilterState, error) {
	var fs ranking.FilterState
	for _, carrier := range splitList(c.Query("carriers")) {
		fs.SelectedCarriers = append(fs.SelectedCarriers, strings.ToUpper(carrier))
	}
	for _, s := range splitList(c.Query("stops")) {
		// An unescaped "2+" arrives as "2 ".
		if s == "2" {
			s = string(ranking.StopsTwoPlus)
		}
		bucket := ranking.StopBucket(s)
		if !bucket.Valid() {
			return fs, fmt.Errorf("invalid stops %q: want 0, 1 or 2+", s)
		}
		fs.SelectedStops = append(fs.SelectedStops, bucket)
	}
	var err error
	if fs.SelectedDepartureTimes, err = parseTimeBuckets("departure", c.Query("departure")); err != nil {
		return fs, err
	}
	if fs.SelectedArrivalTimes, err = parseTimeBuckets("arrival", c.Query("arrival")); err != nil {
		return fs, err
	}

	if raw := c.Query("max_price"); raw != "" {
		limit, err := strconv.ParseFloat(raw, 64)
		if err != nil || limit < 0 {
			return fs, fmt.Errorf("invalid max_price %q", raw)
		}
		fs.PriceSelection = &ranking.PriceRange{Max: limit}
	}
	return fs, nil
}

func parseTimeBuckets(param, raw string) ([]ranking.TimeBucket, error) {
	var out []ranking.TimeBucket
	for _, b := range splitList(raw) {
		bucket := ranking.TimeBucket(strings.ToLower(b))
		if !bucket.Valid() {
			return nil, fmt.Errorf("invalid %s %q: want morning, afternoon, evening or night", param, b)
		}
		out = append(out, bucket)
	}
	return out, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
