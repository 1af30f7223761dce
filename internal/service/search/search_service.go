package search

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/ranking"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type SearchUseCase interface {
	Search(ctx context.Context, params domain.SearchParams) (*Result, error)
	Get(ctx context.Context, searchID string) (*Result, error)
	Offer(ctx context.Context, searchID, offerID string) (*domain.FlightOffer, error)
	Rank(ctx context.Context, searchID string, selection ranking.FilterState, policy ranking.SortPolicy) (*RankedView, error)
}

type Searcher interface {
	Search(ctx context.Context, params domain.SearchParams) ([]domain.FlightOffer, error)
}

// Cache stores search results by id. GetSearch returns nil, nil on a miss.
type Cache interface {
	GetSearch(ctx context.Context, id string) (*Result, error)
	SetSearch(ctx context.Context, result *Result) error
}

// Result is one search with the facets seeded from its own offers.
type Result struct {
	ID        string               `json:"id"`
	Params    domain.SearchParams  `json:"params"`
	Offers    []domain.FlightOffer `json:"offers"`
	Filters   ranking.FilterState  `json:"filters"`
	Facets    ranking.Facets       `json:"facets"`
	CreatedAt time.Time            `json:"created_at"`
}

type RankedView struct {
	SearchID string              `json:"search_id"`
	Policy   ranking.SortPolicy  `json:"policy"`
	Filters  ranking.FilterState `json:"filters"`
	Total    int                 `json:"total"`
	Offers   []ranking.Ranked    `json:"offers"`
}

type Coordinator struct {
	client          Searcher
	cache           Cache
	defaultCurrency string
	validate        *validator.Validate
	clock           func() time.Time
	logger          *zap.Logger
}

type CoordinatorOption func(*Coordinator)

func WithClock(clock func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.clock = clock }
}

func NewCoordinator(client Searcher, cache Cache, defaultCurrency string, logger *zap.Logger, opts ...CoordinatorOption) *Coordinator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	c := &Coordinator{
		client:          client,
		cache:           cache,
		defaultCurrency: defaultCurrency,
		validate:        v,
		clock:           time.Now,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search calls the supplier once. Failures are returned as is, tagged
// ErrSearchFailed; there is no retry.
func (c *Coordinator) Search(ctx context.Context, params domain.SearchParams) (*Result, error) {
	params = c.normalize(params)
	if err := c.check(params); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchFailed, err)
	}

	offers, err := c.client.Search(ctx, params)
	if err != nil {
		c.logger.Warn("flight search failed",
			zap.String("origin", params.Origin),
			zap.String("destination", params.Destination),
			zap.Error(err),
		)
		if !errors.Is(err, domain.ErrSearchFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrSearchFailed, err)
		}
		return nil, err
	}

	result := &Result{
		ID:        uuid.NewString(),
		Params:    params,
		Offers:    offers,
		Filters:   ranking.NewFilterState(offers),
		Facets:    ranking.CountFacets(offers),
		CreatedAt: c.clock(),
	}

	if c.cache != nil {
		if err := c.cache.SetSearch(ctx, result); err != nil {
			c.logger.Warn("failed to cache search result", zap.String("search_id", result.ID), zap.Error(err))
		}
	}

	c.logger.Info("flight search completed",
		zap.String("search_id", result.ID),
		zap.String("route", params.Origin+"-"+params.Destination),
		zap.Int("offers", len(offers)),
	)
	return result, nil
}

func (c *Coordinator) Get(ctx context.Context, searchID string) (*Result, error) {
	if c.cache == nil {
		return nil, domain.ErrSearchNotFound
	}
	result, err := c.cache.GetSearch(ctx, searchID)
	if err != nil {
		return nil, fmt.Errorf("load search %s: %w", searchID, err)
	}
	if result == nil {
		return nil, domain.ErrSearchNotFound
	}
	return result, nil
}

func (c *Coordinator) Offer(ctx context.Context, searchID, offerID string) (*domain.FlightOffer, error) {
	result, err := c.Get(ctx, searchID)
	if err != nil {
		return nil, err
	}
	for i := range result.Offers {
		if result.Offers[i].ID == offerID {
			return &result.Offers[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrOfferNotFound, offerID)
}

// Rank applies a consumer selection to a stored result. Bounds and the
// carrier facet always come from the stored result.
func (c *Coordinator) Rank(ctx context.Context, searchID string, selection ranking.FilterState, policy ranking.SortPolicy) (*RankedView, error) {
	result, err := c.Get(ctx, searchID)
	if err != nil {
		return nil, err
	}

	filters := result.Filters
	filters.PriceSelection = nil
	if selection.PriceSelection != nil {
		filters.PriceSelection = &ranking.PriceRange{Min: filters.PriceBounds.Min, Max: selection.PriceSelection.Max}
	}
	filters.SelectedCarriers = selection.SelectedCarriers
	filters.SelectedStops = selection.SelectedStops
	filters.SelectedDepartureTimes = selection.SelectedDepartureTimes
	filters.SelectedArrivalTimes = selection.SelectedArrivalTimes

	ranked := ranking.Rank(result.Offers, filters, policy)
	return &RankedView{
		SearchID: result.ID,
		Policy:   policy,
		Filters:  filters,
		Total:    len(result.Offers),
		Offers:   ranked,
	}, nil
}

func (c *Coordinator) normalize(p domain.SearchParams) domain.SearchParams {
	p.Origin = strings.ToUpper(strings.TrimSpace(p.Origin))
	p.Destination = strings.ToUpper(strings.TrimSpace(p.Destination))
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	if p.Currency == "" {
		p.Currency = c.defaultCurrency
	}
	if p.CabinClass == "" {
		p.CabinClass = domain.CabinEconomy
	}
	p.SetTripType(p.TripType)
	return p
}

func (c *Coordinator) check(p domain.SearchParams) error {
	if err := c.validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", domain.ErrInvalidSearchParams, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", domain.ErrInvalidSearchParams, err)
	}

	departure, err := time.Parse(dateLayout, p.DepartureDate)
	if err != nil {
		return fmt.Errorf("%w: departure_date must be YYYY-MM-DD", domain.ErrInvalidSearchParams)
	}
	y, m, d := c.clock().Date()
	if departure.Before(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)) {
		return fmt.Errorf("%w: departure_date is in the past", domain.ErrInvalidSearchParams)
	}

	if p.TripType == domain.TripRoundTrip {
		if p.ReturnDate == "" {
			return fmt.Errorf("%w: return_date is required for a round trip", domain.ErrInvalidSearchParams)
		}
		ret, err := time.Parse(dateLayout, p.ReturnDate)
		if err != nil {
			return fmt.Errorf("%w: return_date must be YYYY-MM-DD", domain.ErrInvalidSearchParams)
		}
		if ret.Before(departure) {
			return fmt.Errorf("%w: return_date is before departure_date", domain.ErrInvalidSearchParams)
		}
	}
	return nil
}

var _ SearchUseCase = (*Coordinator)(nil)
