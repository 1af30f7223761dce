// Package supplier talks to the flight supplier API.
package supplier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client is the supplier boundary. Implementations never retry.
type Client interface {
	Search(ctx context.Context, params domain.SearchParams) ([]domain.FlightOffer, error)
	ConfirmPrice(ctx context.Context, offer *domain.FlightOffer) (*domain.ConfirmedOffer, error)
	GetSeatMaps(ctx context.Context, offer *domain.ConfirmedOffer) ([]domain.SeatMap, error)
	CreateOrder(ctx context.Context, payload domain.OrderPayload) (*domain.Order, error)
}

type envelope struct {
	RequestID string          `json:"request_id"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
}

type errorResponse struct {
	ErrorCode int             `json:"error_code"`
	Message   string          `json:"message"`
	Errors    json.RawMessage `json:"errors,omitempty"`
}

type HTTPClient struct {
	baseURL    string
	apiKey     string
	maxResults int
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	now        func() time.Time
}

type Option func(*HTTPClient)

func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.httpClient = c }
}

func WithClock(now func() time.Time) Option {
	return func(h *HTTPClient) { h.now = now }
}

func NewHTTPClient(cfg config.SupplierConfig, logger *zap.Logger, opts ...Option) *HTTPClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.RequestsPerSecond
	if burst < 1 {
		burst = 1
	}

	c := &HTTPClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		maxResults: cfg.MaxResults,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) Search(ctx context.Context, params domain.SearchParams) ([]domain.FlightOffer, error) {
	if c.maxResults > 0 && (params.MaxResults == 0 || params.MaxResults > c.maxResults) {
		params.MaxResults = c.maxResults
	}
	if params.TripType == domain.TripOneWay {
		params.ReturnDate = ""
	}

	var offers []domain.FlightOffer
	if err := c.do(ctx, OpSearch, "/api/v1/offers/search", params, &offers); err != nil {
		return nil, err
	}
	if offers == nil {
		offers = []domain.FlightOffer{}
	}
	return offers, nil
}

func (c *HTTPClient) ConfirmPrice(ctx context.Context, offer *domain.FlightOffer) (*domain.ConfirmedOffer, error) {
	var priced domain.FlightOffer
	if err := c.do(ctx, OpPricing, "/api/v1/offers/pricing", map[string]any{"offer": offer}, &priced); err != nil {
		return nil, err
	}
	return &domain.ConfirmedOffer{
		Offer:           priced,
		OriginalOfferID: offer.ID,
		OriginalTotal:   offer.Price.Total,
		ConfirmedAt:     c.now(),
	}, nil
}

func (c *HTTPClient) GetSeatMaps(ctx context.Context, offer *domain.ConfirmedOffer) ([]domain.SeatMap, error) {
	var maps []domain.SeatMap
	if err := c.do(ctx, OpSeatMaps, "/api/v1/offers/seatmaps", map[string]any{"offer": offer.Offer}, &maps); err != nil {
		return nil, err
	}
	if len(maps) == 0 {
		return []domain.SeatMap{}, nil
	}
	return maps, nil
}

func (c *HTTPClient) CreateOrder(ctx context.Context, payload domain.OrderPayload) (*domain.Order, error) {
	var order domain.Order
	if err := c.do(ctx, OpOrder, "/api/v1/orders", payload, &order); err != nil {
		return nil, err
	}
	if order.ID == "" {
		return nil, &Error{Op: OpOrder, StatusCode: http.StatusOK, Message: "order response without id"}
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = c.now()
	}
	return &order, nil
}

func (c *HTTPClient) do(ctx context.Context, op Op, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Op: op, Err: err}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	started := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("supplier request failed", zap.String("op", string(op)), zap.Error(err))
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Debug("supplier response",
		zap.String("op", string(op)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", c.now().Sub(started)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &Error{Op: op, StatusCode: resp.StatusCode}
		var er errorResponse
		if json.Unmarshal(raw, &er) == nil {
			se.Code = er.ErrorCode
			se.Message = er.Message
		}
		if se.Message == "" {
			se.Message = http.StatusText(resp.StatusCode)
		}
		return se
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode envelope: %w", err)}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, RequestID: env.RequestID, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}

var _ Client = (*HTTPClient)(nil)
