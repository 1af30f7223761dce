// Package session implements the booking state machine that walks a traveler
// from offer selection to a confirmed supplier order.
//
// Supplier calls run detached from the caller's context so an abandoned
// request can still finish. Every call records the session generation it was
// issued under; results that come back after a reset are discarded.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/seats"
	"github.com/Domenick1991/flightbooking/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Supplier interface {
	ConfirmPrice(ctx context.Context, offer *domain.FlightOffer) (*domain.ConfirmedOffer, error)
	GetSeatMaps(ctx context.Context, offer *domain.ConfirmedOffer) ([]domain.SeatMap, error)
	CreateOrder(ctx context.Context, payload domain.OrderPayload) (*domain.Order, error)
}

type Validator interface {
	Validate(travelers []domain.Traveler, now time.Time) validation.Errors
}

// definitive is implemented by supplier errors that know whether the request
// was rejected outright.
type definitive interface {
	Definitive() bool
}

const (
	defaultCallTimeout = 60 * time.Second
	resolvedNote       = "resolved manually: no booking exists at the supplier"
)

type Session struct {
	id string

	mu                  sync.Mutex
	generation          uint64
	step                domain.Step
	searchID            string
	offer               *domain.FlightOffer
	confirmed           *domain.ConfirmedOffer
	seats               *seats.Tracker
	travelers           []domain.Traveler
	order               *domain.Order
	orderPlacedAt       time.Time
	pricing             opState
	seatMaps            opState
	ordering            opState
	orderOutcomeUnknown bool
	unresolvedAttempt   string
	updatedAt           time.Time

	// priceCalls and orderCalls count finished supplier calls. A caller that
	// passed its checks before a call finished sees the count move and takes
	// that call's outcome instead of issuing another one.
	priceCalls uint64
	orderCalls uint64

	calls       singleflight.Group
	supplier    Supplier
	validator   Validator
	journal     OrderJournal
	observer    Observer
	clock       func() time.Time
	callTimeout time.Duration
	logger      *zap.Logger
}

type Option func(*Session)

func WithClock(clock func() time.Time) Option {
	return func(s *Session) { s.clock = clock }
}

func WithJournal(j OrderJournal) Option {
	return func(s *Session) { s.journal = j }
}

func WithObserver(o Observer) Option {
	return func(s *Session) { s.observer = o }
}

func WithCallTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.callTimeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

func New(id string, supplier Supplier, validator Validator, opts ...Option) *Session {
	s := &Session{
		id:          id,
		step:        domain.StepSearching,
		seats:       seats.NewTracker(),
		supplier:    supplier,
		validator:   validator,
		clock:       time.Now,
		callTimeout: defaultCallTimeout,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("session_id", id))
	s.updatedAt = s.clock()
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Step() domain.Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Reset abandons the current booking attempt from any step. In-flight calls
// finish but their results are dropped.
func (s *Session) Reset() {
	s.mu.Lock()
	s.generation++
	s.step = domain.StepSearching
	s.searchID = ""
	s.offer = nil
	s.confirmed = nil
	s.seats = seats.NewTracker()
	s.travelers = nil
	s.order = nil
	s.orderPlacedAt = time.Time{}
	s.pricing = opState{}
	s.seatMaps = opState{}
	s.ordering = opState{}
	s.orderOutcomeUnknown = false
	s.unresolvedAttempt = ""
	s.touch()
	ev := Event{Type: EventSessionReset, SessionID: s.id, Generation: s.generation, At: s.updatedAt}
	s.mu.Unlock()

	s.logger.Debug("session reset", zap.Uint64("generation", ev.Generation))
	s.emit(ev)
}

// ShowResults moves a session sitting in Searching to Selecting and remembers
// which search result it is browsing.
func (s *Session) ShowResults(searchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != domain.StepSearching {
		return &domain.TransitionError{Op: "showResults", From: s.step, To: domain.StepSelecting}
	}
	s.searchID = searchID
	s.step = domain.StepSelecting
	s.touch()
	return nil
}

func (s *Session) SearchID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchID
}

// Select stores the chosen offer and moves to CollectingTravelers. It does
// not confirm the price.
func (s *Session) Select(offer *domain.FlightOffer) error {
	if offer == nil || offer.ID == "" {
		return precondition("offer is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != domain.StepSelecting {
		return &domain.TransitionError{Op: "select", From: s.step, To: domain.StepCollectingTravelers}
	}
	s.offer = offer.Clone()
	s.confirmed = nil
	s.pricing = opState{}
	s.step = domain.StepCollectingTravelers
	s.touch()
	return nil
}

// Advance moves exactly one step forward. Confirmed is only reachable through
// CreateOrder.
func (s *Session) Advance(target domain.Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !target.Valid() || target != s.step+1 || target == domain.StepConfirmed {
		return &domain.TransitionError{Op: "advance", From: s.step, To: target}
	}
	if err := s.checkEntry(target); err != nil {
		return err
	}
	s.step = target
	s.touch()
	return nil
}

func (s *Session) checkEntry(target domain.Step) error {
	switch target {
	case domain.StepCollectingTravelers:
		if s.offer == nil {
			return precondition("no offer selected")
		}
	case domain.StepSelectingSeats:
		if len(s.travelers) == 0 {
			return precondition("travelers have not been submitted")
		}
	case domain.StepReviewing:
		if s.pricing.pending {
			return precondition("price confirmation is still pending")
		}
		if !s.confirmedCurrent() {
			return precondition("price has not been confirmed")
		}
	}
	return nil
}

// Back moves one step down from SelectingSeats or Reviewing.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != domain.StepSelectingSeats && s.step != domain.StepReviewing {
		return &domain.TransitionError{Op: "back", From: s.step, To: s.step - 1}
	}
	s.step--
	s.touch()
	return nil
}

// ConfirmPrice re-prices the selected offer. A finished confirmation for the
// same offer is returned without a supplier call, and concurrent callers
// share one in-flight call.
func (s *Session) ConfirmPrice(ctx context.Context) (*domain.ConfirmedOffer, error) {
	s.mu.Lock()
	if s.offer == nil {
		s.mu.Unlock()
		return nil, precondition("no offer selected")
	}
	if s.step >= domain.StepConfirmed {
		step := s.step
		s.mu.Unlock()
		return nil, &domain.TransitionError{Op: "confirmPrice", From: step}
	}
	if s.confirmedCurrent() {
		c := s.confirmed.Clone()
		s.mu.Unlock()
		return c, nil
	}
	gen, seq, offer := s.generation, s.priceCalls, s.offer
	s.pricing.pending = true
	s.mu.Unlock()

	val, err := s.await(ctx, fmt.Sprintf("price:%d:%s", gen, offer.ID), func() (any, *Event, error) {
		return s.confirmPrice(ctx, gen, seq, offer)
	})
	if err != nil {
		return nil, err
	}
	return val.(*domain.ConfirmedOffer).Clone(), nil
}

// settledPrice reports the outcome of a confirmation that finished after the
// caller took seq. It must be called with s.mu held.
func (s *Session) settledPrice(gen, seq uint64, offer *domain.FlightOffer) (*domain.ConfirmedOffer, bool, error) {
	if s.generation != gen {
		return nil, true, domain.ErrStaleResult
	}
	if s.confirmedCurrent() && s.confirmed.OriginalOfferID == offer.ID {
		s.pricing.pending = false
		return s.confirmed.Clone(), true, nil
	}
	if s.priceCalls != seq && s.pricing.err != nil {
		s.pricing.pending = false
		return nil, true, s.pricing.err
	}
	return nil, false, nil
}

func (s *Session) confirmPrice(ctx context.Context, gen, seq uint64, offer *domain.FlightOffer) (*domain.ConfirmedOffer, *Event, error) {
	s.mu.Lock()
	if c, done, err := s.settledPrice(gen, seq, offer); done {
		s.mu.Unlock()
		return c, nil, err
	}
	s.mu.Unlock()

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.callTimeout)
	defer cancel()

	confirmed, err := s.supplier.ConfirmPrice(callCtx, offer)
	if err != nil {
		err = classify(err, domain.ErrPriceConfirmationFailed)
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		s.logger.Info("discarding stale price confirmation", zap.Uint64("generation", gen), zap.String("offer_id", offer.ID))
		return nil, nil, domain.ErrStaleResult
	}
	s.priceCalls++
	s.pricing.pending = false
	ev := Event{SessionID: s.id, Generation: gen, OfferID: offer.ID, At: s.clock()}
	if err != nil {
		s.confirmed = nil
		s.pricing.err = err
		ev.Type, ev.Err = EventPriceConfirmationFailed, err
	} else {
		s.confirmed = confirmed
		s.pricing.err = nil
		ev.Type, ev.Confirmed = EventPriceConfirmed, confirmed.Clone()
	}
	s.touch()
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("price confirmation failed", zap.String("offer_id", offer.ID), zap.Error(err))
	} else if confirmed.PriceChanged() {
		s.logger.Info("confirmed price differs from search price",
			zap.String("offer_id", offer.ID),
			zap.Float64("search_total", confirmed.OriginalTotal),
			zap.Float64("confirmed_total", confirmed.Offer.Price.Total),
		)
	}
	return confirmed, &ev, err
}

// await joins the shared call for key. Only the caller whose fn ran emits the
// call's event, and only after every waiter has been handed the result.
func (s *Session) await(ctx context.Context, key string, fn func() (any, *Event, error)) (any, error) {
	var ev *Event
	ch := s.calls.DoChan(key, func() (any, error) {
		val, e, err := fn()
		ev = e
		return val, err
	})

	select {
	case res := <-ch:
		if ev != nil {
			s.emit(*ev)
		}
		return res.Val, res.Err
	case <-ctx.Done():
		go func() {
			<-ch
			if ev != nil {
				s.emit(*ev)
			}
		}()
		return nil, ctx.Err()
	}
}

// ConfirmPriceAsync starts a price confirmation in the background. Progress
// shows up in the snapshot's pricing status.
func (s *Session) ConfirmPriceAsync(ctx context.Context) error {
	s.mu.Lock()
	if s.offer == nil {
		s.mu.Unlock()
		return precondition("no offer selected")
	}
	s.mu.Unlock()

	go func() {
		if _, err := s.ConfirmPrice(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, domain.ErrStaleResult) {
			s.logger.Debug("background price confirmation finished with error", zap.Error(err))
		}
	}()
	return nil
}

// SubmitTravelers validates the traveler list and binds supplier passenger
// ids. Field errors are returned as values and leave the step unchanged.
func (s *Session) SubmitTravelers(travelers []domain.Traveler) (validation.Errors, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != domain.StepCollectingTravelers {
		return nil, &domain.TransitionError{Op: "submitTravelers", From: s.step, To: domain.StepSelectingSeats}
	}
	if errs := s.validator.Validate(travelers, s.clock()); !errs.OK() {
		return errs, nil
	}

	bound, err := BindPassengerIDs(travelers, s.offer.TravelerPricings)
	if err != nil {
		return nil, err
	}
	s.travelers = bound
	s.step = domain.StepSelectingSeats
	s.touch()
	return nil, nil
}

// LoadSeatMaps fetches seat maps for the confirmed offer. Unavailable seat
// maps come back as an empty list.
func (s *Session) LoadSeatMaps(ctx context.Context) ([]domain.SeatMap, error) {
	s.mu.Lock()
	if s.step != domain.StepSelectingSeats {
		step := s.step
		s.mu.Unlock()
		return nil, &domain.TransitionError{Op: "loadSeatMaps", From: step}
	}
	if !s.confirmedCurrent() {
		s.mu.Unlock()
		return nil, precondition("price has not been confirmed")
	}
	gen, tracker, confirmed := s.generation, s.seats, s.confirmed
	s.seatMaps.pending = true
	s.mu.Unlock()

	ch := s.calls.DoChan(fmt.Sprintf("seatmaps:%d", gen), func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.callTimeout)
		defer cancel()
		maps, err := tracker.Load(callCtx, s.supplier, confirmed)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.generation != gen {
			return nil, domain.ErrStaleResult
		}
		s.seatMaps = opState{err: err}
		s.touch()
		return maps, err
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return tracker.Maps(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SelectSeat records seat intent for a bound traveler on a segment of the
// confirmed offer.
func (s *Session) SelectSeat(travelerID, segmentID, seatNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkSeatTarget("selectSeat", travelerID, segmentID); err != nil {
		return err
	}
	if seatNumber == "" {
		return precondition("seat number is required")
	}
	s.seats.Select(travelerID, segmentID, seatNumber)
	s.touch()
	return nil
}

func (s *Session) ClearSeat(travelerID, segmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkSeatTarget("clearSeat", travelerID, segmentID); err != nil {
		return err
	}
	s.seats.Clear(travelerID, segmentID)
	s.touch()
	return nil
}

func (s *Session) checkSeatTarget(op, travelerID, segmentID string) error {
	if s.step != domain.StepSelectingSeats {
		return &domain.TransitionError{Op: op, From: s.step}
	}
	if !s.confirmedCurrent() {
		return precondition("price has not been confirmed")
	}
	if !s.hasTraveler(travelerID) {
		return precondition("unknown traveler %q", travelerID)
	}
	if !s.confirmed.Offer.HasSegment(segmentID) {
		return precondition("unknown segment %q", segmentID)
	}
	return nil
}

// CreateOrder submits the booking. An existing order is returned without
// another supplier call. A failure the supplier definitively rejected may be
// resubmitted; any other failure blocks resubmission until
// ResolveOrderOutcome is called.
func (s *Session) CreateOrder(ctx context.Context) (*domain.Order, error) {
	s.mu.Lock()
	if s.order != nil {
		o := s.order.Clone()
		s.mu.Unlock()
		return o, nil
	}
	if s.step != domain.StepReviewing {
		step := s.step
		s.mu.Unlock()
		return nil, &domain.TransitionError{Op: "createOrder", From: step, To: domain.StepConfirmed}
	}
	if s.orderOutcomeUnknown {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: a previous submission may have succeeded", domain.ErrOrderOutcomeUnknown)
	}
	payload, err := s.buildPayload()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	gen, seq := s.generation, s.orderCalls
	s.ordering.pending = true
	s.mu.Unlock()

	val, err := s.await(ctx, fmt.Sprintf("order:%d", gen), func() (any, *Event, error) {
		return s.createOrder(ctx, gen, seq, payload)
	})
	if err != nil {
		return nil, err
	}
	return val.(*domain.Order).Clone(), nil
}

// settledOrder reports the outcome of a submission that finished after the
// caller took seq. It must be called with s.mu held.
func (s *Session) settledOrder(gen, seq uint64) (*domain.Order, bool, error) {
	if s.generation != gen {
		return nil, true, domain.ErrStaleResult
	}
	if s.order != nil {
		s.ordering.pending = false
		return s.order.Clone(), true, nil
	}
	if s.orderCalls != seq && s.ordering.err != nil {
		s.ordering.pending = false
		return nil, true, s.ordering.err
	}
	return nil, false, nil
}

// buildPayload must be called with s.mu held.
func (s *Session) buildPayload() (domain.OrderPayload, error) {
	if !s.confirmedCurrent() {
		return domain.OrderPayload{}, precondition("price has not been confirmed")
	}
	bound, err := BindPassengerIDs(s.travelers, s.offer.TravelerPricings)
	if err != nil {
		return domain.OrderPayload{}, err
	}
	if repriced := s.confirmed.Offer.TravelerPricings; len(repriced) > 0 && !samePassengerIDs(s.offer.TravelerPricings, repriced) {
		return domain.OrderPayload{}, fmt.Errorf("%w: confirmed offer lists different passenger ids than the selected offer", domain.ErrPassengerBinding)
	}
	if bound[0].Contact == nil {
		return domain.OrderPayload{}, precondition("primary traveler has no contact details")
	}
	return domain.OrderPayload{
		Offer:     *s.confirmed.Clone(),
		Travelers: bound,
		Contact:   *bound[0].Contact,
		Seats:     s.seats.Assignments(),
	}, nil
}

func (s *Session) createOrder(ctx context.Context, gen, seq uint64, payload domain.OrderPayload) (*domain.Order, *Event, error) {
	s.mu.Lock()
	if o, done, err := s.settledOrder(gen, seq); done {
		s.mu.Unlock()
		return o, nil, err
	}
	s.mu.Unlock()

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.callTimeout)
	defer cancel()

	attempt := &domain.OrderAttempt{
		ID:         uuid.NewString(),
		SessionID:  s.id,
		Generation: gen,
		OfferID:    payload.Offer.Offer.ID,
		Status:     domain.AttemptPending,
		CreatedAt:  s.clock(),
	}
	if s.journal != nil {
		if err := s.journal.Begin(callCtx, attempt); err != nil {
			err = fmt.Errorf("record order attempt: %w", err)
			s.mu.Lock()
			if s.generation == gen {
				s.orderCalls++
				s.ordering = opState{err: err}
			}
			s.mu.Unlock()
			return nil, nil, err
		}
	}

	order, err := s.supplier.CreateOrder(callCtx, payload)

	s.mu.Lock()
	stale := s.generation != gen
	if !stale {
		s.orderCalls++
	}
	ev := Event{SessionID: s.id, Generation: gen, OfferID: attempt.OfferID, Email: payload.Contact.Email, At: s.clock()}
	status := domain.AttemptSucceeded
	switch {
	case err != nil:
		ambiguous := !isDefinitive(err)
		err = classify(err, domain.ErrOrderCreationFailed)
		status = domain.AttemptFailed
		if ambiguous {
			status = domain.AttemptUnknown
			err = fmt.Errorf("%w: %w", domain.ErrOrderOutcomeUnknown, err)
		}
		if !stale {
			s.ordering = opState{err: err}
			s.orderOutcomeUnknown = ambiguous
			if ambiguous {
				s.unresolvedAttempt = attempt.ID
			}
			s.touch()
		}
		ev.Type, ev.Err = EventOrderFailed, err
	case stale:
		status = domain.AttemptOrphaned
		ev.Type, ev.Order = EventOrderCreated, order.Clone()
	default:
		s.order = order
		s.orderPlacedAt = s.clock()
		s.step = domain.StepConfirmed
		s.ordering = opState{}
		s.touch()
		ev.Type, ev.Order = EventOrderCreated, order.Clone()
	}
	s.mu.Unlock()

	reason := ""
	if err != nil {
		reason = err.Error()
	}
	if s.journal != nil {
		if jerr := s.journal.Finish(callCtx, attempt.ID, status, order, reason); jerr != nil {
			s.logger.Error("failed to finish order attempt", zap.String("attempt_id", attempt.ID), zap.Error(jerr))
		}
	}

	switch {
	case status == domain.AttemptOrphaned:
		s.logger.Error("order created for an abandoned booking, needs manual reconciliation",
			zap.String("attempt_id", attempt.ID),
			zap.String("order_id", order.ID),
			zap.String("reference", order.Reference),
			zap.Uint64("generation", gen),
		)
		return nil, nil, fmt.Errorf("%w: order %s belongs to an abandoned booking", domain.ErrStaleResult, order.Reference)
	case err != nil:
		s.logger.Warn("order creation failed", zap.String("attempt_id", attempt.ID), zap.String("status", string(status)), zap.Error(err))
		if stale {
			return nil, nil, err
		}
		return nil, &ev, err
	}

	s.logger.Info("order created", zap.String("order_id", order.ID), zap.String("reference", order.Reference))
	return order, &ev, nil
}

// ResolveOrderOutcome clears the ambiguous-order guard after the outcome was
// reconciled with the supplier and no booking exists. The journaled attempt
// is marked FAILED so the reconciler stops flagging it.
func (s *Session) ResolveOrderOutcome(ctx context.Context) error {
	s.mu.Lock()
	if !s.orderOutcomeUnknown {
		s.mu.Unlock()
		return precondition("no unresolved order submission")
	}
	gen, attemptID := s.generation, s.unresolvedAttempt
	s.mu.Unlock()

	if s.journal != nil && attemptID != "" {
		if err := s.journal.MarkReconciled(ctx, attemptID, domain.AttemptFailed, resolvedNote); err != nil {
			return fmt.Errorf("record reconciliation of attempt %s: %w", attemptID, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen || s.unresolvedAttempt != attemptID {
		return domain.ErrStaleResult
	}
	s.orderOutcomeUnknown = false
	s.unresolvedAttempt = ""
	s.ordering = opState{}
	s.touch()
	s.logger.Info("order outcome resolved", zap.String("attempt_id", attemptID))
	return nil
}

// Expired reports whether the session should be cleared: an order older than
// retention, or no activity for idle (when idle > 0).
func (s *Session) Expired(now time.Time, retention, idle time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order != nil && now.Sub(s.orderPlacedAt) >= retention {
		return true
	}
	return idle > 0 && now.Sub(s.updatedAt) >= idle
}

func (s *Session) confirmedCurrent() bool {
	return s.offer != nil && s.confirmed != nil && s.confirmed.OriginalOfferID == s.offer.ID
}

func (s *Session) hasTraveler(id string) bool {
	for _, t := range s.travelers {
		if t.ID == id {
			return true
		}
	}
	return false
}

func (s *Session) touch() {
	s.updatedAt = s.clock()
}

func (s *Session) emit(e Event) {
	if s.observer != nil {
		s.observer(context.Background(), e)
	}
}

func precondition(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrPreconditionFailed, fmt.Sprintf(format, args...))
}

// classify tags err with sentinel unless it already carries it. The original
// error stays in the chain.
func classify(err, sentinel error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

func isDefinitive(err error) bool {
	var d definitive
	return errors.As(err, &d) && d.Definitive()
}
