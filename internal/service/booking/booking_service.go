package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/service/search"
	"github.com/Domenick1991/flightbooking/internal/session"
	"github.com/Domenick1991/flightbooking/internal/validation"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

type BookingUseCase interface {
	Create(ctx context.Context) session.Snapshot
	Get(ctx context.Context, sessionID string) (session.Snapshot, error)
	Reset(ctx context.Context, sessionID string) (session.Snapshot, error)
	Search(ctx context.Context, sessionID string, params domain.SearchParams) (*search.Result, error)
	SelectOffer(ctx context.Context, sessionID, searchID, offerID string) (session.Snapshot, error)
	ConfirmPrice(ctx context.Context, sessionID string) (session.Snapshot, error)
	SubmitTravelers(ctx context.Context, sessionID string, travelers []domain.Traveler) (session.Snapshot, validation.Errors, error)
	LoadSeatMaps(ctx context.Context, sessionID string) ([]domain.SeatMap, error)
	SelectSeat(ctx context.Context, sessionID string, seat domain.SeatAssignment) (session.Snapshot, error)
	ClearSeat(ctx context.Context, sessionID, travelerID, segmentID string) (session.Snapshot, error)
	Advance(ctx context.Context, sessionID string, target domain.Step) (session.Snapshot, error)
	Back(ctx context.Context, sessionID string) (session.Snapshot, error)
	CreateOrder(ctx context.Context, sessionID string) (session.Snapshot, error)
	ResolveOrderOutcome(ctx context.Context, sessionID string) (session.Snapshot, error)
}

// SnapshotStore mirrors session snapshots outside the process.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap session.Snapshot) error
	DeleteSnapshot(ctx context.Context, id string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

type BookingService struct {
	sessions           *session.Manager
	searches           search.SearchUseCase
	supplier           session.Supplier
	validator          session.Validator
	journal            session.OrderJournal
	snapshots          SnapshotStore
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	retention          time.Duration
	idle               time.Duration
	callTimeout        time.Duration
	clock              func() time.Time
	logger             *zap.Logger
}

type BookingServiceOption func(*BookingService)

func WithJournal(j session.OrderJournal) BookingServiceOption {
	return func(s *BookingService) { s.journal = j }
}

func WithSnapshotStore(store SnapshotStore) BookingServiceOption {
	return func(s *BookingService) { s.snapshots = store }
}

func WithProducer(p Producer, bookingTopic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = p
		s.bookingTopic = bookingTopic
	}
}

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) { s.notificationsTopic = topic }
}

func WithRetention(retention, idle time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.retention = retention
		s.idle = idle
	}
}

func WithCallTimeout(d time.Duration) BookingServiceOption {
	return func(s *BookingService) { s.callTimeout = d }
}

func WithClock(clock func() time.Time) BookingServiceOption {
	return func(s *BookingService) { s.clock = clock }
}

func NewBookingService(
	supplier session.Supplier,
	searches search.SearchUseCase,
	logger *zap.Logger,
	opts ...BookingServiceOption,
) *BookingService {
	s := &BookingService{
		searches:  searches,
		supplier:  supplier,
		validator: validation.NewTravelerValidator(),
		retention: 30 * time.Minute,
		clock:     time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.sessions = session.NewManager(s.newSession, s.retention, logger,
		session.WithIdleTimeout(s.idle),
		session.WithManagerClock(s.clock),
		session.WithEvictHook(s.evicted),
	)
	return s
}

// Run sweeps expired sessions until ctx is done.
func (s *BookingService) Run(ctx context.Context, interval time.Duration) {
	s.sessions.Run(ctx, interval)
}

func (s *BookingService) newSession(id string) *session.Session {
	return session.New(id, s.supplier, s.validator,
		session.WithClock(s.clock),
		session.WithJournal(s.journal),
		session.WithObserver(s.observe),
		session.WithCallTimeout(s.callTimeout),
		session.WithLogger(s.logger),
	)
}

func (s *BookingService) Create(ctx context.Context) session.Snapshot {
	sess := s.sessions.Create()
	s.logger.Info("booking session created", zap.String("session_id", sess.ID()))
	return s.mirror(ctx, sess)
}

func (s *BookingService) Get(_ context.Context, sessionID string) (session.Snapshot, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return session.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

func (s *BookingService) Reset(ctx context.Context, sessionID string) (session.Snapshot, error) {
	return s.apply(ctx, sessionID, func(sess *session.Session) error {
		sess.Reset()
		return nil
	})
}

// Search runs a new search for the session. A session past Searching is
// reset first so the previous attempt is abandoned.
func (s *BookingService) Search(ctx context.Context, sessionID string, params domain.SearchParams) (*search.Result, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	result, err := s.searches.Search(ctx, params)
	if err != nil {
		return nil, err
	}

	if sess.Step() != domain.StepSearching {
		sess.Reset()
	}
	if err := sess.ShowResults(result.ID); err != nil {
		return nil, err
	}
	s.mirror(ctx, sess)
	return result, nil
}

// SelectOffer stores the offer and starts price confirmation in the
// background.
func (s *BookingService) SelectOffer(ctx context.Context, sessionID, searchID, offerID string) (session.Snapshot, error) {
	return s.apply(ctx, sessionID, func(sess *session.Session) error {
		if searchID == "" {
			searchID = sess.SearchID()
		}
		if searchID == "" {
			return fmt.Errorf("%w: no search to select from", domain.ErrPreconditionFailed)
		}
		offer, err := s.searches.Offer(ctx, searchID, offerID)
		if err != nil {
			return err
		}
		if err := sess.Select(offer); err != nil {
			return err
		}
		return sess.ConfirmPriceAsync(ctx)
	})
}

func (s *BookingService) ConfirmPrice(ctx context.Context, sessionID string) (session.Snapshot, error) {
	return s.apply(ctx, sessionID, func(sess *session.Session) error {
		_, err := sess.ConfirmPrice(ctx)
		return err
	})
}

// SubmitTravelers returns field errors as a value; err is reserved for
// session and binding failures.
func (s *BookingService) SubmitTravelers(ctx context.Context, sessionID string, travelers []domain.Traveler) (session.Snapshot, validation.Errors, error) {
	var fieldErrs validation.Errors
	snap, err := s.apply(ctx, sessionID, func(sess *session.Session) error {
		var err error
		fieldErrs, err = sess.SubmitTravelers(travelers)
		return err
	})
	return snap, fieldErrs, err
}

func (s *BookingService) LoadSeatMaps(ctx context.Context, sessionID string) ([]domain.SeatMap, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	maps, err := sess.LoadSeatMaps(ctx)
	if err != nil {
		return nil, err
	}
	s.mirror(ctx, sess)
	return maps, nil
}

func (s *BookingService) SelectSeat(ctx context.Context, sessionID string, seat domain.SeatAssignment) (session.Snapshot, error) {
	return s.apply(ctx, sessionID, func(sess *session.Session) error {
		return sess.SelectSeat(seat.TravelerID, seat.SegmentID, seat.SeatNumber)
	})
}

func (s *BookingService) ClearSeat(ctx context.Context, sessionID, travelerID, segmentID string) (session.Snapshot, error) {
	return s.apply(ctx, sessionID, func(sess *session.Session) error {
		return sess.ClearSeat(travelerID, segmentID)
	})
}

func (s *BookingService) Advance(ctx context.Context, sessionID string, target domain.Step) (session.Snapshot, error) {
	return s.apply(ctx, sessionID, func(sess *session.Session) error {
		return sess.Advance(target)
	})
}

func (s *BookingService) Back(ctx context.Context, sessionID string) (session.Snapshot, error) {
	return s.apply(ctx, sessionID, func(sess *session.Session) error {
		return sess.Back()
	})
}

func (s *BookingService) CreateOrder(ctx context.Context, sessionID string) (session.Snapshot, error) {
	return s.apply(ctx, sessionID, func(sess *session.Session) error {
		_, err := sess.CreateOrder(ctx)
		return err
	})
}

func (s *BookingService) ResolveOrderOutcome(ctx context.Context, sessionID string) (session.Snapshot, error) {
	return s.apply(ctx, sessionID, func(sess *session.Session) error {
		if err := sess.ResolveOrderOutcome(ctx); err != nil {
			return err
		}
		s.logger.Warn("unknown order outcome acknowledged", zap.String("session_id", sessionID))
		return nil
	})
}

// apply runs op against a live session and returns the resulting snapshot,
// also on failure, so callers can render the session state next to the error.
func (s *BookingService) apply(ctx context.Context, sessionID string, op func(*session.Session) error) (session.Snapshot, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return session.Snapshot{}, err
	}
	opErr := op(sess)
	return s.mirror(ctx, sess), opErr
}

func (s *BookingService) mirror(ctx context.Context, sess *session.Session) session.Snapshot {
	snap := sess.Snapshot()
	if s.snapshots != nil {
		if err := s.snapshots.SaveSnapshot(ctx, snap); err != nil {
			s.logger.Warn("failed to mirror session snapshot", zap.String("session_id", snap.ID), zap.Error(err))
		}
	}
	return snap
}

func (s *BookingService) evicted(id string) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.DeleteSnapshot(context.Background(), id); err != nil {
		s.logger.Warn("failed to drop session snapshot", zap.String("session_id", id), zap.Error(err))
	}
}

// observe publishes session events. Publishing never fails the operation.
func (s *BookingService) observe(ctx context.Context, e session.Event) {
	if sess, err := s.sessions.Get(e.SessionID); err == nil {
		s.mirror(ctx, sess)
	}
	if s.producer == nil || s.bookingTopic == "" {
		return
	}

	event := toBookingEvent(e)
	if err := s.publish(ctx, s.bookingTopic, event); err != nil {
		s.logger.Warn("failed to publish booking event", zap.String("type", event.Type), zap.String("session_id", e.SessionID), zap.Error(err))
	}
	if e.Type == session.EventOrderCreated && s.notificationsTopic != "" {
		if err := s.publish(ctx, s.notificationsTopic, event); err != nil {
			s.logger.Warn("failed to publish notification", zap.String("session_id", e.SessionID), zap.Error(err))
		}
	}
}

// publish gives each topic its own deadline so a slow broker on one topic
// does not eat into the other.
func (s *BookingService) publish(ctx context.Context, topic string, event kafka.BookingEvent) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return s.producer.Publish(ctx, topic, event.SessionID, event)
}

func toBookingEvent(e session.Event) kafka.BookingEvent {
	event := kafka.BookingEvent{
		Type:       string(e.Type),
		SessionID:  e.SessionID,
		Generation: e.Generation,
		OfferID:    e.OfferID,
		Email:      e.Email,
		OccurredAt: e.At,
	}
	if e.Confirmed != nil {
		event.Total = e.Confirmed.Offer.Price.Total
		event.Currency = e.Confirmed.Offer.Price.Currency
	}
	if e.Order != nil {
		event.OrderID = e.Order.ID
		event.Reference = e.Order.Reference
		event.Total = e.Order.Total.Total
		event.Currency = e.Order.Total.Currency
	}
	if e.Err != nil {
		event.Error = e.Err.Error()
	}
	return event
}

var _ BookingUseCase = (*BookingService)(nil)
