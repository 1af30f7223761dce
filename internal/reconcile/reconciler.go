package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/session"
	"go.uber.org/zap"
)

const lockName = "reconcile-orders"

type Attempts interface {
	ListUnresolved(ctx context.Context, olderThan time.Time) ([]domain.OrderAttempt, error)
	MarkReconciled(ctx context.Context, id string, status domain.AttemptStatus, note string) error
}

type Locker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name string) error
}

type Snapshots interface {
	GetSnapshot(ctx context.Context, id string) (*session.Snapshot, error)
}

// Reconciler surfaces order attempts that never reached a definitive outcome
// so support can check them against the supplier.
type Reconciler struct {
	attempts  Attempts
	locker    Locker
	snapshots Snapshots
	after     time.Duration
	clock     func() time.Time
	logger    *zap.Logger
}

type Option func(*Reconciler)

func WithClock(clock func() time.Time) Option {
	return func(r *Reconciler) { r.clock = clock }
}

func NewReconciler(attempts Attempts, locker Locker, snapshots Snapshots, after time.Duration, logger *zap.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		attempts:  attempts,
		locker:    locker,
		snapshots: snapshots,
		after:     after,
		clock:     time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type Report struct {
	Flagged int
	Expired int
}

// Run checks attempts untouched for longer than the configured delay. A
// PENDING attempt that old lost its process mid-call and becomes UNKNOWN.
// Only one worker runs at a time.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	var report Report
	if r.locker != nil {
		ok, err := r.locker.AcquireLock(ctx, lockName, r.after)
		if err != nil {
			return report, fmt.Errorf("acquire reconcile lock: %w", err)
		}
		if !ok {
			r.logger.Debug("reconciliation already running elsewhere")
			return report, nil
		}
		defer func() {
			if err := r.locker.ReleaseLock(context.WithoutCancel(ctx), lockName); err != nil {
				r.logger.Warn("failed to release reconcile lock", zap.Error(err))
			}
		}()
	}

	attempts, err := r.attempts.ListUnresolved(ctx, r.clock().Add(-r.after))
	if err != nil {
		return report, fmt.Errorf("list unresolved order attempts: %w", err)
	}

	for _, a := range attempts {
		fields := []zap.Field{
			zap.String("attempt_id", a.ID),
			zap.String("session_id", a.SessionID),
			zap.Uint64("generation", a.Generation),
			zap.String("offer_id", a.OfferID),
			zap.String("status", string(a.Status)),
			zap.String("order_id", a.OrderID),
			zap.String("reference", a.Reference),
			zap.Time("updated_at", a.UpdatedAt),
		}
		if snap := r.snapshot(ctx, a.SessionID); snap != nil {
			fields = append(fields, zap.String("session_step", snap.StepName), zap.Uint64("session_generation", snap.Generation))
		}

		if a.Status == domain.AttemptPending {
			if err := r.attempts.MarkReconciled(ctx, a.ID, domain.AttemptUnknown, "no outcome recorded before the reconcile deadline"); err != nil {
				r.logger.Error("failed to mark order attempt unknown", append(fields, zap.Error(err))...)
				continue
			}
			report.Expired++
		}
		report.Flagged++
		r.logger.Error("order attempt needs manual reconciliation", fields...)
	}
	return report, nil
}

func (r *Reconciler) snapshot(ctx context.Context, sessionID string) *session.Snapshot {
	if r.snapshots == nil {
		return nil
	}
	snap, err := r.snapshots.GetSnapshot(ctx, sessionID)
	if err != nil {
		r.logger.Debug("session snapshot unavailable", zap.String("session_id", sessionID), zap.Error(err))
		return nil
	}
	return snap
}
