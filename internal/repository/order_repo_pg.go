package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/session"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderAttemptsSchema = `
CREATE TABLE IF NOT EXISTS order_attempts (
    id          TEXT PRIMARY KEY,
    session_id  TEXT        NOT NULL,
    generation  BIGINT      NOT NULL,
    offer_id    TEXT        NOT NULL,
    status      TEXT        NOT NULL,
    order_id    TEXT        NOT NULL DEFAULT '',
    reference   TEXT        NOT NULL DEFAULT '',
    error       TEXT        NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS order_attempts_status_idx ON order_attempts (status, updated_at);
`

var ErrAttemptNotFound = errors.New("order attempt not found")

type OrderRepository interface {
	session.OrderJournal
	EnsureSchema(ctx context.Context) error
	Get(ctx context.Context, id string) (*domain.OrderAttempt, error)
	ListUnresolved(ctx context.Context, olderThan time.Time) ([]domain.OrderAttempt, error)
}

type PGOrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) OrderRepository {
	return &PGOrderRepository{db: db}
}

func (r *PGOrderRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, orderAttemptsSchema)
	return err
}

func (r *PGOrderRepository) Begin(ctx context.Context, attempt *domain.OrderAttempt) error {
	return r.db.QueryRow(ctx, `INSERT INTO order_attempts (id, session_id, generation, offer_id, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		attempt.ID, attempt.SessionID, int64(attempt.Generation), attempt.OfferID, attempt.Status).
		Scan(&attempt.CreatedAt, &attempt.UpdatedAt)
}

func (r *PGOrderRepository) Finish(ctx context.Context, id string, status domain.AttemptStatus, order *domain.Order, reason string) error {
	var orderID, reference string
	if order != nil {
		orderID, reference = order.ID, order.Reference
	}
	cmd, err := r.db.Exec(ctx, `UPDATE order_attempts
		SET status=$1, order_id=$2, reference=$3, error=$4, updated_at=now()
		WHERE id=$5`, status, orderID, reference, reason, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrAttemptNotFound, id)
	}
	return nil
}

func (r *PGOrderRepository) Get(ctx context.Context, id string) (*domain.OrderAttempt, error) {
	row := r.db.QueryRow(ctx, `SELECT id, session_id, generation, offer_id, status, order_id, reference, error, created_at, updated_at
		FROM order_attempts WHERE id=$1`, id)
	a, err := scanAttempt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrAttemptNotFound, id)
	}
	return a, err
}

// ListUnresolved returns attempts still pending, with an unknown outcome, or
// orphaned by a reset, last touched before olderThan.
func (r *PGOrderRepository) ListUnresolved(ctx context.Context, olderThan time.Time) ([]domain.OrderAttempt, error) {
	rows, err := r.db.Query(ctx, `SELECT id, session_id, generation, offer_id, status, order_id, reference, error, created_at, updated_at
		FROM order_attempts
		WHERE status = ANY($1) AND updated_at <= $2
		ORDER BY updated_at`,
		[]string{string(domain.AttemptPending), string(domain.AttemptUnknown), string(domain.AttemptOrphaned)}, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []domain.OrderAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

func (r *PGOrderRepository) MarkReconciled(ctx context.Context, id string, status domain.AttemptStatus, note string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE order_attempts SET status=$1, error=$2, updated_at=now() WHERE id=$3`, status, note, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrAttemptNotFound, id)
	}
	return nil
}

func scanAttempt(row pgx.Row) (*domain.OrderAttempt, error) {
	var (
		a          domain.OrderAttempt
		generation int64
	)
	if err := row.Scan(&a.ID, &a.SessionID, &generation, &a.OfferID, &a.Status, &a.OrderID, &a.Reference, &a.Error, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Generation = uint64(generation)
	return &a, nil
}

var _ OrderRepository = (*PGOrderRepository)(nil)
