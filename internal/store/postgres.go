package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolationCode    = "23505"
	confirmTokenConstraint = "bookings_confirm_token_key"
	bookingColumns         = `id, confirm_token, full_name, email, phone, event_type, location, notes, start_iso, end_iso, timezone, status, confirmed_at, created_at`
)

// bookingRepo implements BookingRepository on PostgreSQL.
type bookingRepo struct {
	pool PgxPool
}

func (r *bookingRepo) Create(ctx context.Context, b NewBooking) (_ *Booking, err error) {
	defer observeDB(ctx, "bookings.create")(&err)

	const q = `INSERT INTO bookings (id, confirm_token, full_name, email, phone, event_type, location, notes, start_iso, end_iso, timezone, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING ` + bookingColumns

	row := r.pool.QueryRow(ctx, q,
		uuid.NewString(),
		b.ConfirmToken,
		b.FullName,
		b.Email,
		b.Phone,
		b.EventType,
		b.Location,
		b.Notes,
		b.StartISO,
		b.EndISO,
		b.Timezone,
		string(StatusRequested),
	)
	created, err := scanBooking(row)
	if err != nil {
		if isUniqueViolation(err, confirmTokenConstraint) {
			return nil, ErrTokenConflict
		}
		return nil, fmt.Errorf("insert booking: %w", err)
	}
	return created, nil
}

func (r *bookingRepo) GetByID(ctx context.Context, id string) (_ *Booking, err error) {
	defer observeDB(ctx, "bookings.get_by_id")(&err)

	row := r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}
	return b, nil
}

func (r *bookingRepo) GetByToken(ctx context.Context, token string) (_ *Booking, err error) {
	defer observeDB(ctx, "bookings.get_by_token")(&err)

	row := r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE confirm_token = $1`, token)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking by token: %w", err)
	}
	return b, nil
}

// UpdateStatusIfMatch relies on the row lock taken by UPDATE: of two
// concurrent callers only one matches "status = expected".
func (r *bookingRepo) UpdateStatusIfMatch(ctx context.Context, id string, expected, next Status, confirmedAt time.Time) (_ UpdateResult, err error) {
	if !expected.CanTransitionTo(next) {
		return UpdateResult{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, expected, next)
	}
	defer observeDB(ctx, "bookings.update_status")(&err)

	const q = `UPDATE bookings SET status = $3, confirmed_at = $4
WHERE id = $1 AND status = $2
RETURNING ` + bookingColumns

	updated, err := scanBooking(r.pool.QueryRow(ctx, q, id, string(expected), string(next), confirmedAt))
	if err == nil {
		return UpdateResult{Outcome: Updated, Booking: updated}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return UpdateResult{}, fmt.Errorf("update booking %s: %w", id, err)
	}

	current, err := scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UpdateResult{Outcome: NotFound}, nil
		}
		return UpdateResult{}, fmt.Errorf("reload booking %s: %w", id, err)
	}
	if current.Status != next {
		return UpdateResult{}, fmt.Errorf("%w: booking %s is %s", ErrInvalidTransition, id, current.Status)
	}
	return UpdateResult{Outcome: AlreadyInTargetState, Booking: current}, nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var (
		b      Booking
		status string
	)
	if err := row.Scan(
		&b.ID,
		&b.ConfirmToken,
		&b.FullName,
		&b.Email,
		&b.Phone,
		&b.EventType,
		&b.Location,
		&b.Notes,
		&b.StartISO,
		&b.EndISO,
		&b.Timezone,
		&status,
		&b.ConfirmedAt,
		&b.CreatedAt,
	); err != nil {
		return nil, err
	}
	b.Status = Status(status)
	return &b, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
